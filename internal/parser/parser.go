// Package parser 将设备原始二进制负载解码为类型化健康读数
//
// 解码布局按数据通道固定：
// - 心率（2a37）：flag 字节 bit0 决定数值宽度（8位 或 小端16位）
// - 血压（2a35）：flag 字节后两个小端 uint16（收缩压/舒张压）
// - 血糖（2a18）：flag 字节后小端 uint16，单位 mg/dL
// - 体温（2a6e）：小端 uint16，单位 0.1°C
// - 血氧（2a5f）：单字节百分比
// - 运动（ff01）：单字节活动级别
//
// 畸形或未知负载：丢弃并记录日志，不向调用方抛出。
package parser

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// 数据通道标识（BLE 特征值短 UUID）
const (
	CharHeartRate     = "2a37"
	CharBloodPressure = "2a35"
	CharGlucose       = "2a18"
	CharTemperature   = "2a6e"
	CharOxygen        = "2a5f"
	CharMovement      = "ff01"
)

// Parser 读数解析器
type Parser struct {
	logger *zap.Logger
}

// NewParser 创建解析器
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{
		logger: logger,
	}
}

// Parse 解析原始负载为健康读数
// 畸形/未知负载返回 (nil, err)，调用方丢弃即可，数据流继续
func (p *Parser) Parse(deviceID, char string, payload []byte) (*models.HealthReading, error) {
	var (
		reading *models.HealthReading
		err     error
	)

	switch char {
	case CharHeartRate:
		reading, err = p.parseHeartRate(deviceID, payload)
	case CharBloodPressure:
		reading, err = p.parseBloodPressure(deviceID, payload)
	case CharGlucose:
		reading, err = p.parseGlucose(deviceID, payload)
	case CharTemperature:
		reading, err = p.parseTemperature(deviceID, payload)
	case CharOxygen:
		reading, err = p.parseOxygen(deviceID, payload)
	case CharMovement:
		reading, err = p.parseMovement(deviceID, payload)
	default:
		err = fmt.Errorf("unknown characteristic: %s", char)
	}

	if err != nil {
		p.logger.Warn("Discarded unparseable payload",
			zap.String("device_id", deviceID),
			zap.String("char", char),
			zap.Int("payload_size", len(payload)),
			zap.Error(err),
		)
		return nil, err
	}

	return reading, nil
}

// parseHeartRate 解析心率负载
// flag bit0 = 0：数值为 uint8；bit0 = 1：数值为小端 uint16
func (p *Parser) parseHeartRate(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("heart rate payload too short: %d bytes", len(payload))
	}

	flags := payload[0]
	var value float64
	if flags&0x01 == 0 {
		value = float64(payload[1])
	} else {
		if len(payload) < 3 {
			return nil, fmt.Errorf("heart rate payload too short for 16-bit value")
		}
		value = float64(binary.LittleEndian.Uint16(payload[1:3]))
	}

	return p.newReading(deviceID, models.ReadingHeartRate, value, "bpm", nil), nil
}

// parseBloodPressure 解析血压负载
// flag 字节后两个小端 uint16：收缩压、舒张压（mmHg）
// Value 取收缩压，附加值携带两项
func (p *Parser) parseBloodPressure(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 5 {
		return nil, fmt.Errorf("blood pressure payload too short: %d bytes", len(payload))
	}

	systolic := float64(binary.LittleEndian.Uint16(payload[1:3]))
	diastolic := float64(binary.LittleEndian.Uint16(payload[3:5]))

	additional := map[string]float64{
		"systolic":  systolic,
		"diastolic": diastolic,
	}
	return p.newReading(deviceID, models.ReadingBloodPressure, systolic, "mmHg", additional), nil
}

// parseGlucose 解析血糖负载（flag + 小端 uint16，mg/dL）
func (p *Parser) parseGlucose(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 3 {
		return nil, fmt.Errorf("glucose payload too short: %d bytes", len(payload))
	}

	value := float64(binary.LittleEndian.Uint16(payload[1:3]))
	return p.newReading(deviceID, models.ReadingBloodGlucose, value, "mg/dL", nil), nil
}

// parseTemperature 解析体温负载（小端 uint16，单位 0.1°C）
func (p *Parser) parseTemperature(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("temperature payload too short: %d bytes", len(payload))
	}

	value := float64(binary.LittleEndian.Uint16(payload[0:2])) / 10.0
	return p.newReading(deviceID, models.ReadingTemperature, value, "°C", nil), nil
}

// parseOxygen 解析血氧负载（单字节百分比）
func (p *Parser) parseOxygen(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("oxygen payload empty")
	}

	value := float64(payload[0])
	if value > 100 {
		return nil, fmt.Errorf("oxygen value out of range: %v", value)
	}
	return p.newReading(deviceID, models.ReadingOxygenSaturation, value, "%", nil), nil
}

// parseMovement 解析运动负载（单字节活动级别）
func (p *Parser) parseMovement(deviceID string, payload []byte) (*models.HealthReading, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("movement payload empty")
	}

	value := float64(payload[0])
	return p.newReading(deviceID, models.ReadingMovement, value, "level", nil), nil
}

// newReading 构建读数（IsCritical 在此计算，固定生理边界）
func (p *Parser) newReading(deviceID string, t models.ReadingType, value float64, unit string, additional map[string]float64) *models.HealthReading {
	return &models.HealthReading{
		ID:         uuid.New().String(),
		DeviceID:   deviceID,
		Type:       t,
		Value:      value,
		Unit:       unit,
		Timestamp:  time.Now(),
		Additional: additional,
		IsCritical: models.IsCriticalValue(t, value),
	}
}
