package models

import (
	"time"
)

// DeviceType 设备类型
type DeviceType string

const (
	DeviceGlucoseMonitor DeviceType = "GlucoseMonitor" // 连续血糖仪
	DeviceHeartMonitor   DeviceType = "HeartMonitor"   // 心率带/手环
	DeviceBloodPressure  DeviceType = "BloodPressure"  // 血压计
	DevicePulseOximeter  DeviceType = "PulseOximeter"  // 血氧仪
	DeviceThermometer    DeviceType = "Thermometer"    // 体温计
	DeviceMotionSensor   DeviceType = "MotionSensor"   // 运动/跌倒传感器
)

// ConnectionState 设备连接状态
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateFailed       ConnectionState = "failed"
)

// Device 已配对设备
type Device struct {
	ID                 string          `json:"device_id"`
	Name               string          `json:"name"`
	Type               DeviceType      `json:"type"`
	State              ConnectionState `json:"state"`
	LastReadingAt      *time.Time      `json:"last_reading_at,omitempty"`
	MaxReadingInterval time.Duration   `json:"max_reading_interval"`
	BatteryLevel       int             `json:"battery_level"` // 百分比，-1 表示未知
}

// DefaultReadingInterval 按设备类型返回最大读数间隔
// 超过该间隔未收到读数视为设备数据过期
func DefaultReadingInterval(t DeviceType) time.Duration {
	switch t {
	case DeviceGlucoseMonitor:
		return 10 * time.Minute
	case DeviceHeartMonitor:
		return 2 * time.Minute
	case DevicePulseOximeter:
		return 5 * time.Minute
	case DeviceBloodPressure:
		return 12 * time.Hour
	case DeviceThermometer:
		return 1 * time.Hour
	case DeviceMotionSensor:
		return 5 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// IsStale 判断设备读数是否过期
func (d *Device) IsStale(now time.Time) bool {
	if d.LastReadingAt == nil {
		return false
	}
	return now.Sub(*d.LastReadingAt) > d.MaxReadingInterval
}
