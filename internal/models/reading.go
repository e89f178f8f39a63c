package models

import (
	"time"
)

// ReadingType 读数类型
type ReadingType string

const (
	ReadingBloodGlucose     ReadingType = "bloodGlucose"
	ReadingHeartRate        ReadingType = "heartRate"
	ReadingBloodPressure    ReadingType = "bloodPressure"
	ReadingTemperature      ReadingType = "temperature"
	ReadingOxygenSaturation ReadingType = "oxygenSaturation"
	ReadingMovement         ReadingType = "movement"
)

// Trend 读数趋势
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// HealthReading 健康读数（解析后不可变）
type HealthReading struct {
	ID         string             `json:"reading_id"`
	DeviceID   string             `json:"device_id"`
	Type       ReadingType        `json:"type"`
	Value      float64            `json:"value"`
	Unit       string             `json:"unit"`
	Timestamp  time.Time          `json:"timestamp"`
	Trend      *Trend             `json:"trend,omitempty"`
	Additional map[string]float64 `json:"additional,omitempty"` // 附加值（如 systolic/diastolic）
	IsCritical bool               `json:"is_critical"`
}

// IsCriticalValue 按固定生理边界判断读数是否危急
// 血糖 <70 或 >250 mg/dL；心率 <50 或 >120 bpm；血氧 <90%
func IsCriticalValue(t ReadingType, value float64) bool {
	switch t {
	case ReadingBloodGlucose:
		return value < 70 || value > 250
	case ReadingHeartRate:
		return value < 50 || value > 120
	case ReadingOxygenSaturation:
		return value < 90
	default:
		return false
	}
}
