package models

import (
	"time"
)

// Severity 报警级别（全序：info < warning < critical < emergency）
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityEmergency
)

// String 返回级别名称
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// ParseSeverity 解析级别名称
func ParseSeverity(s string) Severity {
	switch s {
	case "warning":
		return SeverityWarning
	case "critical":
		return SeverityCritical
	case "emergency":
		return SeverityEmergency
	default:
		return SeverityInfo
	}
}

// AlertType 报警类型
type AlertType string

const (
	AlertSevereHypoglycemia  AlertType = "severeHypoglycemia"
	AlertHypoglycemia        AlertType = "hypoglycemia"
	AlertHyperglycemia       AlertType = "hyperglycemia"
	AlertSevereHyperglycemia AlertType = "severeHyperglycemia"
	AlertLowHeartRate        AlertType = "lowHeartRate"
	AlertHighHeartRate       AlertType = "highHeartRate"
	AlertHighBloodPressure   AlertType = "highBloodPressure"
	AlertLowOxygen           AlertType = "lowOxygen"
	AlertFever               AlertType = "fever"
	AlertRapidChange         AlertType = "rapidChange"
	AlertMorningPattern      AlertType = "morningPattern"
	AlertCompoundCritical    AlertType = "compoundCritical"
	AlertDeviceStale         AlertType = "deviceStale"
)

// HealthAlert 健康报警
type HealthAlert struct {
	ID             string                 `json:"alert_id"`
	Type           AlertType              `json:"type"`
	Severity       Severity               `json:"severity"`
	Message        string                 `json:"message"`
	Reading        *HealthReading         `json:"reading,omitempty"` // 触发读数
	Timestamp      time.Time              `json:"timestamp"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Acknowledged   bool                   `json:"acknowledged"`
	AcknowledgedAt *time.Time             `json:"acknowledged_at,omitempty"`
}
