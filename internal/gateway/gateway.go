// Package gateway 定义核心消费的外部协作者接口
//
// 核心不直接依赖任何播报/通知实现，协作者在构造时显式注入。
package gateway

import (
	"context"

	"pulseguard/internal/models"
)

// Priority 播报优先级，高优先级打断低优先级播报
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityEmergency
)

// String 返回优先级名称
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// PriorityForSeverity 按报警级别映射播报优先级
func PriorityForSeverity(s models.Severity) Priority {
	switch s {
	case models.SeverityEmergency:
		return PriorityEmergency
	case models.SeverityCritical:
		return PriorityHigh
	case models.SeverityWarning:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Announcer 语音播报接口
type Announcer interface {
	Speak(text string, priority Priority)
}

// HapticFeedback 触觉反馈接口
type HapticFeedback interface {
	Notify(kind string)
}

// Coordinate 位置坐标
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationProvider 位置提供者接口
type LocationProvider interface {
	CurrentLocation() *Coordinate // 不可用时返回 nil
}

// CaregiverGateway 照护者通知网关接口
// 投递失败由网关侧重试，核心只记录日志，不同步重试
type CaregiverGateway interface {
	SendAlert(ctx context.Context, condition *models.EmergencyCondition, alert *models.HealthAlert, location *Coordinate) error
}
