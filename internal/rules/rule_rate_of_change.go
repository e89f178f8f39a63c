package rules

import (
	"fmt"
	"math"
	"time"

	"pulseguard/internal/models"
)

// RateOfChangeRule 变化率规则：同类型读数在尾随时间窗口内绝对变化超过固定量
// 如 15 分钟内变化 >50 单位 ⇒ warning
type RateOfChangeRule struct {
	builder   *AlertBuilder
	windowSec int64
	delta     float64
}

// NewRateOfChangeRule 创建变化率规则
func NewRateOfChangeRule(builder *AlertBuilder, windowSec int64, delta float64) *RateOfChangeRule {
	return &RateOfChangeRule{
		builder:   builder,
		windowSec: windowSec,
		delta:     delta,
	}
}

// Name 规则名称
func (r *RateOfChangeRule) Name() string {
	return "rate_of_change"
}

// Evaluate 评估变化率规则
// 与窗口内最早的同类型读数比较
func (r *RateOfChangeRule) Evaluate(reading *models.HealthReading, history []*models.HealthReading, _ *AlertThresholds) (*models.HealthAlert, error) {
	cutoff := reading.Timestamp.Add(-time.Duration(r.windowSec) * time.Second)

	var earliest *models.HealthReading
	for _, h := range history {
		if h.ID == reading.ID || h.Type != reading.Type {
			continue
		}
		if h.Timestamp.Before(cutoff) {
			continue
		}
		if earliest == nil || h.Timestamp.Before(earliest.Timestamp) {
			earliest = h
		}
	}

	if earliest == nil {
		return nil, nil
	}

	change := math.Abs(reading.Value - earliest.Value)
	if change <= r.delta {
		return nil, nil
	}

	return r.builder.Build(
		models.AlertRapidChange,
		models.SeverityWarning,
		fmt.Sprintf("Rapid %s change: %.0f %s within %d minutes.",
			reading.Type, change, reading.Unit, r.windowSec/60),
		reading,
		map[string]interface{}{
			"change":     change,
			"window_sec": r.windowSec,
			"from_value": earliest.Value,
		},
	), nil
}
