package rules

import (
	"fmt"
	"time"

	"pulseguard/internal/models"
)

// CompoundRule 复合规则：尾随窗口内出现 ≥2 条各自危急的读数（任意类型）
// 时合成一条 critical 报警，引用最新读数
type CompoundRule struct {
	builder   *AlertBuilder
	windowSec int64
}

// NewCompoundRule 创建复合规则
func NewCompoundRule(builder *AlertBuilder, windowSec int64) *CompoundRule {
	return &CompoundRule{
		builder:   builder,
		windowSec: windowSec,
	}
}

// Name 规则名称
func (r *CompoundRule) Name() string {
	return "compound"
}

// Evaluate 评估复合规则
// 仅当当前读数危急且窗口内存在另一条危急读数时触发
func (r *CompoundRule) Evaluate(reading *models.HealthReading, history []*models.HealthReading, _ *AlertThresholds) (*models.HealthAlert, error) {
	if !reading.IsCritical {
		return nil, nil
	}

	cutoff := reading.Timestamp.Add(-time.Duration(r.windowSec) * time.Second)

	var others []string
	for _, h := range history {
		if h.ID == reading.ID || !h.IsCritical {
			continue
		}
		if h.Timestamp.Before(cutoff) {
			continue
		}
		others = append(others, string(h.Type))
	}

	if len(others) == 0 {
		return nil, nil
	}

	return r.builder.Build(
		models.AlertCompoundCritical,
		models.SeverityCritical,
		fmt.Sprintf("Multiple critical readings within %d minutes: %s and %s.",
			r.windowSec/60, others[0], reading.Type),
		reading,
		map[string]interface{}{
			"critical_count": len(others) + 1,
			"window_sec":     r.windowSec,
		},
	), nil
}
