package rules

import (
	"fmt"
	"sort"
	"time"

	"pulseguard/internal/models"
)

// 清晨时段（本地小时，[start, end)）
const (
	morningStartHour = 4
	morningEndHour   = 8
)

// PatternRule 模式规则：检测同类型读数在有界近期窗口内的重复形态
// 当前实现检测清晨时段的单调上升（血糖黎明现象），仅产生 info 级提示，
// 本身不可执行动作
type PatternRule struct {
	builder *AlertBuilder
}

// NewPatternRule 创建模式规则
func NewPatternRule(builder *AlertBuilder) *PatternRule {
	return &PatternRule{builder: builder}
}

// Name 规则名称
func (r *PatternRule) Name() string {
	return "pattern"
}

// Evaluate 评估模式规则
// 条件：最近 3 条同类型读数（含当前）全部位于清晨时段且数值严格单调上升
func (r *PatternRule) Evaluate(reading *models.HealthReading, history []*models.HealthReading, _ *AlertThresholds) (*models.HealthAlert, error) {
	if !inMorningWindow(reading.Timestamp) {
		return nil, nil
	}

	// 收集同类型历史读数（不含当前），按时间排序
	var sameType []*models.HealthReading
	for _, h := range history {
		if h.ID == reading.ID || h.Type != reading.Type {
			continue
		}
		sameType = append(sameType, h)
	}
	if len(sameType) < 2 {
		return nil, nil
	}
	sort.Slice(sameType, func(i, j int) bool {
		return sameType[i].Timestamp.Before(sameType[j].Timestamp)
	})

	// 取最近 2 条 + 当前读数构成形态
	recent := append(sameType[len(sameType)-2:], reading)
	for i, h := range recent {
		if !inMorningWindow(h.Timestamp) {
			return nil, nil
		}
		if i > 0 && h.Value <= recent[i-1].Value {
			return nil, nil
		}
	}

	return r.builder.Build(
		models.AlertMorningPattern,
		models.SeverityInfo,
		fmt.Sprintf("Rising early-morning %s pattern detected (%.0f → %.0f %s).",
			reading.Type, recent[0].Value, reading.Value, reading.Unit),
		reading,
		map[string]interface{}{
			"sample_count": len(recent),
		},
	), nil
}

func inMorningWindow(t time.Time) bool {
	h := t.Local().Hour()
	return h >= morningStartHour && h < morningEndHour
}
