// Package suppression 实现报警抑制层，防止报警风暴
//
// 抑制只扣留播报/通知，报警仍然记入历史，每次评估结果都记录日志。
package suppression

import (
	"time"

	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// Config 抑制策略配置
type Config struct {
	NightStartHour    int             // 夜间抑制开始小时（含）
	NightEndHour      int             // 夜间抑制结束小时（不含）
	NightFloor        models.Severity // 夜间不抑制的最低级别
	DuplicateLookback time.Duration   // 重复报警回看窗口
}

// DefaultConfig 默认抑制策略
// 夜间 [22, 06)，critical 及以上不受夜间抑制，重复回看 10 分钟
func DefaultConfig() Config {
	return Config{
		NightStartHour:    22,
		NightEndHour:      6,
		NightFloor:        models.SeverityCritical,
		DuplicateLookback: 10 * time.Minute,
	}
}

// 按级别的最小报警间隔
var severityIntervals = map[models.Severity]time.Duration{
	models.SeverityEmergency: 60 * time.Second,
	models.SeverityCritical:  300 * time.Second,
	models.SeverityWarning:   900 * time.Second,
	models.SeverityInfo:      1800 * time.Second,
}

// Manager 抑制管理器
// 所有方法必须在监测主循环（序列化执行器）中调用，内部状态不加锁
type Manager struct {
	config      Config
	lastAlertAt map[models.AlertType]time.Time // 各类型最近一次报警时间
	snoozes     map[models.AlertType]time.Time // 手动静默的到期时间
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager 创建抑制管理器
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		config:      cfg,
		lastAlertAt: make(map[models.AlertType]time.Time),
		snoozes:     make(map[models.AlertType]time.Time),
		logger:      logger,
		now:         time.Now,
	}
}

// ShouldSuppress 判断候选报警是否应被抑制
// 返回 (是否抑制, 原因)。无论结果如何都记录评估日志
func (m *Manager) ShouldSuppress(candidate *models.HealthAlert, history []*models.HealthAlert) (bool, string) {
	suppress, reason := m.evaluate(candidate, history)

	m.logger.Info("Suppression evaluated",
		zap.String("alert_id", candidate.ID),
		zap.String("alert_type", string(candidate.Type)),
		zap.String("severity", candidate.Severity.String()),
		zap.Bool("suppressed", suppress),
		zap.String("reason", reason),
	)

	return suppress, reason
}

func (m *Manager) evaluate(candidate *models.HealthAlert, history []*models.HealthAlert) (bool, string) {
	now := m.now()

	// (a) 手动静默未到期
	if expiry, ok := m.snoozes[candidate.Type]; ok {
		if now.Before(expiry) {
			return true, "snoozed"
		}
		// 到期的静默惰性清除
		delete(m.snoozes, candidate.Type)
	}

	// (b) 同类型报警间隔低于级别最小间隔
	if last, ok := m.lastAlertAt[candidate.Type]; ok {
		if interval := severityIntervals[candidate.Severity]; now.Sub(last) < interval {
			return true, "interval"
		}
	}

	// (c) 次危急级别的重复报警回看
	// critical/emergency 由级别间隔表单独约束，不做重复抑制
	if candidate.Severity < models.SeverityCritical {
		cutoff := now.Add(-m.config.DuplicateLookback)
		for _, h := range history {
			if h.Type == candidate.Type && h.Timestamp.After(cutoff) {
				return true, "duplicate"
			}
		}
	}

	// (d) 夜间抑制：本地小时处于夜间窗口且级别低于 NightFloor
	if m.inNightWindow(now) && candidate.Severity < m.config.NightFloor {
		return true, "night"
	}

	return false, ""
}

// RecordAlert 记录报警类型的最近触发时间
// 被抑制的报警不记录（抑制不应顺延下一条的间隔起点）
func (m *Manager) RecordAlert(alertType models.AlertType, at time.Time) {
	m.lastAlertAt[alertType] = at
}

// Snooze 手动静默某报警类型
func (m *Manager) Snooze(alertType models.AlertType, d time.Duration) {
	expiry := m.now().Add(d)
	m.snoozes[alertType] = expiry

	m.logger.Info("Alert type snoozed",
		zap.String("alert_type", string(alertType)),
		zap.Time("until", expiry),
	)
}

// inNightWindow 判断时刻是否处于夜间窗口（支持跨零点）
func (m *Manager) inNightWindow(t time.Time) bool {
	h := t.Local().Hour()
	start, end := m.config.NightStartHour, m.config.NightEndHour
	if start <= end {
		return h >= start && h < end
	}
	return h >= start || h < end
}
