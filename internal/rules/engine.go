// Package rules 实现分层报警规则引擎
//
// 四类规则独立评估，每类最多产生一条候选报警：
// 阈值规则、变化率规则、模式规则、复合规则。
// 候选报警在进入活跃列表或升级状态机前必须先经过抑制层。
package rules

import (
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// Rule 报警规则接口
// 对 (当前读数, 近期读数窗口, 阈值档案) 求值，无候选时返回 nil
type Rule interface {
	Name() string
	Evaluate(reading *models.HealthReading, history []*models.HealthReading, th *AlertThresholds) (*models.HealthAlert, error)
}

// Engine 报警规则引擎
type Engine struct {
	profile    Profile
	thresholds *AlertThresholds
	rules      []Rule
	builder    *AlertBuilder
	logger     *zap.Logger

	rateWindow     int64   // 变化率窗口（秒）
	rateDelta      float64 // 变化率阈值
	compoundWindow int64   // 复合窗口（秒）
}

// Option 引擎配置项
type Option func(*Engine)

// WithRateRule 配置变化率规则参数
func WithRateRule(windowSec int64, delta float64) Option {
	return func(e *Engine) {
		e.rateWindow = windowSec
		e.rateDelta = delta
	}
}

// WithCompoundWindow 配置复合规则窗口（秒）
func WithCompoundWindow(windowSec int64) Option {
	return func(e *Engine) {
		e.compoundWindow = windowSec
	}
}

// NewEngine 创建规则引擎
// 档案名无效时回退到 general 档案（记录警告，不中断）
func NewEngine(profileName string, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		builder:        NewAlertBuilder(),
		logger:         logger,
		rateWindow:     15 * 60,
		rateDelta:      50,
		compoundWindow: 30 * 60,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.SetProfile(profileName); err != nil {
		logger.Warn("Invalid health profile, falling back to general",
			zap.String("profile", profileName),
			zap.Error(err),
		)
	}

	return e
}

// SetProfile 切换健康档案并重建规则集
// 阈值重新计算，档案相关规则全部重新生成，旧规则集丢弃
// 档案名无效时返回错误并使用 general 档案（调用方需向用户提示）
func (e *Engine) SetProfile(profileName string) error {
	profile, err := ParseProfile(profileName)

	e.profile = profile
	e.thresholds = ThresholdsForProfile(profile)
	e.rules = []Rule{
		NewThresholdRule(e.builder),
		NewRateOfChangeRule(e.builder, e.rateWindow, e.rateDelta),
		NewPatternRule(e.builder),
		NewCompoundRule(e.builder, e.compoundWindow),
	}

	e.logger.Info("Rule set rebuilt",
		zap.String("profile", string(profile)),
		zap.Int("rule_count", len(e.rules)),
	)

	return err
}

// Profile 返回当前档案
func (e *Engine) Profile() Profile {
	return e.profile
}

// Thresholds 返回当前阈值档案
func (e *Engine) Thresholds() *AlertThresholds {
	return e.thresholds
}

// ProcessReading 评估一条读数，返回候选报警列表
// 每类规则独立评估，单条规则失败记录日志后继续
func (e *Engine) ProcessReading(reading *models.HealthReading, history []*models.HealthReading) []*models.HealthAlert {
	var candidates []*models.HealthAlert

	for _, rule := range e.rules {
		alert, err := rule.Evaluate(reading, history, e.thresholds)
		if err != nil {
			e.logger.Error("Rule evaluation failed",
				zap.String("rule", rule.Name()),
				zap.String("reading_id", reading.ID),
				zap.Error(err),
			)
			continue
		}
		if alert != nil {
			candidates = append(candidates, alert)
		}
	}

	return candidates
}
