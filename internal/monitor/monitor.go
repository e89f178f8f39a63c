// Package monitor 是遥测到升级流水线的编排核心
//
// 读数与连接事件异步到达，但全部先汇入单一处理循环再触碰共享状态
// （读数缓冲、报警历史、抑制表）。设备 I/O 和负载解析可以在其它
// goroutine 执行，但必须经由任务队列交接。
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pulseguard/internal/config"
	"pulseguard/internal/devicelink"
	"pulseguard/internal/escalation"
	"pulseguard/internal/gateway"
	"pulseguard/internal/models"
	"pulseguard/internal/parser"
	"pulseguard/internal/repository"
	"pulseguard/internal/rules"
	"pulseguard/internal/storage"
	"pulseguard/internal/suppression"
)

// Monitor 健康监测核心
type Monitor struct {
	config     *config.Config
	linkMgr    *devicelink.Manager
	parser     *parser.Parser
	engine     *rules.Engine
	suppressor *suppression.Manager
	escalator  *escalation.Machine
	announcer  gateway.Announcer

	store      *storage.Store               // 可为 nil
	cache      *VitalsCache                 // 可为 nil
	alertsRepo *repository.AlertsRepository // 可为 nil
	events     *EventPublisher

	// 以下状态只在 Run 循环中访问
	history      *ReadingHistory
	alertHistory []*models.HealthAlert
	activeAlerts map[string]*models.HealthAlert

	builder *rules.AlertBuilder
	tasks   chan func()
	stopped chan struct{} // Run 退出时关闭
	logger  *zap.Logger
}

// NewMonitor 创建监测核心
func NewMonitor(
	cfg *config.Config,
	linkMgr *devicelink.Manager,
	readingParser *parser.Parser,
	engine *rules.Engine,
	suppressor *suppression.Manager,
	escalator *escalation.Machine,
	announcer gateway.Announcer,
	store *storage.Store,
	cache *VitalsCache,
	alertsRepo *repository.AlertsRepository,
	events *EventPublisher,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:       cfg,
		linkMgr:      linkMgr,
		parser:       readingParser,
		engine:       engine,
		suppressor:   suppressor,
		escalator:    escalator,
		announcer:    announcer,
		store:        store,
		cache:        cache,
		alertsRepo:   alertsRepo,
		events:       events,
		history:      NewReadingHistory(cfg.Monitor.HistorySize),
		activeAlerts: make(map[string]*models.HealthAlert),
		builder:      rules.NewAlertBuilder(),
		tasks:        make(chan func(), 64),
		stopped:      make(chan struct{}),
		logger:       logger,
	}
}

// Run 运行序列化处理循环，阻塞到 ctx 取消
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.stopped)

	m.logger.Info("Monitor started",
		zap.String("profile", string(m.engine.Profile())),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopped")
			return nil
		case ev := <-m.linkMgr.Events():
			m.handleLinkEvent(ev)
		case task := <-m.tasks:
			task()
		}
	}
}

// do 将操作提交到处理循环并等待完成
// 循环已停止时直接返回，调用方拿到零值结果，不会永久阻塞
func (m *Monitor) do(fn func()) {
	done := make(chan struct{})
	select {
	case m.tasks <- func() {
		fn()
		close(done)
	}:
	case <-m.stopped:
		return
	}
	select {
	case <-done:
	case <-m.stopped:
	}
}

// handleLinkEvent 处理设备链路事件
func (m *Monitor) handleLinkEvent(ev devicelink.Event) {
	switch ev.Type {
	case devicelink.EventReadingReceived:
		reading, err := m.parser.Parse(ev.Device.ID, ev.Char, ev.Payload)
		if err != nil {
			// 畸形负载已丢弃并记录，数据流继续
			parseFailuresTotal.Inc()
			return
		}
		m.processReading(reading)

	case devicelink.EventDeviceConnected:
		m.events.Publish(EventDeviceConnected, ev.Device)

	case devicelink.EventDeviceDisconnected, devicelink.EventDeviceRemoved:
		m.events.Publish(EventDeviceDisconnected, ev.Device)

	case devicelink.EventDeviceStale:
		alert := m.builder.Build(
			models.AlertDeviceStale,
			models.SeverityInfo,
			fmt.Sprintf("No recent data from %s. Check the device connection.", ev.Device.Name),
			nil,
			map[string]interface{}{"device_id": ev.Device.ID},
		)
		m.admitAlert(alert)
	}
}

// processReading 处理一条解析后的读数
func (m *Monitor) processReading(reading *models.HealthReading) {
	m.history.Add(reading)
	readingsTotal.WithLabelValues(string(reading.Type)).Inc()

	// 持久化与缓存更新异步执行，失败记录日志，不阻塞流水线
	if m.store != nil {
		go func() {
			if err := m.store.SaveReading(context.Background(), reading); err != nil {
				m.logger.Error("Failed to persist reading",
					zap.String("reading_id", reading.ID),
					zap.Error(err),
				)
			}
		}()
	}
	if m.cache != nil {
		go func() {
			if err := m.cache.UpdateVitals(context.Background(), reading); err != nil {
				m.logger.Error("Failed to update vitals cache",
					zap.String("device_id", reading.DeviceID),
					zap.Error(err),
				)
			}
		}()
	}

	candidates := m.engine.ProcessReading(reading, m.history.Recent())
	for _, candidate := range candidates {
		m.admitAlert(candidate)
	}
}

// admitAlert 将候选报警送入抑制层，决定是否播报/升级
// 无论是否被抑制，报警都记入历史并落库
func (m *Monitor) admitAlert(alert *models.HealthAlert) {
	m.recordHistory(alert)
	alertsTotal.WithLabelValues(alert.Severity.String()).Inc()

	suppressed, reason := m.suppressor.ShouldSuppress(alert, m.alertHistory)

	if m.alertsRepo != nil {
		alertCopy := *alert
		go func() {
			if err := m.alertsRepo.InsertAlert(context.Background(), &alertCopy, suppressed, reason); err != nil {
				m.logger.Error("Failed to persist alert",
					zap.String("alert_id", alertCopy.ID),
					zap.Error(err),
				)
			}
		}()
	}

	if suppressed {
		alertsSuppressedTotal.WithLabelValues(reason).Inc()
		return
	}

	m.suppressor.RecordAlert(alert.Type, alert.Timestamp)
	m.activeAlerts[alert.ID] = alert
	m.events.Publish(EventAlertTriggered, alert)
	m.announcer.Speak(alert.Message, gateway.PriorityForSeverity(alert.Severity))

	if alert.Severity == models.SeverityEmergency {
		if cond := conditionForAlert(alert); cond != nil {
			escalationsTotal.Inc()
			m.escalator.Trigger(*cond, alert.Reading)
		}
	}
}

// recordHistory 报警历史有界保留
func (m *Monitor) recordHistory(alert *models.HealthAlert) {
	m.alertHistory = append(m.alertHistory, alert)
	if max := m.config.Monitor.AlertHistory; max > 0 && len(m.alertHistory) > max {
		m.alertHistory = m.alertHistory[len(m.alertHistory)-max:]
	}
}

// conditionForAlert 将 emergency 级报警映射为紧急状况
func conditionForAlert(alert *models.HealthAlert) *models.EmergencyCondition {
	switch alert.Type {
	case models.AlertSevereHypoglycemia:
		return &models.EmergencyCondition{
			Type:         models.ConditionSevereHypoglycemia,
			Severity:     alert.Severity,
			Description:  alert.Message,
			VoiceMessage: alert.Message,
			RequiredActions: []models.EmergencyAction{
				models.ActionNotifyCaregiver,
				models.ActionPlayAlarm,
				models.ActionProvideInstructions,
				models.ActionStartWellnessCheck,
			},
		}
	default:
		return &models.EmergencyCondition{
			Type:         models.ConditionCardiacEvent,
			Severity:     alert.Severity,
			Description:  alert.Message,
			VoiceMessage: alert.Message,
			RequiredActions: []models.EmergencyAction{
				models.ActionNotifyCaregiver,
				models.ActionStartWellnessCheck,
			},
		}
	}
}

// ============================================
// 命令面（公共操作，全部经由处理循环序列化）
// ============================================

// ReportEmergencyCondition 接收外部来源的紧急状况（如跌倒检测）
func (m *Monitor) ReportEmergencyCondition(cond models.EmergencyCondition, reading *models.HealthReading) {
	escalationsTotal.Inc()
	m.escalator.Trigger(cond, reading)
}

// ActivateManualEmergency 手动激活紧急模式
func (m *Monitor) ActivateManualEmergency() {
	m.ReportEmergencyCondition(models.EmergencyCondition{
		Type:         models.ConditionManualActivation,
		Severity:     models.SeverityEmergency,
		Description:  "Manual emergency activation",
		VoiceMessage: "Emergency mode activated. Notifying your caregiver.",
		RequiredActions: []models.EmergencyAction{
			models.ActionNotifyCaregiver,
			models.ActionPlayAlarm,
			models.ActionStartWellnessCheck,
		},
	}, nil)
}

// GetActiveAlerts 查询活跃报警副本
func (m *Monitor) GetActiveAlerts() []*models.HealthAlert {
	var result []*models.HealthAlert
	m.do(func() {
		result = make([]*models.HealthAlert, 0, len(m.activeAlerts))
		for _, a := range m.activeAlerts {
			alertCopy := *a
			result = append(result, &alertCopy)
		}
	})
	return result
}

// GetActiveAlertsSummary 生成活跃报警的口头摘要
func (m *Monitor) GetActiveAlertsSummary() string {
	alerts := m.GetActiveAlerts()
	if len(alerts) == 0 {
		return "No active health alerts. Everything looks normal."
	}

	var parts []string
	for _, a := range alerts {
		parts = append(parts, a.Message)
	}
	return fmt.Sprintf("You have %d active alerts. %s", len(alerts), strings.Join(parts, " "))
}

// AcknowledgeAlert 确认报警
func (m *Monitor) AcknowledgeAlert(alertID string) bool {
	var ok bool
	m.do(func() {
		alert, found := m.activeAlerts[alertID]
		if !found {
			return
		}
		now := time.Now()
		alert.Acknowledged = true
		alert.AcknowledgedAt = &now
		ok = true

		if m.alertsRepo != nil {
			go func() {
				if err := m.alertsRepo.MarkAcknowledged(context.Background(), alertID, now); err != nil {
					m.logger.Error("Failed to persist alert acknowledgement",
						zap.String("alert_id", alertID),
						zap.Error(err),
					)
				}
			}()
		}
	})
	return ok
}

// DismissAlert 撤销报警（移出活跃列表，历史保留）
func (m *Monitor) DismissAlert(alertID string) bool {
	var ok bool
	m.do(func() {
		if _, found := m.activeAlerts[alertID]; found {
			delete(m.activeAlerts, alertID)
			ok = true
		}
	})
	return ok
}

// SnoozeAlert 静默报警所属类型
func (m *Monitor) SnoozeAlert(alertID string, d time.Duration) bool {
	var ok bool
	m.do(func() {
		alert, found := m.activeAlerts[alertID]
		if !found {
			return
		}
		m.suppressor.Snooze(alert.Type, d)
		delete(m.activeAlerts, alertID)
		ok = true
	})
	return ok
}

// GetEscalationStatus 查询活跃升级会话
func (m *Monitor) GetEscalationStatus() []*models.EmergencyEscalation {
	return m.escalator.Active()
}

// SetProfile 切换健康档案（阈值重算，规则集重建）
// 档案名无效时回退默认档案并返回错误，调用方需向用户提示
func (m *Monitor) SetProfile(profile string) error {
	var err error
	m.do(func() {
		err = m.engine.SetProfile(profile)
	})
	return err
}
