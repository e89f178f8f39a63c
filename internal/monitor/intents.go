package monitor

import (
	"strings"
	"time"

	"pulseguard/internal/models"
)

// HandleVoiceIntent 处理纯文本语音意图，返回口头回应
//
// 路由顺序：
// 1. 活跃升级会话优先消费（健康确认/求救短语）
// 2. 紧急激活意图
// 3. 报警查询/确认/静默意图
func (m *Monitor) HandleVoiceIntent(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "Sorry, I didn't catch that."
	}

	// 等待响应的升级会话优先处理
	if m.escalator.HandleUserResponse(normalized) {
		return "Thank you. Your response has been recorded."
	}

	switch {
	case strings.Contains(normalized, "emergency") || strings.Contains(normalized, "help me"):
		m.ActivateManualEmergency()
		return "Emergency mode activated. Help is on the way."

	case strings.Contains(normalized, "alert") || strings.Contains(normalized, "how am i"):
		return m.GetActiveAlertsSummary()

	case strings.Contains(normalized, "acknowledge"):
		if alert := m.newestActiveAlert(); alert != nil {
			m.AcknowledgeAlert(alert.ID)
			return "Alert acknowledged."
		}
		return "There are no active alerts to acknowledge."

	case strings.Contains(normalized, "dismiss"):
		if alert := m.newestActiveAlert(); alert != nil {
			m.DismissAlert(alert.ID)
			return "Alert dismissed."
		}
		return "There are no active alerts to dismiss."

	case strings.Contains(normalized, "snooze"):
		if alert := m.newestActiveAlert(); alert != nil {
			m.SnoozeAlert(alert.ID, 30*time.Minute)
			return "Alert snoozed for 30 minutes."
		}
		return "There are no active alerts to snooze."

	default:
		return "Sorry, I didn't understand that."
	}
}

// newestActiveAlert 返回最新的活跃报警
func (m *Monitor) newestActiveAlert() *models.HealthAlert {
	alerts := m.GetActiveAlerts()
	if len(alerts) == 0 {
		return nil
	}

	newest := alerts[0]
	for _, a := range alerts[1:] {
		if a.Timestamp.After(newest.Timestamp) {
			newest = a
		}
	}
	return newest
}
