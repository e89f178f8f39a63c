package models

import (
	"time"
)

// ConditionType 紧急状况类型
type ConditionType string

const (
	ConditionSevereHypoglycemia ConditionType = "severeHypoglycemia"
	ConditionCardiacEvent       ConditionType = "cardiacEvent"
	ConditionLowOxygen          ConditionType = "lowOxygen"
	ConditionFallDetected       ConditionType = "fallDetected"
	ConditionManualActivation   ConditionType = "manualActivation"
)

// EmergencyAction 紧急状况要求的动作
type EmergencyAction string

const (
	ActionNotifyCaregiver       EmergencyAction = "notifyCaregiver"
	ActionCallEmergencyServices EmergencyAction = "callEmergencyServices"
	ActionPlayAlarm             EmergencyAction = "playAlarm"
	ActionProvideInstructions   EmergencyAction = "provideInstructions"
	ActionStartWellnessCheck    EmergencyAction = "startWellnessCheck"
)

// EmergencyCondition 紧急状况
type EmergencyCondition struct {
	Type            ConditionType     `json:"type"`
	Severity        Severity          `json:"severity"`
	Description     string            `json:"description"`
	VoiceMessage    string            `json:"voice_message"`
	RequiredActions []EmergencyAction `json:"required_actions"`
}

// RequiresAction 检查状况是否要求指定动作
func (c *EmergencyCondition) RequiresAction(a EmergencyAction) bool {
	for _, action := range c.RequiredActions {
		if action == a {
			return true
		}
	}
	return false
}

// EscalationStatus 升级会话状态
type EscalationStatus string

const (
	EscalationPending            EscalationStatus = "pending"
	EscalationWaitingForResponse EscalationStatus = "waitingForResponse"
	EscalationEscalated          EscalationStatus = "escalated"
	EscalationResolved           EscalationStatus = "resolved"
)

// EmergencyEscalation 紧急升级会话
type EmergencyEscalation struct {
	ID          string             `json:"escalation_id"`
	Condition   EmergencyCondition `json:"condition"`
	Reading     *HealthReading     `json:"reading,omitempty"` // 触发读数（可空）
	StartedAt   time.Time          `json:"started_at"`
	Status      EscalationStatus   `json:"status"`
	ResponderID string             `json:"responder_id,omitempty"`
	ResponseAt  *time.Time         `json:"response_at,omitempty"`
}
