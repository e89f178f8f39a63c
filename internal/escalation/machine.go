// Package escalation 实现紧急升级状态机
//
// 状态流转：Idle → Pending → WaitingForResponse → {Resolved | Escalated} → Idle
//
// 并发约束：每种状况类型最多一个活跃会话；同类型新状况合并进现有会话，
// 更高级别的状况抢占（取消当前定时器，以新级别重新进入 Pending）。
// 定时器必须对 cancel 后触发的竞态幂等（代数计数器保护）。
package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulseguard/internal/gateway"
	"pulseguard/internal/models"
)

// EventSink 状态机对外事件回调（EmergencyActivated / EmergencyResolved）
type EventSink func(eventType string, esc *models.EmergencyEscalation)

// 对外事件类型
const (
	EventEmergencyActivated = "EmergencyActivated"
	EventEmergencyResolved  = "EmergencyResolved"
)

type session struct {
	esc               *models.EmergencyEscalation
	timer             *time.Timer
	gen               uint64 // 定时器代数，cancel 时递增使旧定时器失效
	caregiverNotified bool
}

// Machine 紧急升级状态机
type Machine struct {
	mu       sync.Mutex
	sessions map[models.ConditionType]*session

	announcer gateway.Announcer
	haptic    gateway.HapticFeedback
	caregiver gateway.CaregiverGateway
	location  gateway.LocationProvider
	snapshots *StateStore // 可为 nil（无快照存储时不落 Redis）

	responseTimeout time.Duration
	onEvent         EventSink
	logger          *zap.Logger
}

// NewMachine 创建升级状态机
func NewMachine(
	announcer gateway.Announcer,
	haptic gateway.HapticFeedback,
	caregiver gateway.CaregiverGateway,
	location gateway.LocationProvider,
	snapshots *StateStore,
	responseTimeout time.Duration,
	onEvent EventSink,
	logger *zap.Logger,
) *Machine {
	if responseTimeout <= 0 {
		responseTimeout = 60 * time.Second
	}
	return &Machine{
		sessions:        make(map[models.ConditionType]*session),
		announcer:       announcer,
		haptic:          haptic,
		caregiver:       caregiver,
		location:        location,
		snapshots:       snapshots,
		responseTimeout: responseTimeout,
		onEvent:         onEvent,
		logger:          logger,
	}
}

// Trigger 接收一条紧急状况（来自规则引擎、外部跌倒检测或手动激活）
// 返回当前会话。同类型合并，更高级别抢占
func (m *Machine) Trigger(condition models.EmergencyCondition, reading *models.HealthReading) *models.EmergencyEscalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[condition.Type]; ok {
		if condition.Severity > existing.esc.Condition.Severity {
			return m.preempt(existing, condition, reading)
		}
		// 同类型合并：不重复通知照护者
		m.logger.Info("Coalesced emergency condition into active session",
			zap.String("condition_type", string(condition.Type)),
			zap.String("escalation_id", existing.esc.ID),
		)
		return existing.esc
	}

	esc := &models.EmergencyEscalation{
		ID:        uuid.New().String(),
		Condition: condition,
		Reading:   reading,
		StartedAt: time.Now(),
		Status:    models.EscalationPending,
	}
	s := &session{esc: esc}
	m.sessions[condition.Type] = s

	m.logger.Warn("Emergency escalation started",
		zap.String("escalation_id", esc.ID),
		zap.String("condition_type", string(condition.Type)),
		zap.String("severity", condition.Severity.String()),
	)

	// 立即高优先级播报 + 触觉提示
	m.announcer.Speak(condition.VoiceMessage, gateway.PriorityEmergency)
	m.haptic.Notify("emergency")

	if m.onEvent != nil {
		m.onEvent(EventEmergencyActivated, esc)
	}
	m.saveSnapshot(esc)

	if condition.RequiresAction(models.ActionStartWellnessCheck) {
		m.armWellnessCheck(s)
	} else {
		// 无健康确认流程的状况直接升级
		m.escalateLocked(s)
	}

	return esc
}

// preempt 更高级别状况抢占现有会话（调用方持锁）
func (m *Machine) preempt(s *session, condition models.EmergencyCondition, reading *models.HealthReading) *models.EmergencyEscalation {
	m.logger.Warn("Emergency session preempted by higher severity",
		zap.String("escalation_id", s.esc.ID),
		zap.String("old_severity", s.esc.Condition.Severity.String()),
		zap.String("new_severity", condition.Severity.String()),
	)

	m.cancelTimer(s)
	s.esc.Condition = condition
	if reading != nil {
		s.esc.Reading = reading
	}
	s.esc.Status = models.EscalationPending

	m.announcer.Speak(condition.VoiceMessage, gateway.PriorityEmergency)
	m.haptic.Notify("emergency")
	m.saveSnapshot(s.esc)

	if condition.RequiresAction(models.ActionStartWellnessCheck) {
		m.armWellnessCheck(s)
	} else {
		m.escalateLocked(s)
	}

	return s.esc
}

// armWellnessCheck 进入 WaitingForResponse 并启动响应定时器（调用方持锁）
func (m *Machine) armWellnessCheck(s *session) {
	s.esc.Status = models.EscalationWaitingForResponse
	s.gen++
	gen := s.gen
	condType := s.esc.Condition.Type

	m.announcer.Speak("Are you okay? Please respond within one minute.", gateway.PriorityEmergency)

	s.timer = time.AfterFunc(m.responseTimeout, func() {
		m.onWellnessTimeout(condType, gen)
	})
	m.saveSnapshot(s.esc)

	m.logger.Info("Wellness check timer armed",
		zap.String("escalation_id", s.esc.ID),
		zap.Duration("timeout", m.responseTimeout),
	)
}

// onWellnessTimeout 响应定时器到期
// 代数检查保证 cancel 后触发的定时器不会再次升级
func (m *Machine) onWellnessTimeout(condType models.ConditionType, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[condType]
	if !ok || s.gen != gen || s.esc.Status != models.EscalationWaitingForResponse {
		return
	}

	m.logger.Warn("Wellness check timed out, escalating",
		zap.String("escalation_id", s.esc.ID),
	)
	m.escalateLocked(s)
}

// HandleUserResponse 处理用户的口头响应
// 确认短语在定时器到期前解除会话；求救短语立即升级
// 返回是否有会话消费了该响应
func (m *Machine) HandleUserResponse(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.esc.Status != models.EscalationWaitingForResponse {
			continue
		}

		if IsDistress(text) {
			m.logger.Warn("Distress phrase detected",
				zap.String("escalation_id", s.esc.ID),
			)
			m.escalateLocked(s)
			return true
		}

		if IsConfirmation(text) {
			m.resolveLocked(s, "user")
			return true
		}
	}

	return false
}

// escalateLocked 升级会话：通知照护者，必要时播报急救服务（调用方持锁）
// 投递失败只记录日志，状态机乐观推进
func (m *Machine) escalateLocked(s *session) {
	m.cancelTimer(s)
	s.esc.Status = models.EscalationEscalated

	cond := s.esc.Condition

	if cond.RequiresAction(models.ActionNotifyCaregiver) && !s.caregiverNotified {
		s.caregiverNotified = true

		var loc *gateway.Coordinate
		if m.location != nil {
			loc = m.location.CurrentLocation()
		}

		condCopy := cond
		go func() {
			if err := m.caregiver.SendAlert(context.Background(), &condCopy, nil, loc); err != nil {
				m.logger.Error("Caregiver notification delivery failed",
					zap.String("condition_type", string(condCopy.Type)),
					zap.Error(err),
				)
			}
		}()
	}

	if cond.RequiresAction(models.ActionCallEmergencyServices) {
		m.announcer.Speak("Emergency services have been notified.", gateway.PriorityEmergency)
	} else {
		m.announcer.Speak("Your caregiver has been notified.", gateway.PriorityHigh)
	}

	m.saveSnapshot(s.esc)

	m.logger.Warn("Emergency escalated",
		zap.String("escalation_id", s.esc.ID),
		zap.String("condition_type", string(cond.Type)),
	)
}

// Resolve 显式解除会话（照护者确认后自动调用，或手动调用）
func (m *Machine) Resolve(condType models.ConditionType, responderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[condType]
	if !ok {
		return false
	}

	m.resolveLocked(s, responderID)
	return true
}

// resolveLocked 解除会话并回到 Idle（调用方持锁）
func (m *Machine) resolveLocked(s *session, responderID string) {
	m.cancelTimer(s)

	now := time.Now()
	s.esc.Status = models.EscalationResolved
	s.esc.ResponderID = responderID
	s.esc.ResponseAt = &now

	m.announcer.Speak("Emergency resolved. Glad you're okay.", gateway.PriorityHigh)

	if m.onEvent != nil {
		m.onEvent(EventEmergencyResolved, s.esc)
	}
	m.deleteSnapshot(s.esc.Condition.Type)

	delete(m.sessions, s.esc.Condition.Type)

	m.logger.Info("Emergency escalation resolved",
		zap.String("escalation_id", s.esc.ID),
		zap.String("responder_id", responderID),
	)
}

// Status 查询某状况类型的会话状态（无会话时返回 nil）
func (m *Machine) Status(condType models.ConditionType) *models.EmergencyEscalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[condType]; ok {
		escCopy := *s.esc
		return &escCopy
	}
	return nil
}

// Active 返回所有活跃会话的副本
func (m *Machine) Active() []*models.EmergencyEscalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.EmergencyEscalation, 0, len(m.sessions))
	for _, s := range m.sessions {
		escCopy := *s.esc
		result = append(result, &escCopy)
	}
	return result
}

// cancelTimer 取消会话定时器并递增代数（调用方持锁）
func (m *Machine) cancelTimer(s *session) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// saveSnapshot 异步保存会话快照，失败只记录日志
func (m *Machine) saveSnapshot(esc *models.EmergencyEscalation) {
	if m.snapshots == nil {
		return
	}
	escCopy := *esc
	go func() {
		if err := m.snapshots.Save(context.Background(), &escCopy); err != nil {
			m.logger.Error("Failed to save escalation snapshot", zap.Error(err))
		}
	}()
}

// deleteSnapshot 异步删除会话快照
func (m *Machine) deleteSnapshot(condType models.ConditionType) {
	if m.snapshots == nil {
		return
	}
	go func() {
		if err := m.snapshots.Delete(context.Background(), condType); err != nil {
			m.logger.Error("Failed to delete escalation snapshot", zap.Error(err))
		}
	}()
}
