package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulseguard/internal/config"
	"pulseguard/internal/devicelink"
	"pulseguard/internal/escalation"
	"pulseguard/internal/gateway"
	"pulseguard/internal/models"
	"pulseguard/internal/parser"
	"pulseguard/internal/rules"
	"pulseguard/internal/suppression"
)

// ==================== 测试替身 ====================

type fakeTransport struct {
	mu     sync.Mutex
	online map[string]bool
	links  map[string]devicelink.DataHandler
	scan   devicelink.AnnounceHandler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		online: make(map[string]bool),
		links:  make(map[string]devicelink.DataHandler),
	}
}

func (f *fakeTransport) StartPresence(devicelink.StatusHandler) error { return nil }

func (f *fakeTransport) StartScan(h devicelink.AnnounceHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scan = h
	return nil
}

func (f *fakeTransport) StopScan() error { return nil }

func (f *fakeTransport) OpenLink(deviceID string, onData devicelink.DataHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online[deviceID] {
		return errors.New("device unreachable")
	}
	f.links[deviceID] = onData
	return nil
}

func (f *fakeTransport) CloseLink(deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, deviceID)
	return nil
}

func (f *fakeTransport) LinkActive(deviceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.links[deviceID]
	return ok && f.online[deviceID]
}

func (f *fakeTransport) Close() {}

func (f *fakeTransport) announceOnline(a devicelink.Announcement) {
	f.mu.Lock()
	f.online[a.DeviceID] = true
	h := f.scan
	f.mu.Unlock()
	if h != nil {
		h(a)
	}
}

func (f *fakeTransport) pushData(deviceID, char string, payload []byte) {
	f.mu.Lock()
	h := f.links[deviceID]
	f.mu.Unlock()
	if h != nil {
		h(deviceID, char, payload)
	}
}

type recordingAnnouncer struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingAnnouncer) Speak(text string, _ gateway.Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
}

func (r *recordingAnnouncer) spoken(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type noopHaptic struct{}

func (noopHaptic) Notify(string) {}

type countingCaregiver struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCaregiver) SendAlert(context.Context, *models.EmergencyCondition, *models.HealthAlert, *gateway.Coordinate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

// ==================== 测试装配 ====================

type testHarness struct {
	monitor   *Monitor
	transport *fakeTransport
	announcer *recordingAnnouncer
	caregiver *countingCaregiver
	cancel    context.CancelFunc
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	cfg := &config.Config{}
	cfg.Monitor.HistorySize = 100
	cfg.Monitor.AlertHistory = 200

	logger := zap.NewNop()
	transport := newFakeTransport()
	linkMgr := devicelink.NewManager(transport, devicelink.Config{
		ScanTimeout:   time.Minute,
		SweepInterval: time.Minute,
		RetryBudget:   3,
	}, logger)
	require.NoError(t, linkMgr.StartScan(devicelink.Filter{}))

	announcer := &recordingAnnouncer{}
	caregiver := &countingCaregiver{}
	engine := rules.NewEngine("general", logger)
	suppressor := suppression.NewManager(suppression.Config{
		NightStartHour:    2,
		NightEndHour:      2, // 空夜间窗口，测试不受本地时间影响
		NightFloor:        models.SeverityCritical,
		DuplicateLookback: 10 * time.Minute,
	}, logger)
	escalator := escalation.NewMachine(announcer, noopHaptic{}, caregiver, nil, nil, time.Minute, nil, logger)
	events := NewEventPublisher(nil, "", logger)

	m := NewMonitor(cfg, linkMgr, parser.NewParser(logger), engine, suppressor, escalator,
		announcer, nil, nil, nil, events, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	t.Cleanup(cancel)

	return &testHarness{
		monitor:   m,
		transport: transport,
		announcer: announcer,
		caregiver: caregiver,
		cancel:    cancel,
	}
}

func (h *testHarness) connectDevice(id string, devType models.DeviceType) {
	h.transport.announceOnline(devicelink.Announcement{
		DeviceID: id,
		Name:     "Test Device",
		Type:     devType,
		Battery:  90,
	})
}

// ==================== 测试 ====================

func TestMonitor_GlucoseEmergencyPipeline(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	// 血糖 55 mg/dL：解析 → 规则引擎 → 抑制层放行 → 播报 + 升级
	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 55, 0})

	require.Eventually(t, func() bool {
		return len(h.monitor.GetActiveAlerts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	alerts := h.monitor.GetActiveAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertSevereHypoglycemia, alerts[0].Type)
	assert.Equal(t, models.SeverityEmergency, alerts[0].Severity)
	assert.True(t, h.announcer.spoken("Severe low blood sugar"))

	// emergency 级报警启动升级会话，进入健康确认等待
	sessions := h.monitor.GetEscalationStatus()
	require.Len(t, sessions, 1)
	assert.Equal(t, models.ConditionSevereHypoglycemia, sessions[0].Condition.Type)
	assert.Equal(t, models.EscalationWaitingForResponse, sessions[0].Status)
}

func TestMonitor_RepeatEmergencySuppressedByInterval(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 55, 0})
	require.Eventually(t, func() bool {
		return len(h.monitor.GetActiveAlerts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// 60 秒间隔内的重复 emergency 被抑制（复合报警独立评估，不计入）
	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 54, 0})

	time.Sleep(100 * time.Millisecond)

	severe := 0
	for _, a := range h.monitor.GetActiveAlerts() {
		if a.Type == models.AlertSevereHypoglycemia {
			severe++
		}
	}
	assert.Equal(t, 1, severe)

	// 升级会话合并，不重复开启
	assert.Len(t, h.monitor.GetEscalationStatus(), 1)
}

func TestMonitor_NormalReadingNoAlert(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 110, 0})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, h.monitor.GetActiveAlerts())
	assert.Empty(t, h.monitor.GetEscalationStatus())
}

func TestMonitor_MalformedPayloadDiscarded(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	// 截断负载：丢弃，流水线继续工作
	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00})
	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 55, 0})

	require.Eventually(t, func() bool {
		return len(h.monitor.GetActiveAlerts()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitor_VoiceConfirmationResolvesEscalation(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 55, 0})
	require.Eventually(t, func() bool {
		return len(h.monitor.GetEscalationStatus()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	response := h.monitor.HandleVoiceIntent("I'm okay")
	assert.Equal(t, "Thank you. Your response has been recorded.", response)
	assert.Empty(t, h.monitor.GetEscalationStatus())
}

func TestMonitor_ManualEmergencyIntent(t *testing.T) {
	h := newTestHarness(t)

	response := h.monitor.HandleVoiceIntent("emergency")
	assert.Equal(t, "Emergency mode activated. Help is on the way.", response)

	sessions := h.monitor.GetEscalationStatus()
	require.Len(t, sessions, 1)
	assert.Equal(t, models.ConditionManualActivation, sessions[0].Condition.Type)
}

func TestMonitor_AlertSummaryIntent(t *testing.T) {
	h := newTestHarness(t)

	assert.Equal(t, "No active health alerts. Everything looks normal.",
		h.monitor.HandleVoiceIntent("any alerts?"))

	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)
	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 65, 0})
	require.Eventually(t, func() bool {
		return len(h.monitor.GetActiveAlerts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	summary := h.monitor.HandleVoiceIntent("any alerts?")
	assert.Contains(t, summary, "1 active alerts")
	assert.Contains(t, summary, "Low blood sugar")
}

func TestMonitor_AcknowledgeDismissSnooze(t *testing.T) {
	h := newTestHarness(t)
	h.connectDevice("cgm-1", models.DeviceGlucoseMonitor)

	h.transport.pushData("cgm-1", parser.CharGlucose, []byte{0x00, 65, 0})
	require.Eventually(t, func() bool {
		return len(h.monitor.GetActiveAlerts()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	alertID := h.monitor.GetActiveAlerts()[0].ID

	assert.True(t, h.monitor.AcknowledgeAlert(alertID))
	acked := h.monitor.GetActiveAlerts()[0]
	assert.True(t, acked.Acknowledged)
	assert.NotNil(t, acked.AcknowledgedAt)

	assert.True(t, h.monitor.DismissAlert(alertID))
	assert.Empty(t, h.monitor.GetActiveAlerts())

	// 已撤销的报警再次操作返回 false
	assert.False(t, h.monitor.AcknowledgeAlert(alertID))
	assert.False(t, h.monitor.DismissAlert(alertID))
	assert.False(t, h.monitor.SnoozeAlert(alertID, time.Minute))
}

func TestMonitor_SetProfile(t *testing.T) {
	h := newTestHarness(t)

	require.NoError(t, h.monitor.SetProfile("diabetic"))
	assert.Error(t, h.monitor.SetProfile("bogus"))
}

func TestMonitor_UnknownIntent(t *testing.T) {
	h := newTestHarness(t)

	assert.Equal(t, "Sorry, I didn't catch that.", h.monitor.HandleVoiceIntent("   "))
	assert.Equal(t, "Sorry, I didn't understand that.", h.monitor.HandleVoiceIntent("play some music"))
}

func TestMonitor_QueriesReturnAfterShutdown(t *testing.T) {
	h := newTestHarness(t)
	h.cancel()

	done := make(chan struct{})
	var alerts []*models.HealthAlert
	var acked bool
	go func() {
		defer close(done)
		alerts = h.monitor.GetActiveAlerts()
		acked = h.monitor.AcknowledgeAlert("missing")
	}()

	select {
	case <-done:
		assert.Empty(t, alerts)
		assert.False(t, acked)
	case <-time.After(2 * time.Second):
		t.Fatal("serialized query blocked after shutdown")
	}
}
