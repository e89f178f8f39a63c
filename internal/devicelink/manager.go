package devicelink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// EventType 链路事件类型
type EventType string

const (
	EventDeviceDiscovered   EventType = "DeviceDiscovered"
	EventDeviceConnected    EventType = "DeviceConnected"
	EventDeviceDisconnected EventType = "DeviceDisconnected"
	EventDeviceRemoved      EventType = "DeviceRemoved"
	EventDeviceStale        EventType = "DeviceStale"
	EventReadingReceived    EventType = "ReadingReceived"
)

// 电量特征值（单字节百分比），不产生读数事件
const charBattery = "2a19"

// Event 链路事件
type Event struct {
	Type    EventType
	Device  models.Device // 事件发生时的设备快照
	Char    string        // 仅 ReadingReceived
	Payload []byte        // 仅 ReadingReceived
}

// Filter 扫描过滤器（空类型列表表示接受所有设备）
type Filter struct {
	Types []models.DeviceType
}

// Matches 判断设备类型是否通过过滤
func (f Filter) Matches(t models.DeviceType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, ft := range f.Types {
		if ft == t {
			return true
		}
	}
	return false
}

// Config 链路管理器配置
type Config struct {
	ScanTimeout   time.Duration // 扫描自动停止超时
	SweepInterval time.Duration // 重连扫描间隔
	RetryBudget   int           // 连续失败预算，超出后移除设备
}

// Manager 设备链路管理器
//
// 连接状态只通过显式 connect/disconnect 事件或周期性重连扫描变更。
// 单台设备失败不致命，其余设备继续工作
type Manager struct {
	mu        sync.Mutex
	transport Transport
	devices   map[string]*models.Device
	desired   map[string]bool // 应保持连接的设备
	failures  map[string]int  // 连续重连失败计数
	filter    Filter
	scanTimer *time.Timer
	scanning  bool

	config Config
	events chan Event
	logger *zap.Logger
}

// NewManager 创建链路管理器
func NewManager(transport Transport, cfg Config, logger *zap.Logger) *Manager {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 30 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 10
	}

	return &Manager{
		transport: transport,
		devices:   make(map[string]*models.Device),
		desired:   make(map[string]bool),
		failures:  make(map[string]int),
		config:    cfg,
		events:    make(chan Event, 256),
		logger:    logger,
	}
}

// Events 链路事件通道
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Start 启动在线状态跟踪和周期性重连扫描，阻塞到 ctx 取消
func (m *Manager) Start(ctx context.Context) error {
	if err := m.transport.StartPresence(m.onStatus); err != nil {
		return err
	}

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	m.logger.Info("Device link manager started",
		zap.Duration("sweep_interval", m.config.SweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Device link manager stopped")
			return nil
		case <-ticker.C:
			m.sweep()
		}
	}
}

// StartScan 开始设备发现，ScanTimeout 后自动停止
func (m *Manager) StartScan(filter Filter) error {
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return nil
	}
	m.scanning = true
	m.filter = filter
	m.mu.Unlock()

	if err := m.transport.StartScan(m.onAnnounce); err != nil {
		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.scanTimer = time.AfterFunc(m.config.ScanTimeout, m.StopScan)
	m.mu.Unlock()

	m.logger.Info("Device scan started",
		zap.Duration("timeout", m.config.ScanTimeout),
	)
	return nil
}

// StopScan 停止设备发现
func (m *Manager) StopScan() {
	m.mu.Lock()
	if !m.scanning {
		m.mu.Unlock()
		return
	}
	m.scanning = false
	if m.scanTimer != nil {
		m.scanTimer.Stop()
		m.scanTimer = nil
	}
	m.mu.Unlock()

	if err := m.transport.StopScan(); err != nil {
		m.logger.Error("Failed to stop scan", zap.Error(err))
	}
	m.logger.Info("Device scan stopped")
}

// onAnnounce 处理设备发现公告
func (m *Manager) onAnnounce(a Announcement) {
	m.mu.Lock()
	if !m.filter.Matches(a.Type) {
		m.mu.Unlock()
		return
	}

	dev, known := m.devices[a.DeviceID]
	if !known {
		dev = &models.Device{
			ID:                 a.DeviceID,
			Name:               a.Name,
			Type:               a.Type,
			State:              models.StateDisconnected,
			MaxReadingInterval: models.DefaultReadingInterval(a.Type),
			BatteryLevel:       a.Battery,
		}
		m.devices[a.DeviceID] = dev
		m.emitLocked(Event{Type: EventDeviceDiscovered, Device: *dev})
		m.logger.Info("Device discovered",
			zap.String("device_id", a.DeviceID),
			zap.String("type", string(a.Type)),
		)
	}
	m.mu.Unlock()

	// 新发现的设备自动尝试连接
	if !known {
		if err := m.Connect(a.DeviceID); err != nil {
			m.logger.Warn("Initial connect failed, sweep will retry",
				zap.String("device_id", a.DeviceID),
				zap.Error(err),
			)
		}
	}
}

// Connect 尝试建立设备链路
// 成功后订阅其数据通道；失败标记 failed 并报告一次，由重连扫描重试
func (m *Manager) Connect(deviceID string) error {
	m.mu.Lock()
	dev, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		return &UnknownDeviceError{DeviceID: deviceID}
	}
	dev.State = models.StateConnecting
	m.desired[deviceID] = true
	m.mu.Unlock()

	if err := m.transport.OpenLink(deviceID, m.onData); err != nil {
		m.mu.Lock()
		dev.State = models.StateFailed
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	dev.State = models.StateConnected
	m.failures[deviceID] = 0
	snapshot := *dev
	m.emitLocked(Event{Type: EventDeviceConnected, Device: snapshot})
	m.mu.Unlock()

	m.logger.Info("Device connected",
		zap.String("device_id", deviceID),
	)
	return nil
}

// Disconnect 主动断开设备（不再参与重连扫描）
func (m *Manager) Disconnect(deviceID string) {
	m.mu.Lock()
	dev, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.desired[deviceID] = false
	dev.State = models.StateDisconnected
	snapshot := *dev
	m.emitLocked(Event{Type: EventDeviceDisconnected, Device: snapshot})
	m.mu.Unlock()

	if err := m.transport.CloseLink(deviceID); err != nil {
		m.logger.Error("Failed to close link",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

// Device 查询设备快照
func (m *Manager) Device(deviceID string) (models.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dev, ok := m.devices[deviceID]; ok {
		return *dev, true
	}
	return models.Device{}, false
}

// Devices 查询所有设备快照
func (m *Manager) Devices() []models.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		result = append(result, *dev)
	}
	return result
}

// onStatus 处理设备在线状态变更
func (m *Manager) onStatus(deviceID string, online bool) {
	if online {
		return // 上线由重连扫描处理，避免与 Connect 竞争
	}

	m.mu.Lock()
	dev, ok := m.devices[deviceID]
	if !ok || dev.State != models.StateConnected {
		m.mu.Unlock()
		return
	}
	dev.State = models.StateDisconnected
	snapshot := *dev
	m.emitLocked(Event{Type: EventDeviceDisconnected, Device: snapshot})
	m.mu.Unlock()

	m.logger.Warn("Device went offline",
		zap.String("device_id", deviceID),
	)

	if err := m.transport.CloseLink(deviceID); err != nil {
		m.logger.Error("Failed to close link after offline",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}

// onData 处理设备数据负载
func (m *Manager) onData(deviceID, char string, payload []byte) {
	m.mu.Lock()
	dev, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	dev.LastReadingAt = &now

	// 电量特征值只更新设备模型
	if char == charBattery {
		if len(payload) >= 1 {
			dev.BatteryLevel = int(payload[0])
		}
		m.mu.Unlock()
		return
	}

	snapshot := *dev
	m.emitLocked(Event{
		Type:    EventReadingReceived,
		Device:  snapshot,
		Char:    char,
		Payload: payload,
	})
	m.mu.Unlock()
}

// sweep 周期性重连扫描
// 对"应连接但链路不活跃"的设备重新尝试连接，约束重连风暴；
// 连续失败超出预算的设备被移除
func (m *Manager) sweep() {
	m.mu.Lock()
	var reconnect []string
	var stale []models.Device
	now := time.Now()

	for id, dev := range m.devices {
		if m.desired[id] && !m.transport.LinkActive(id) {
			reconnect = append(reconnect, id)
		}
		if dev.State == models.StateConnected && dev.IsStale(now) {
			stale = append(stale, *dev)
		}
	}
	m.mu.Unlock()

	for _, dev := range stale {
		m.mu.Lock()
		m.emitLocked(Event{Type: EventDeviceStale, Device: dev})
		m.mu.Unlock()
	}

	for _, id := range reconnect {
		if err := m.Connect(id); err != nil {
			m.mu.Lock()
			m.failures[id]++
			count := m.failures[id]
			m.mu.Unlock()

			m.logger.Warn("Reconnect attempt failed",
				zap.String("device_id", id),
				zap.Int("consecutive_failures", count),
			)

			if count >= m.config.RetryBudget {
				m.remove(id)
			}
		} else {
			m.logger.Info("Reconnected device via sweep",
				zap.String("device_id", id),
			)
		}
	}
}

// remove 移除超出重试预算的设备
func (m *Manager) remove(deviceID string) {
	m.mu.Lock()
	dev, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	snapshot := *dev
	delete(m.devices, deviceID)
	delete(m.desired, deviceID)
	delete(m.failures, deviceID)
	m.emitLocked(Event{Type: EventDeviceRemoved, Device: snapshot})
	m.mu.Unlock()

	m.logger.Warn("Device removed after exhausting retry budget",
		zap.String("device_id", deviceID),
	)
}

// emitLocked 非阻塞发送事件（调用方持锁）
// 通道满时丢弃并记录，避免传输层回调被下游阻塞
func (m *Manager) emitLocked(e Event) {
	select {
	case m.events <- e:
	default:
		m.logger.Error("Event channel full, dropping event",
			zap.String("event_type", string(e.Type)),
			zap.String("device_id", e.Device.ID),
		)
	}
}

// UnknownDeviceError 未知设备错误
type UnknownDeviceError struct {
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return "unknown device: " + e.DeviceID
}
