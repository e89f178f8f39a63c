package devicelink

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pulseguard/pkg/mqtt"
)

// MQTTTransport 基于 MQTT 的设备传输层
//
// 主题约定（穿戴网关侧发布）：
// - <announce_topic>                     设备公告（JSON）
// - <data_base>/<device_id>/status      在线状态（retained LWT，"online"/"offline"）
// - <data_base>/<device_id>/data/<char> 特征值原始二进制负载
type MQTTTransport struct {
	client        *mqtt.Client
	announceTopic string
	dataTopicBase string
	logger        *zap.Logger

	mu       sync.Mutex
	presence map[string]bool // 设备在线状态（来自 status 主题）
	links    map[string]bool // 已打开的数据链路
	scanning bool
}

// NewMQTTTransport 创建 MQTT 传输层
func NewMQTTTransport(client *mqtt.Client, announceTopic, dataTopicBase string, logger *zap.Logger) *MQTTTransport {
	return &MQTTTransport{
		client:        client,
		announceTopic: announceTopic,
		dataTopicBase: dataTopicBase,
		logger:        logger,
		presence:      make(map[string]bool),
		links:         make(map[string]bool),
	}
}

// StartPresence 订阅所有设备的在线状态主题
func (t *MQTTTransport) StartPresence(onStatus StatusHandler) error {
	topic := t.dataTopicBase + "/+/status"

	err := t.client.Subscribe(topic, 1, func(topic string, payload []byte) error {
		deviceID := t.deviceIDFromTopic(topic)
		if deviceID == "" {
			return nil
		}

		online := string(payload) == "online"
		t.mu.Lock()
		t.presence[deviceID] = online
		t.mu.Unlock()

		onStatus(deviceID, online)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe presence topic: %w", err)
	}

	return nil
}

// StartScan 订阅设备公告主题
func (t *MQTTTransport) StartScan(onAnnounce AnnounceHandler) error {
	t.mu.Lock()
	if t.scanning {
		t.mu.Unlock()
		return nil
	}
	t.scanning = true
	t.mu.Unlock()

	err := t.client.Subscribe(t.announceTopic, 1, func(_ string, payload []byte) error {
		var a Announcement
		if err := json.Unmarshal(payload, &a); err != nil {
			t.logger.Warn("Discarded malformed announcement", zap.Error(err))
			return nil
		}
		if a.DeviceID == "" {
			return nil
		}

		// 公告即在线
		t.mu.Lock()
		t.presence[a.DeviceID] = true
		t.mu.Unlock()

		onAnnounce(a)
		return nil
	})
	if err != nil {
		t.mu.Lock()
		t.scanning = false
		t.mu.Unlock()
		return fmt.Errorf("failed to subscribe announce topic: %w", err)
	}

	return nil
}

// StopScan 取消公告订阅
func (t *MQTTTransport) StopScan() error {
	t.mu.Lock()
	if !t.scanning {
		t.mu.Unlock()
		return nil
	}
	t.scanning = false
	t.mu.Unlock()

	if err := t.client.Unsubscribe(t.announceTopic); err != nil {
		return fmt.Errorf("failed to unsubscribe announce topic: %w", err)
	}
	return nil
}

// OpenLink 订阅设备数据通道
func (t *MQTTTransport) OpenLink(deviceID string, onData DataHandler) error {
	t.mu.Lock()
	online := t.presence[deviceID]
	t.mu.Unlock()

	if !online {
		return fmt.Errorf("device unreachable: %s", deviceID)
	}

	topic := fmt.Sprintf("%s/%s/data/+", t.dataTopicBase, deviceID)
	err := t.client.Subscribe(topic, 1, func(topic string, payload []byte) error {
		char := t.charFromTopic(topic)
		if char == "" {
			return nil
		}
		onData(deviceID, char, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to open link for %s: %w", deviceID, err)
	}

	t.mu.Lock()
	t.links[deviceID] = true
	t.mu.Unlock()

	return nil
}

// CloseLink 取消设备数据通道订阅
func (t *MQTTTransport) CloseLink(deviceID string) error {
	topic := fmt.Sprintf("%s/%s/data/+", t.dataTopicBase, deviceID)

	t.mu.Lock()
	delete(t.links, deviceID)
	t.mu.Unlock()

	if err := t.client.Unsubscribe(topic); err != nil {
		return fmt.Errorf("failed to close link for %s: %w", deviceID, err)
	}
	return nil
}

// LinkActive 判断链路是否活跃
func (t *MQTTTransport) LinkActive(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.links[deviceID] && t.presence[deviceID]
}

// Close 断开 MQTT 连接
func (t *MQTTTransport) Close() {
	t.client.Disconnect()
}

// deviceIDFromTopic 从 status 主题提取设备ID
// 形如 <base>/<device_id>/status
func (t *MQTTTransport) deviceIDFromTopic(topic string) string {
	rest := strings.TrimPrefix(topic, t.dataTopicBase+"/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "status" {
		return ""
	}
	return parts[0]
}

// charFromTopic 从数据主题提取特征值标识
// 形如 <base>/<device_id>/data/<char>
func (t *MQTTTransport) charFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/data/")
	if idx < 0 {
		return ""
	}
	return topic[idx+len("/data/"):]
}
