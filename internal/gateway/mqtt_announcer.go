package gateway

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"pulseguard/pkg/mqtt"
)

// MQTTAnnouncer 基于 MQTT 的播报通道
// 将播报请求发布到伴随应用订阅的主题，由应用侧完成语音合成。
// 发布失败记录日志，不阻塞调用方
type MQTTAnnouncer struct {
	client *mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTAnnouncer 创建 MQTT 播报通道
func NewMQTTAnnouncer(client *mqtt.Client, topic string, logger *zap.Logger) *MQTTAnnouncer {
	return &MQTTAnnouncer{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// Speak 发布播报请求
func (a *MQTTAnnouncer) Speak(text string, priority Priority) {
	payload, err := json.Marshal(map[string]interface{}{
		"text":      text,
		"priority":  priority.String(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		a.logger.Error("Failed to marshal announcement", zap.Error(err))
		return
	}

	go func() {
		if err := a.client.Publish(a.topic, 1, false, payload); err != nil {
			a.logger.Error("Failed to publish announcement",
				zap.String("topic", a.topic),
				zap.Error(err),
			)
		}
	}()
}

// MQTTHaptic 基于 MQTT 的触觉反馈通道
type MQTTHaptic struct {
	client *mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTHaptic 创建 MQTT 触觉反馈通道
func NewMQTTHaptic(client *mqtt.Client, topic string, logger *zap.Logger) *MQTTHaptic {
	return &MQTTHaptic{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// Notify 发布触觉反馈请求
func (h *MQTTHaptic) Notify(kind string) {
	go func() {
		if err := h.client.Publish(h.topic, 1, false, []byte(kind)); err != nil {
			h.logger.Error("Failed to publish haptic notification",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}()
}
