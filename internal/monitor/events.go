package monitor

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "pulseguard/pkg/redis"
)

// 对外事件类型
const (
	EventDeviceConnected    = "DeviceConnected"
	EventDeviceDisconnected = "DeviceDisconnected"
	EventAlertTriggered     = "AlertTriggered"
	EventEmergencyActivated = "EmergencyActivated"
	EventEmergencyResolved  = "EmergencyResolved"
)

// Event 对外事件
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventPublisher 事件发布器
// 事件同时进入进程内订阅通道和 Redis Stream（供外部消费者）
type EventPublisher struct {
	redisClient *goredis.Client // 可为 nil（仅进程内分发）
	stream      string
	ch          chan Event
	logger      *zap.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(redisClient *goredis.Client, stream string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		redisClient: redisClient,
		stream:      stream,
		ch:          make(chan Event, 128),
		logger:      logger,
	}
}

// Subscribe 进程内事件订阅通道
func (p *EventPublisher) Subscribe() <-chan Event {
	return p.ch
}

// Publish 发布事件
// 进程内通道满时丢弃并记录；Stream 写入异步，失败只记录日志
func (p *EventPublisher) Publish(eventType string, payload interface{}) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case p.ch <- event:
	default:
		p.logger.Warn("Event subscriber channel full, dropping event",
			zap.String("event_type", eventType),
		)
	}

	if p.redisClient == nil {
		return
	}

	go func() {
		_, err := rediscommon.PublishJSONToStream(context.Background(), p.redisClient, p.stream, event)
		if err != nil {
			p.logger.Error("Failed to publish event to stream",
				zap.String("event_type", eventType),
				zap.String("stream", p.stream),
				zap.Error(err),
			)
		}
	}()
}
