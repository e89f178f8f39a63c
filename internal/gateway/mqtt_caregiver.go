package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"pulseguard/internal/models"
	"pulseguard/pkg/mqtt"
)

// MQTTCaregiverGateway 基于 MQTT 的照护者通知网关
// 照护者端应用订阅通知主题。通道带熔断器：
// 连续投递失败后快速失败，避免在通道故障时反复阻塞
type MQTTCaregiverGateway struct {
	client  *mqtt.Client
	topic   string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewMQTTCaregiverGateway 创建照护者通知网关
func NewMQTTCaregiverGateway(client *mqtt.Client, topic string, logger *zap.Logger) *MQTTCaregiverGateway {
	settings := gobreaker.Settings{
		Name:    "caregiver-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Caregiver gateway breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &MQTTCaregiverGateway{
		client:  client,
		topic:   topic,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// SendAlert 向照护者推送紧急状况或报警
func (g *MQTTCaregiverGateway) SendAlert(ctx context.Context, condition *models.EmergencyCondition, alert *models.HealthAlert, location *Coordinate) error {
	payload, err := json.Marshal(map[string]interface{}{
		"condition": condition,
		"alert":     alert,
		"location":  location,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal caregiver notification: %w", err)
	}

	_, err = g.breaker.Execute(func() (interface{}, error) {
		if err := g.client.Publish(g.topic, 1, false, payload); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to deliver caregiver notification: %w", err)
	}

	return nil
}
