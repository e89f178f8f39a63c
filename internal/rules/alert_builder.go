package rules

import (
	"time"

	"github.com/google/uuid"

	"pulseguard/internal/models"
)

// AlertBuilder 报警构建器
type AlertBuilder struct{}

// NewAlertBuilder 创建报警构建器
func NewAlertBuilder() *AlertBuilder {
	return &AlertBuilder{}
}

// Build 构建健康报警
func (b *AlertBuilder) Build(
	alertType models.AlertType,
	severity models.Severity,
	message string,
	reading *models.HealthReading,
	metadata map[string]interface{},
) *models.HealthAlert {
	return &models.HealthAlert{
		ID:        uuid.New().String(),
		Type:      alertType,
		Severity:  severity,
		Message:   message,
		Reading:   reading,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
