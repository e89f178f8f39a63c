package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// AlertRecord 报警持久化记录（对应 health_alerts 表）
type AlertRecord struct {
	AlertID        string     `db:"alert_id"`
	AlertType      string     `db:"alert_type"`
	Severity       string     `db:"severity"`
	Message        string     `db:"message"`
	ReadingID      *string    `db:"reading_id"`
	Suppressed     bool       `db:"suppressed"`
	SuppressReason *string    `db:"suppress_reason"`
	Metadata       string     `db:"metadata"` // JSONB
	TriggeredAt    time.Time  `db:"triggered_at"`
	Acknowledged   bool       `db:"acknowledged"`
	AcknowledgedAt *time.Time `db:"acknowledged_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// AlertsRepository 报警历史仓库
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建报警历史仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertAlert 写入报警记录
// 被抑制的报警同样落库（抑制只扣留播报，不删除历史）
func (r *AlertsRepository) InsertAlert(ctx context.Context, alert *models.HealthAlert, suppressed bool, reason string) error {
	metadataJSON := "{}"
	if alert.Metadata != nil {
		metadataBytes, err := json.Marshal(alert.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal alert metadata: %w", err)
		}
		metadataJSON = string(metadataBytes)
	}

	var readingID *string
	if alert.Reading != nil {
		readingID = &alert.Reading.ID
	}

	var suppressReason *string
	if reason != "" {
		suppressReason = &reason
	}

	query := `
		INSERT INTO health_alerts (
			alert_id, alert_type, severity, message, reading_id,
			suppressed, suppress_reason, metadata, triggered_at,
			acknowledged, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		string(alert.Type),
		alert.Severity.String(),
		alert.Message,
		readingID,
		suppressed,
		suppressReason,
		metadataJSON,
		alert.Timestamp,
		alert.Acknowledged,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// MarkAcknowledged 标记报警已确认
func (r *AlertsRepository) MarkAcknowledged(ctx context.Context, alertID string, at time.Time) error {
	query := `
		UPDATE health_alerts
		SET acknowledged = true, acknowledged_at = $2
		WHERE alert_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, alertID, at)
	if err != nil {
		return fmt.Errorf("failed to mark alert acknowledged: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ListRecent 按触发时间倒序读取最近的报警记录
func (r *AlertsRepository) ListRecent(ctx context.Context, limit int) ([]*AlertRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	query := `
		SELECT alert_id, alert_type, severity, message, reading_id,
		       suppressed, suppress_reason, metadata, triggered_at,
		       acknowledged, acknowledged_at, created_at
		FROM health_alerts
		ORDER BY triggered_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var records []*AlertRecord
	for rows.Next() {
		rec := &AlertRecord{}
		if err := rows.Scan(
			&rec.AlertID,
			&rec.AlertType,
			&rec.Severity,
			&rec.Message,
			&rec.ReadingID,
			&rec.Suppressed,
			&rec.SuppressReason,
			&rec.Metadata,
			&rec.TriggeredAt,
			&rec.Acknowledged,
			&rec.AcknowledgedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return records, nil
}
