package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ReadingRecord 读数持久化记录（对应 health_readings 表）
// Payload 为加密后的 base64 密文；加密失败回退明文时 Encrypted=false
// 且 NeedsReview=true，供运维审查
type ReadingRecord struct {
	ReadingID   string    `db:"reading_id"`
	DeviceID    string    `db:"device_id"`
	ReadingType string    `db:"reading_type"`
	Payload     string    `db:"payload"`
	Encrypted   bool      `db:"encrypted"`
	NeedsReview bool      `db:"needs_review"`
	Timestamp   time.Time `db:"reading_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// ReadingsRepository 读数仓库
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertReading 写入读数记录
func (r *ReadingsRepository) InsertReading(ctx context.Context, rec *ReadingRecord) error {
	query := `
		INSERT INTO health_readings (
			reading_id, device_id, reading_type, payload,
			encrypted, needs_review, reading_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ReadingID,
		rec.DeviceID,
		rec.ReadingType,
		rec.Payload,
		rec.Encrypted,
		rec.NeedsReview,
		rec.Timestamp,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// LoadRecent 按时间倒序读取最近 n 条读数记录
func (r *ReadingsRepository) LoadRecent(ctx context.Context, n int) ([]*ReadingRecord, error) {
	if n <= 0 {
		n = 100
	}

	query := `
		SELECT reading_id, device_id, reading_type, payload,
		       encrypted, needs_review, reading_at, created_at
		FROM health_readings
		ORDER BY reading_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var records []*ReadingRecord
	for rows.Next() {
		rec := &ReadingRecord{}
		if err := rows.Scan(
			&rec.ReadingID,
			&rec.DeviceID,
			&rec.ReadingType,
			&rec.Payload,
			&rec.Encrypted,
			&rec.NeedsReview,
			&rec.Timestamp,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return records, nil
}
