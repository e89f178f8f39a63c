// Package storage 组合加密器与读数仓库，提供加密持久化
//
// 加密失败时回退为明文落库并标记待审查，绝不因加密失败丢弃记录。
package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pulseguard/internal/models"
	"pulseguard/internal/repository"
	"pulseguard/pkg/crypto"
)

// Store 加密读数存储
type Store struct {
	repo      *repository.ReadingsRepository
	encryptor *crypto.Encryptor // 可为 nil（未配置密钥时全部明文落库）
	logger    *zap.Logger
}

// NewStore 创建加密读数存储
func NewStore(repo *repository.ReadingsRepository, encryptor *crypto.Encryptor, logger *zap.Logger) *Store {
	return &Store{
		repo:      repo,
		encryptor: encryptor,
		logger:    logger,
	}
}

// SaveReading 加密并持久化一条读数
func (s *Store) SaveReading(ctx context.Context, reading *models.HealthReading) error {
	plaintext, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	rec := &repository.ReadingRecord{
		ReadingID:   reading.ID,
		DeviceID:    reading.DeviceID,
		ReadingType: string(reading.Type),
		Timestamp:   reading.Timestamp,
		CreatedAt:   time.Now(),
	}

	if s.encryptor != nil {
		encrypted, err := s.encryptor.EncryptBytes(plaintext)
		if err == nil {
			rec.Payload = base64.StdEncoding.EncodeToString(encrypted)
			rec.Encrypted = true
			return s.repo.InsertReading(ctx, rec)
		}
		// 加密失败：明文落库并标记待审查，不丢弃记录
		s.logger.Error("Reading encryption failed, storing plaintext flagged for review",
			zap.String("reading_id", reading.ID),
			zap.Error(err),
		)
	}

	rec.Payload = string(plaintext)
	rec.Encrypted = false
	rec.NeedsReview = s.encryptor != nil
	return s.repo.InsertReading(ctx, rec)
}

// LoadRecent 读取并解密最近 n 条读数
// 单条解密失败记录日志后跳过，不中断
func (s *Store) LoadRecent(ctx context.Context, n int) ([]*models.HealthReading, error) {
	records, err := s.repo.LoadRecent(ctx, n)
	if err != nil {
		return nil, err
	}

	var readings []*models.HealthReading
	for _, rec := range records {
		plaintext, err := s.decode(rec)
		if err != nil {
			s.logger.Error("Failed to decode stored reading",
				zap.String("reading_id", rec.ReadingID),
				zap.Error(err),
			)
			continue
		}

		var reading models.HealthReading
		if err := json.Unmarshal(plaintext, &reading); err != nil {
			s.logger.Error("Failed to unmarshal stored reading",
				zap.String("reading_id", rec.ReadingID),
				zap.Error(err),
			)
			continue
		}
		readings = append(readings, &reading)
	}

	return readings, nil
}

func (s *Store) decode(rec *repository.ReadingRecord) ([]byte, error) {
	if !rec.Encrypted {
		return []byte(rec.Payload), nil
	}
	if s.encryptor == nil {
		return nil, fmt.Errorf("encrypted record but no encryptor configured")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return s.encryptor.DecryptBytes(ciphertext)
}
