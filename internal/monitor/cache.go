package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// VitalsCache 实时体征缓存（Redis）
// 保存每台设备的最新读数，供伴随应用 UI 轮询，不触碰核心状态
type VitalsCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewVitalsCache 创建实时体征缓存
func NewVitalsCache(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *VitalsCache {
	return &VitalsCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

func (c *VitalsCache) key(deviceID string) string {
	return c.keyPrefix + deviceID + ":vitals"
}

// UpdateVitals 写入设备最新读数（带 TTL）
func (c *VitalsCache) UpdateVitals(ctx context.Context, reading *models.HealthReading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal vitals: %w", err)
	}

	if err := c.redisClient.Set(ctx, c.key(reading.DeviceID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set vitals cache: %w", err)
	}

	return nil
}

// GetVitals 读取设备最新读数（不存在时返回 nil）
func (c *VitalsCache) GetVitals(ctx context.Context, deviceID string) (*models.HealthReading, error) {
	val, err := c.redisClient.Get(ctx, c.key(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vitals cache: %w", err)
	}

	var reading models.HealthReading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vitals: %w", err)
	}

	return &reading, nil
}
