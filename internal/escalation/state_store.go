package escalation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// StateStore 升级会话快照存储（Redis）
// 进程崩溃后可据此报告最后的会话状态，恢复是只读的
type StateStore struct {
	redisClient *redis.Client
	keyPrefix   string
	logger      *zap.Logger
}

// NewStateStore 创建会话快照存储
func NewStateStore(redisClient *redis.Client, keyPrefix string, logger *zap.Logger) *StateStore {
	return &StateStore{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		logger:      logger,
	}
}

func (s *StateStore) key(condType models.ConditionType) string {
	return s.keyPrefix + string(condType)
}

// Save 保存会话快照
func (s *StateStore) Save(ctx context.Context, esc *models.EmergencyEscalation) error {
	jsonData, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("failed to marshal escalation: %w", err)
	}

	if err := s.redisClient.Set(ctx, s.key(esc.Condition.Type), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to save escalation snapshot: %w", err)
	}

	return nil
}

// Load 读取会话快照（不存在时返回 nil）
func (s *StateStore) Load(ctx context.Context, condType models.ConditionType) (*models.EmergencyEscalation, error) {
	val, err := s.redisClient.Get(ctx, s.key(condType)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load escalation snapshot: %w", err)
	}

	var esc models.EmergencyEscalation
	if err := json.Unmarshal([]byte(val), &esc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal escalation snapshot: %w", err)
	}

	return &esc, nil
}

// Delete 删除会话快照
func (s *StateStore) Delete(ctx context.Context, condType models.ConditionType) error {
	if err := s.redisClient.Del(ctx, s.key(condType)).Err(); err != nil {
		return fmt.Errorf("failed to delete escalation snapshot: %w", err)
	}
	return nil
}
