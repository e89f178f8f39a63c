package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

func newTestStateStore(t *testing.T) *StateStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStateStore(client, "escalation:", zap.NewNop())
}

func TestStateStore_SaveLoadDelete(t *testing.T) {
	store := newTestStateStore(t)
	ctx := context.Background()

	esc := &models.EmergencyEscalation{
		ID:        "esc-1",
		Condition: wellnessCondition(models.SeverityEmergency),
		StartedAt: time.Now().Truncate(time.Second),
		Status:    models.EscalationWaitingForResponse,
	}

	require.NoError(t, store.Save(ctx, esc))

	loaded, err := store.Load(ctx, models.ConditionSevereHypoglycemia)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, esc.ID, loaded.ID)
	assert.Equal(t, esc.Status, loaded.Status)
	assert.Equal(t, esc.Condition.Type, loaded.Condition.Type)

	require.NoError(t, store.Delete(ctx, models.ConditionSevereHypoglycemia))

	loaded, err = store.Load(ctx, models.ConditionSevereHypoglycemia)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStateStore_LoadMissing(t *testing.T) {
	store := newTestStateStore(t)

	loaded, err := store.Load(context.Background(), models.ConditionFallDetected)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
