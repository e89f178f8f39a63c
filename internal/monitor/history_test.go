package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pulseguard/internal/models"
)

func historyReading(i int, t models.ReadingType) *models.HealthReading {
	return &models.HealthReading{
		ID:        fmt.Sprintf("r-%d", i),
		DeviceID:  "dev-1",
		Type:      t,
		Value:     float64(i),
		Timestamp: time.Now().Add(time.Duration(i) * time.Second),
	}
}

func TestReadingHistory_AddAndRecent(t *testing.T) {
	h := NewReadingHistory(5)
	assert.Equal(t, 0, h.Len())

	for i := 0; i < 3; i++ {
		h.Add(historyReading(i, models.ReadingHeartRate))
	}

	assert.Equal(t, 3, h.Len())
	recent := h.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "r-0", recent[0].ID)
	assert.Equal(t, "r-2", recent[2].ID)
}

func TestReadingHistory_WrapsAtCapacity(t *testing.T) {
	h := NewReadingHistory(3)

	for i := 0; i < 5; i++ {
		h.Add(historyReading(i, models.ReadingHeartRate))
	}

	// 容量 3：只保留最后 3 条，最旧的被覆盖
	assert.Equal(t, 3, h.Len())
	recent := h.Recent()
	assert.Equal(t, "r-2", recent[0].ID)
	assert.Equal(t, "r-3", recent[1].ID)
	assert.Equal(t, "r-4", recent[2].ID)
}

func TestReadingHistory_RecentByType(t *testing.T) {
	h := NewReadingHistory(10)
	h.Add(historyReading(0, models.ReadingHeartRate))
	h.Add(historyReading(1, models.ReadingBloodGlucose))
	h.Add(historyReading(2, models.ReadingHeartRate))

	hr := h.RecentByType(models.ReadingHeartRate)
	assert.Len(t, hr, 2)
	assert.Equal(t, "r-0", hr[0].ID)
	assert.Equal(t, "r-2", hr[1].ID)

	assert.Empty(t, h.RecentByType(models.ReadingTemperature))
}

func TestReadingHistory_DefaultCapacity(t *testing.T) {
	h := NewReadingHistory(0)

	for i := 0; i < 150; i++ {
		h.Add(historyReading(i, models.ReadingHeartRate))
	}
	assert.Equal(t, 100, h.Len())
}
