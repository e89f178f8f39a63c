package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

// makeReading 构造测试读数
func makeReading(t models.ReadingType, value float64, unit string, ts time.Time) *models.HealthReading {
	return &models.HealthReading{
		ID:         uuid.New().String(),
		DeviceID:   "dev-1",
		Type:       t,
		Value:      value,
		Unit:       unit,
		Timestamp:  ts,
		IsCritical: models.IsCriticalValue(t, value),
	}
}

func TestEngine_SevereHypoglycemia(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())

	reading := makeReading(models.ReadingBloodGlucose, 55, "mg/dL", time.Now())
	candidates := engine.ProcessReading(reading, nil)

	require.Len(t, candidates, 1)
	alert := candidates[0]
	assert.Equal(t, models.AlertSevereHypoglycemia, alert.Type)
	assert.Equal(t, models.SeverityEmergency, alert.Severity)
	assert.Contains(t, alert.Message, "Severe low blood sugar")
	assert.Same(t, reading, alert.Reading)
}

func TestEngine_HypoglycemiaCritical(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())

	reading := makeReading(models.ReadingBloodGlucose, 65, "mg/dL", time.Now())
	candidates := engine.ProcessReading(reading, nil)

	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertHypoglycemia, candidates[0].Type)
	assert.Equal(t, models.SeverityCritical, candidates[0].Severity)
}

func TestEngine_NormalReadingNoCandidates(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())

	reading := makeReading(models.ReadingBloodGlucose, 110, "mg/dL", time.Now())
	candidates := engine.ProcessReading(reading, nil)

	assert.Empty(t, candidates)
}

func TestEngine_HypertensiveCrisis(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())

	reading := makeReading(models.ReadingBloodPressure, 185, "mmHg", time.Now())
	reading.Additional = map[string]float64{"systolic": 185, "diastolic": 110}

	candidates := engine.ProcessReading(reading, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertHighBloodPressure, candidates[0].Type)
	assert.Equal(t, models.SeverityCritical, candidates[0].Severity)
}

func TestEngine_InvalidProfileFallsBack(t *testing.T) {
	engine := NewEngine("astronaut", zap.NewNop())

	assert.Equal(t, ProfileGeneral, engine.Profile())
	assert.NotNil(t, engine.Thresholds())
}

func TestEngine_SetProfileRebuildsThresholds(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())
	assert.Equal(t, 180.0, engine.Thresholds().Glucose.High)

	// 档案切换后血糖上限收紧，170 mg/dL 从正常变为 warning
	require.NoError(t, engine.SetProfile("diabetic"))
	assert.Equal(t, ProfileDiabetic, engine.Profile())
	assert.Equal(t, 160.0, engine.Thresholds().Glucose.High)

	reading := makeReading(models.ReadingBloodGlucose, 170, "mg/dL", time.Now())
	candidates := engine.ProcessReading(reading, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertHyperglycemia, candidates[0].Type)
	assert.Equal(t, models.SeverityWarning, candidates[0].Severity)
}

func TestEngine_SetProfileInvalidKeepsGeneral(t *testing.T) {
	engine := NewEngine("diabetic", zap.NewNop())

	err := engine.SetProfile("nope")
	assert.Error(t, err)
	assert.Equal(t, ProfileGeneral, engine.Profile())
}

func TestEngine_RepeatEvaluationSameCandidates(t *testing.T) {
	engine := NewEngine("general", zap.NewNop())

	now := time.Now()
	history := []*models.HealthReading{
		makeReading(models.ReadingBloodGlucose, 160, "mg/dL", now.Add(-10*time.Minute)),
	}
	reading := makeReading(models.ReadingBloodGlucose, 65, "mg/dL", now)

	first := engine.ProcessReading(reading, history)
	second := engine.ProcessReading(reading, history)

	// 读数、历史和规则集不变时，重新评估得到相同候选
	require.Equal(t, len(first), len(second))
	require.NotEmpty(t, first)
	for i := range first {
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Severity, second[i].Severity)
		assert.Equal(t, first[i].Message, second[i].Message)
	}
}
