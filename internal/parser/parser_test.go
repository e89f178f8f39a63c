package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulseguard/internal/models"
)

func newTestParser() *Parser {
	return NewParser(zap.NewNop())
}

func TestParse_HeartRate8Bit(t *testing.T) {
	p := newTestParser()

	// flag bit0 = 0：单字节数值
	reading, err := p.Parse("dev-1", CharHeartRate, []byte{0x00, 72})
	require.NoError(t, err)

	assert.Equal(t, "dev-1", reading.DeviceID)
	assert.Equal(t, models.ReadingHeartRate, reading.Type)
	assert.Equal(t, 72.0, reading.Value)
	assert.Equal(t, "bpm", reading.Unit)
	assert.False(t, reading.IsCritical)
	assert.NotEmpty(t, reading.ID)
}

func TestParse_HeartRate16Bit(t *testing.T) {
	p := newTestParser()

	// flag bit0 = 1：小端 uint16，0x00C8 = 200
	reading, err := p.Parse("dev-1", CharHeartRate, []byte{0x01, 0xC8, 0x00})
	require.NoError(t, err)

	assert.Equal(t, 200.0, reading.Value)
	assert.True(t, reading.IsCritical)
}

func TestParse_BloodPressure(t *testing.T) {
	p := newTestParser()

	// 收缩压 120，舒张压 80
	reading, err := p.Parse("dev-1", CharBloodPressure, []byte{0x00, 120, 0, 80, 0})
	require.NoError(t, err)

	assert.Equal(t, models.ReadingBloodPressure, reading.Type)
	assert.Equal(t, 120.0, reading.Value)
	assert.Equal(t, 120.0, reading.Additional["systolic"])
	assert.Equal(t, 80.0, reading.Additional["diastolic"])
	assert.Equal(t, "mmHg", reading.Unit)
}

func TestParse_GlucoseCritical(t *testing.T) {
	p := newTestParser()

	reading, err := p.Parse("dev-1", CharGlucose, []byte{0x00, 55, 0})
	require.NoError(t, err)

	assert.Equal(t, models.ReadingBloodGlucose, reading.Type)
	assert.Equal(t, 55.0, reading.Value)
	assert.Equal(t, "mg/dL", reading.Unit)
	assert.True(t, reading.IsCritical)
}

func TestParse_Temperature(t *testing.T) {
	p := newTestParser()

	// 小端 uint16 = 368 → 36.8°C
	reading, err := p.Parse("dev-1", CharTemperature, []byte{0x70, 0x01})
	require.NoError(t, err)

	assert.InDelta(t, 36.8, reading.Value, 0.001)
	assert.Equal(t, "°C", reading.Unit)
}

func TestParse_Oxygen(t *testing.T) {
	p := newTestParser()

	reading, err := p.Parse("dev-1", CharOxygen, []byte{85})
	require.NoError(t, err)

	assert.Equal(t, 85.0, reading.Value)
	assert.True(t, reading.IsCritical)

	// 超出百分比范围的值丢弃
	_, err = p.Parse("dev-1", CharOxygen, []byte{130})
	assert.Error(t, err)
}

func TestParse_MalformedPayloads(t *testing.T) {
	p := newTestParser()

	cases := []struct {
		name    string
		char    string
		payload []byte
	}{
		{"heart rate empty", CharHeartRate, nil},
		{"heart rate 16-bit truncated", CharHeartRate, []byte{0x01, 0x50}},
		{"blood pressure truncated", CharBloodPressure, []byte{0x00, 120, 0}},
		{"glucose truncated", CharGlucose, []byte{0x00}},
		{"oxygen empty", CharOxygen, []byte{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reading, err := p.Parse("dev-1", tc.char, tc.payload)
			assert.Error(t, err)
			assert.Nil(t, reading)
		})
	}
}

func TestParse_UnknownCharacteristic(t *testing.T) {
	p := newTestParser()

	reading, err := p.Parse("dev-1", "ffff", []byte{0x01})
	assert.Error(t, err)
	assert.Nil(t, reading)
	assert.Contains(t, err.Error(), "unknown characteristic")
}
