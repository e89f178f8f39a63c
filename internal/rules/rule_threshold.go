package rules

import (
	"fmt"

	"pulseguard/internal/models"
)

// ThresholdRule 阈值规则：读数与当前阈值档案的静态比较
// 每条子规则的级别固定（如 血糖 < VeryLow ⇒ emergency）
type ThresholdRule struct {
	builder *AlertBuilder
}

// NewThresholdRule 创建阈值规则
func NewThresholdRule(builder *AlertBuilder) *ThresholdRule {
	return &ThresholdRule{builder: builder}
}

// Name 规则名称
func (r *ThresholdRule) Name() string {
	return "threshold"
}

// Evaluate 评估阈值规则
func (r *ThresholdRule) Evaluate(reading *models.HealthReading, _ []*models.HealthReading, th *AlertThresholds) (*models.HealthAlert, error) {
	switch reading.Type {
	case models.ReadingBloodGlucose:
		return r.evaluateGlucose(reading, th), nil
	case models.ReadingHeartRate:
		return r.evaluateHeartRate(reading, th), nil
	case models.ReadingBloodPressure:
		return r.evaluateBloodPressure(reading, th), nil
	case models.ReadingOxygenSaturation:
		return r.evaluateOxygen(reading, th), nil
	case models.ReadingTemperature:
		return r.evaluateTemperature(reading, th), nil
	default:
		return nil, nil
	}
}

func (r *ThresholdRule) evaluateGlucose(reading *models.HealthReading, th *AlertThresholds) *models.HealthAlert {
	v := reading.Value
	switch {
	case v < th.Glucose.VeryLow:
		return r.builder.Build(
			models.AlertSevereHypoglycemia,
			models.SeverityEmergency,
			fmt.Sprintf("Severe low blood sugar: %.0f mg/dL. Take fast-acting sugar immediately.", v),
			reading,
			map[string]interface{}{"threshold": th.Glucose.VeryLow},
		)
	case v < th.Glucose.Low:
		return r.builder.Build(
			models.AlertHypoglycemia,
			models.SeverityCritical,
			fmt.Sprintf("Low blood sugar: %.0f mg/dL. Consider taking sugar.", v),
			reading,
			map[string]interface{}{"threshold": th.Glucose.Low},
		)
	case v > th.Glucose.VeryHigh:
		return r.builder.Build(
			models.AlertSevereHyperglycemia,
			models.SeverityCritical,
			fmt.Sprintf("Very high blood sugar: %.0f mg/dL. Check ketones and contact your care team.", v),
			reading,
			map[string]interface{}{"threshold": th.Glucose.VeryHigh},
		)
	case v > th.Glucose.High:
		return r.builder.Build(
			models.AlertHyperglycemia,
			models.SeverityWarning,
			fmt.Sprintf("High blood sugar: %.0f mg/dL.", v),
			reading,
			map[string]interface{}{"threshold": th.Glucose.High},
		)
	}
	return nil
}

func (r *ThresholdRule) evaluateHeartRate(reading *models.HealthReading, th *AlertThresholds) *models.HealthAlert {
	v := reading.Value
	switch {
	case v < th.HeartRateMin:
		return r.builder.Build(
			models.AlertLowHeartRate,
			models.SeverityCritical,
			fmt.Sprintf("Low heart rate: %.0f bpm.", v),
			reading,
			map[string]interface{}{"threshold": th.HeartRateMin},
		)
	case v > th.HeartRateMax:
		return r.builder.Build(
			models.AlertHighHeartRate,
			models.SeverityCritical,
			fmt.Sprintf("High heart rate: %.0f bpm.", v),
			reading,
			map[string]interface{}{"threshold": th.HeartRateMax},
		)
	}
	return nil
}

func (r *ThresholdRule) evaluateBloodPressure(reading *models.HealthReading, th *AlertThresholds) *models.HealthAlert {
	systolic := reading.Additional["systolic"]
	diastolic := reading.Additional["diastolic"]

	if systolic > th.SystolicHigh || diastolic > th.DiastolicHigh {
		// 收缩压 ≥180 视为高血压危象
		severity := models.SeverityWarning
		if systolic >= 180 {
			severity = models.SeverityCritical
		}
		return r.builder.Build(
			models.AlertHighBloodPressure,
			severity,
			fmt.Sprintf("High blood pressure: %.0f/%.0f mmHg.", systolic, diastolic),
			reading,
			map[string]interface{}{
				"systolic_threshold":  th.SystolicHigh,
				"diastolic_threshold": th.DiastolicHigh,
			},
		)
	}
	return nil
}

func (r *ThresholdRule) evaluateOxygen(reading *models.HealthReading, th *AlertThresholds) *models.HealthAlert {
	if reading.Value < th.OxygenMin {
		return r.builder.Build(
			models.AlertLowOxygen,
			models.SeverityCritical,
			fmt.Sprintf("Low oxygen saturation: %.0f%%.", reading.Value),
			reading,
			map[string]interface{}{"threshold": th.OxygenMin},
		)
	}
	return nil
}

func (r *ThresholdRule) evaluateTemperature(reading *models.HealthReading, th *AlertThresholds) *models.HealthAlert {
	if reading.Value > th.TempMax {
		return r.builder.Build(
			models.AlertFever,
			models.SeverityWarning,
			fmt.Sprintf("Elevated temperature: %.1f°C.", reading.Value),
			reading,
			map[string]interface{}{"threshold": th.TempMax},
		)
	}
	return nil
}
