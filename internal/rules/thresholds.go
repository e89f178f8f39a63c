package rules

import (
	"fmt"
)

// Profile 健康档案类型
type Profile string

const (
	ProfileDiabetic       Profile = "diabetic"
	ProfileCardiovascular Profile = "cardiovascular"
	ProfileGeneral        Profile = "general"
)

// ParseProfile 解析健康档案名称
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileDiabetic, ProfileCardiovascular, ProfileGeneral:
		return Profile(s), nil
	default:
		return ProfileGeneral, fmt.Errorf("unknown health profile: %q", s)
	}
}

// GlucoseThresholds 血糖阈值（mg/dL）
type GlucoseThresholds struct {
	VeryLow    float64
	Low        float64
	High       float64
	VeryHigh   float64
	TargetLow  float64
	TargetHigh float64
}

// AlertThresholds 报警阈值档案
type AlertThresholds struct {
	Glucose       GlucoseThresholds
	HeartRateMin  float64
	HeartRateMax  float64
	SystolicHigh  float64
	DiastolicHigh float64
	OxygenMin     float64 // SpO2 百分比
	TempMax       float64 // °C
}

// ThresholdsForProfile 按健康档案生成阈值
func ThresholdsForProfile(p Profile) *AlertThresholds {
	switch p {
	case ProfileDiabetic:
		// 糖尿病档案：血糖上限收紧
		return &AlertThresholds{
			Glucose: GlucoseThresholds{
				VeryLow:    60,
				Low:        70,
				High:       160,
				VeryHigh:   250,
				TargetLow:  70,
				TargetHigh: 160,
			},
			HeartRateMin:  50,
			HeartRateMax:  120,
			SystolicHigh:  140,
			DiastolicHigh: 90,
			OxygenMin:     90,
			TempMax:       38.0,
		}
	case ProfileCardiovascular:
		// 心血管档案：心率和血压收紧
		return &AlertThresholds{
			Glucose: GlucoseThresholds{
				VeryLow:    60,
				Low:        70,
				High:       180,
				VeryHigh:   250,
				TargetLow:  70,
				TargetHigh: 180,
			},
			HeartRateMin:  50,
			HeartRateMax:  110,
			SystolicHigh:  130,
			DiastolicHigh: 85,
			OxygenMin:     90,
			TempMax:       38.0,
		}
	default:
		return &AlertThresholds{
			Glucose: GlucoseThresholds{
				VeryLow:    60,
				Low:        70,
				High:       180,
				VeryHigh:   250,
				TargetLow:  70,
				TargetHigh: 180,
			},
			HeartRateMin:  50,
			HeartRateMax:  120,
			SystolicHigh:  140,
			DiastolicHigh: 90,
			OxygenMin:     90,
			TempMax:       38.0,
		}
	}
}
