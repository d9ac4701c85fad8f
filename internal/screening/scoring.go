package screening

import (
	"math"

	"resume-screener-go/internal/types"
)

// Weights 三个维度的聚合权重
type Weights struct {
	Technical float64
	Career    float64
	Fit       float64
}

// DefaultWeights 默认权重：技能0.40、经验0.35、契合度0.25
func DefaultWeights() Weights {
	return Weights{Technical: 0.40, Career: 0.35, Fit: 0.25}
}

// round2 保留2位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CombineScores 将三个Agent的得分按权重合成总分。
// 返回: 总分(保留2位小数), 原始分明细, 加权分明细
func CombineScores(technical, career, fit float64, w Weights) (float64, types.ScoreBreakdown, types.ScoreBreakdown) {
	weightedTech := technical * w.Technical
	weightedCareer := career * w.Career
	weightedFit := fit * w.Fit

	total := round2(weightedTech + weightedCareer + weightedFit)

	breakdown := types.ScoreBreakdown{
		Technical: technical,
		Career:    career,
		Fit:       fit,
	}
	weighted := types.ScoreBreakdown{
		Technical: round2(weightedTech),
		Career:    round2(weightedCareer),
		Fit:       round2(weightedFit),
	}
	return total, breakdown, weighted
}

// ScoreTier 总分对应的定性档位
func ScoreTier(score float64) string {
	switch {
	case score >= 90:
		return "Exceptional"
	case score >= 75:
		return "Strong"
	case score >= 60:
		return "Adequate"
	case score >= 45:
		return "Below Average"
	default:
		return "Poor"
	}
}

// ConfidenceScore 基于三个Agent得分的离散程度计算置信度。
// 标准差为0（三个维度完全一致）时置信度100，分歧越大置信度越低。
func ConfidenceScore(scores ...float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(scores))
	stdDev := math.Sqrt(variance)

	confidence := 100 - stdDev*2
	if confidence < 0 {
		confidence = 0
	}
	return round2(confidence)
}

// PercentileRank 计算目标分数在整组分数中的百分位（严格小于的占比）
func PercentileRank(scores []float64, target float64) float64 {
	if len(scores) == 0 {
		return 50.0
	}

	below := 0
	for _, s := range scores {
		if s < target {
			below++
		}
	}
	return round1(float64(below) / float64(len(scores)) * 100)
}
