package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/llm"
	"resume-screener-go/internal/types"
)

func analyzerTestCandidate() *types.Candidate {
	return &types.Candidate{
		ID:           "candidate_1",
		PersonalInfo: types.PersonalInfo{Name: "Wang Wu"},
		Skills:       types.Skills{Technical: []string{"Go"}},
		Experience: []types.Experience{
			{Company: "Acme", Position: "Engineer", StartDate: "Jan 2022", EndDate: "Present"},
		},
	}
}

func TestAnalyzeAllCategories(t *testing.T) {
	mock := llm.NewMockChatClient(`{"score": 80, "explanation": "solid", "evidence": ["stable tenure"]}`, nil)
	analyzer := NewResumeAnalyzer(mock)

	analysis, err := analyzer.Analyze(context.Background(), analyzerTestCandidate())
	require.NoError(t, err, "分析不应返回错误")
	require.NotNil(t, analysis, "分析结果不应为nil")

	assert.Len(t, analysis.Categories, len(AnalysisCategories), "应覆盖全部分析维度")
	for _, category := range AnalysisCategories {
		result, ok := analysis.Categories[category]
		require.True(t, ok, "缺少维度 %s 的结果", category)
		assert.Equal(t, 80.0, result.Score, "维度 %s 的得分不符", category)
	}
	// 所有维度都是80分时加权总分也应是80
	assert.Equal(t, 80.0, analysis.OverallScore, "加权总分计算错误")
}

// TestAnalyzeCategoryFailureFallsBackTo50 单个维度失败按50分计入，不中断整体分析
func TestAnalyzeCategoryFailureFallsBackTo50(t *testing.T) {
	mock := llm.NewMockChatClient("", errors.New("model timeout"))
	analyzer := NewResumeAnalyzer(mock)

	analysis, err := analyzer.Analyze(context.Background(), analyzerTestCandidate())
	require.NoError(t, err, "维度失败不应导致整体分析失败")

	for _, category := range AnalysisCategories {
		result := analysis.Categories[category]
		assert.Equal(t, 50.0, result.Score, "失败维度 %s 应按50分计入", category)
		assert.NotEmpty(t, result.Error, "失败维度 %s 应记录错误信息", category)
	}
	assert.Equal(t, 50.0, analysis.OverallScore, "全部维度失败时总分应为50")
}

// TestAnalyzerWeightsOverride 自定义权重只覆盖已知维度，未知键被忽略
func TestAnalyzerWeightsOverride(t *testing.T) {
	mock := llm.NewMockChatClient(`{"score": 80}`, nil)
	analyzer := NewResumeAnalyzer(mock, WithAnalyzerWeights(map[string]float64{
		"skills_competency": 0.5,
		"unknown_category":  0.9,
	}))

	weights := analyzer.Weights()
	assert.Equal(t, 0.5, weights["skills_competency"], "已知维度的权重应被覆盖")
	assert.NotContains(t, weights, "unknown_category", "未知维度不应被加入权重表")
	assert.Equal(t, DefaultAnalysisWeights["career_stability"], weights["career_stability"], "未覆盖的维度应保持默认权重")
}

// TestAnalyzeScoreClamped 越界分数应被收敛到[0,100]
func TestAnalyzeScoreClamped(t *testing.T) {
	mock := llm.NewMockChatClient(`{"score": 250, "explanation": "x"}`, nil)
	analyzer := NewResumeAnalyzer(mock)

	analysis, err := analyzer.Analyze(context.Background(), analyzerTestCandidate())
	require.NoError(t, err)
	for _, category := range AnalysisCategories {
		assert.Equal(t, 100.0, analysis.Categories[category].Score, "超出100的分数应被收敛")
	}
}

func TestAnalyzeNilCandidate(t *testing.T) {
	mock := llm.NewMockChatClient(`{"score": 80}`, nil)
	analyzer := NewResumeAnalyzer(mock)

	_, err := analyzer.Analyze(context.Background(), nil)
	require.Error(t, err, "候选人为nil时应返回错误")
}
