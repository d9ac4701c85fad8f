package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/types"
)

// analyzerSystemMessage 分析器的系统提示
const analyzerSystemMessage = "You are an experienced HR analyst. Score the requested aspect of the resume from 0 to 100 and return valid JSON only."

// AnalysisCategories 简历质量分析的八个维度，顺序固定
var AnalysisCategories = []string{
	"career_stability",
	"career_progression",
	"skills_competency",
	"resume_quality",
	"attitude_aptitude",
	"achievements",
	"cultural_fit",
	"risk_indicators",
}

// DefaultAnalysisWeights 各维度的默认权重，总和为1.0
var DefaultAnalysisWeights = map[string]float64{
	"career_stability":   0.15,
	"career_progression": 0.15,
	"skills_competency":  0.20,
	"resume_quality":     0.10,
	"attitude_aptitude":  0.15,
	"achievements":       0.10,
	"cultural_fit":       0.10,
	"risk_indicators":    0.05,
}

// 每个维度的评估说明，拼进提示词
var categoryInstructions = map[string]string{
	"career_stability":   "Assess job tenure patterns: average tenure per role, frequency of switches, unexplained gaps. Long stable tenures score high, repeated short stints score low.",
	"career_progression": "Assess career trajectory: growth in titles and responsibility over time, promotions, skill evolution from execution to ownership or leadership.",
	"skills_competency":  "Assess the technical skill set: depth, breadth, modernity of the stack, and how well projects demonstrate the listed skills in practice.",
	"resume_quality":     "Assess the resume as a document: completeness of sections, clarity of descriptions, use of quantifiable results instead of generic statements.",
	"attitude_aptitude":  "Assess soft indicators: learning aptitude (certifications, upskilling), ownership language (built/delivered vs assisted/helped), adaptability across domains.",
	"achievements":       "Assess documented achievements: awards, measurable impact, publications, competition results. Concrete and quantified achievements score high.",
	"cultural_fit":       "Assess organizational fit signals: teamwork evidence, leadership exposure, work environment variety (startup vs corporate), communication quality.",
	"risk_indicators":    "Assess red flags: frequent job hopping, career regression, inconsistencies between sections, inflated claims without evidence. Few risks score high.",
}

// CategoryAnalysis 单个维度的分析结果
type CategoryAnalysis struct {
	Score       float64  `json:"score"`
	Explanation string   `json:"explanation,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// ResumeAnalysis 完整的简历质量分析结果
type ResumeAnalysis struct {
	Categories   map[string]CategoryAnalysis `json:"categories"`
	OverallScore float64                     `json:"overall_score"`
	Model        string                      `json:"model,omitempty"`
}

// ResumeAnalyzer 按八个维度并行分析一份结构化简历的质量
type ResumeAnalyzer struct {
	llmModel model.ChatModel
	weights  map[string]float64
	timeout  time.Duration
	logger   zerolog.Logger
}

// ResumeAnalyzerOption 分析器的配置选项
type ResumeAnalyzerOption func(*ResumeAnalyzer)

// WithAnalyzerWeights 覆盖默认维度权重，未给出的维度仍用默认值
func WithAnalyzerWeights(weights map[string]float64) ResumeAnalyzerOption {
	return func(a *ResumeAnalyzer) {
		for k, v := range weights {
			if _, ok := a.weights[k]; ok && v > 0 {
				a.weights[k] = v
			}
		}
	}
}

// WithAnalyzerTimeout 设置单个维度分析的超时
func WithAnalyzerTimeout(d time.Duration) ResumeAnalyzerOption {
	return func(a *ResumeAnalyzer) {
		a.timeout = d
	}
}

// NewResumeAnalyzer 创建一个新的简历质量分析器
func NewResumeAnalyzer(llmModel model.ChatModel, options ...ResumeAnalyzerOption) *ResumeAnalyzer {
	weights := make(map[string]float64, len(DefaultAnalysisWeights))
	for k, v := range DefaultAnalysisWeights {
		weights[k] = v
	}

	a := &ResumeAnalyzer{
		llmModel: llmModel,
		weights:  weights,
		timeout:  60 * time.Second,
		logger:   logger.Logger.With().Str("component", "resume_analyzer").Logger(),
	}

	for _, opt := range options {
		opt(a)
	}

	return a
}

// Weights 返回当前权重的副本
func (a *ResumeAnalyzer) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}

// Analyze 并行分析全部维度。单个维度失败不会中断整体分析，该维度按50分计入。
func (a *ResumeAnalyzer) Analyze(ctx context.Context, candidate *types.Candidate) (*ResumeAnalysis, error) {
	if a.llmModel == nil {
		return nil, fmt.Errorf("ResumeAnalyzer: llmModel is not initialized")
	}
	if candidate == nil {
		return nil, fmt.Errorf("ResumeAnalyzer: candidate is nil")
	}

	resumeJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ResumeAnalyzer: marshal candidate failed: %w", err)
	}

	results := make([]CategoryAnalysis, len(AnalysisCategories))
	var wg sync.WaitGroup
	for i, category := range AnalysisCategories {
		wg.Add(1)
		go func(idx int, cat string) {
			defer wg.Done()
			result, err := a.analyzeCategory(ctx, cat, string(resumeJSON))
			if err != nil {
				a.logger.Warn().Err(err).Str("category", cat).Msg("维度分析失败，按50分计入")
				results[idx] = CategoryAnalysis{
					Score:       50,
					Error:       err.Error(),
					Explanation: fmt.Sprintf("Analysis failed for %s", cat),
				}
				return
			}
			results[idx] = *result
		}(i, category)
	}
	wg.Wait()

	analysis := &ResumeAnalysis{
		Categories: make(map[string]CategoryAnalysis, len(AnalysisCategories)),
	}
	for i, category := range AnalysisCategories {
		analysis.Categories[category] = results[i]
	}
	analysis.OverallScore = a.calculateOverallScore(analysis.Categories)

	return analysis, nil
}

func (a *ResumeAnalyzer) analyzeCategory(ctx context.Context, category, resumeJSON string) (*CategoryAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Analyze the "%s" aspect of the following resume.

%s

Resume data (structured JSON):
%s

Return ONLY a valid JSON object:
{
  "score": <number 0-100>,
  "explanation": "<brief explanation>",
  "evidence": ["<specific evidence from the resume>"]
}`, category, categoryInstructions[category], resumeJSON)

	messages := []*einoschema.Message{
		einoschema.SystemMessage(analyzerSystemMessage),
		einoschema.UserMessage(prompt),
	}

	response, err := a.llmModel.Generate(callCtx, messages)
	if err != nil {
		return nil, err
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("%w: empty response", types.ErrMalformedModelResponse)
	}

	jsonStr := ExtractJSONObject(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", types.ErrMalformedModelResponse)
	}

	var result CategoryAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		fixed := SanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &result); jsonErr != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedModelResponse, err)
		}
	}

	result.Score = math.Max(0, math.Min(100, result.Score))
	result.Explanation = strings.TrimSpace(result.Explanation)

	return &result, nil
}

// calculateOverallScore 按权重汇总各维度得分
func (a *ResumeAnalyzer) calculateOverallScore(categories map[string]CategoryAnalysis) float64 {
	totalScore := 0.0
	totalWeight := 0.0
	for category, weight := range a.weights {
		if result, ok := categories[category]; ok {
			totalScore += result.Score * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Round(totalScore / totalWeight)
}
