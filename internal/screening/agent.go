package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/types"
)

// Agent 单维度评估器。三个实现分别覆盖技能、经验和综合契合度。
type Agent interface {
	Name() string
	Score(ctx context.Context, candidate *types.Candidate, req *types.JobRequirements, facts *FactualBaseline) (*types.AgentResult, error)
}

// agentLLMResult LLM返回的评估JSON
type agentLLMResult struct {
	Score      float64  `json:"score"`
	Adjustment float64  `json:"adjustment"`
	FinalScore float64  `json:"final_score"`
	Reasoning  string   `json:"reasoning"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// buildAgentPrompt 按固定结构拼装评估提示词
func buildAgentPrompt(systemMessage, candidateContext, jdContext, instructions string) string {
	return fmt.Sprintf(`%s

=== CANDIDATE INFORMATION ===
%s

=== JOB REQUIREMENTS ===
%s

=== INSTRUCTIONS ===
%s`, systemMessage, candidateContext, jdContext, instructions)
}

// queryAgentLLM 调用LLM并解析评估JSON。
// 调用本身失败（模型不可达等）时返回错误；
// 响应无法解析为JSON时退回 score 50 的兜底结果，评估继续。
func queryAgentLLM(ctx context.Context, llmModel model.ChatModel, prompt string) (*agentLLMResult, error) {
	messages := []*einoschema.Message{
		einoschema.UserMessage(prompt),
	}

	response, err := llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("agent LLM call failed: %w", err)
	}

	fallback := &agentLLMResult{
		Score:     50,
		Reasoning: "Unable to parse LLM response",
	}

	if response == nil || response.Content == "" {
		return fallback, nil
	}

	jsonStr := parser.ExtractJSONObject(response.Content)
	if jsonStr == "" {
		return fallback, nil
	}

	var result agentLLMResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		fixed := parser.SanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixed), &result); jsonErr != nil {
			return fallback, nil
		}
	}

	result.Score = clampScore(result.Score)
	result.Reasoning = strings.TrimSpace(result.Reasoning)
	return &result, nil
}

// clampScore 将分数收敛到 [0, 100]
func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// clampAdjustment 将LLM修正量收敛到 [-10, +10]
func clampAdjustment(adj float64) float64 {
	return math.Max(-10, math.Min(10, adj))
}

// round1 保留1位小数
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// joinOrDefault 拼接列表，为空时返回占位文案
func joinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

// firstN 取列表前n个元素
func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
