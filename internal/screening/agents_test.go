package screening

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/llm"
	"resume-screener-go/internal/types"
)

// 技能匹配率50%、学历满分的候选人，技能基线 = 50*0.6 + 100*0.4 = 70
func skillTestFixture() (*types.Candidate, *types.JobRequirements) {
	candidate := &types.Candidate{
		ID: "candidate_1",
		PersonalInfo: types.PersonalInfo{
			Name:  "Zhang San",
			Email: "zhangsan@example.com",
			Phone: "13800000000",
		},
		Skills: types.Skills{Technical: []string{"Python"}},
		Education: []types.Education{
			{Degree: "Bachelor of Computer Science", Institution: "Some University"},
		},
		Experience: []types.Experience{
			{Position: "Software Engineer", Company: "Acme", StartDate: "Jan 2021", EndDate: "Present"},
		},
	}
	req := &types.JobRequirements{
		RequiredSkills:     []string{"Python", "Rust"},
		MinExperienceYears: 2,
		RoleLevel:          "mid",
	}
	return candidate, req
}

func TestBaselineFromYears(t *testing.T) {
	tests := []struct {
		name         string
		years        float64
		minRequired  float64
		roleRelevant bool
		expected     float64
	}{
		{"无要求3年经验", 3, 0, true, 80},      // 50 + 3*10
		{"无要求6年经验封顶", 6, 0, true, 100},   // 50 + 60 超过100封顶
		{"达到1.5倍要求", 6, 4, true, 100},
		{"刚好达标", 4, 4, true, 90},
		{"达到0.75倍要求", 3, 4, true, 70},
		{"远低于要求", 1, 4, true, 20},        // 1/4*70=17.5 触发下限20
		{"经验与岗位无关", 3, 0, false, 48},     // 80 * 0.6
		{"零经验", 0, 0, false, 50},          // 无经验时不做无关惩罚
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, baselineFromYears(tt.years, tt.minRequired, tt.roleRelevant), "年限基线分计算错误")
		})
	}
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 100.0, clampScore(150), "超出上限的分数应收敛到100")
	assert.Equal(t, 0.0, clampScore(-3), "低于下限的分数应收敛到0")
	assert.Equal(t, 72.5, clampScore(72.5), "合法分数不应被修改")

	assert.Equal(t, 10.0, clampAdjustment(25), "正向修正应收敛到+10")
	assert.Equal(t, -10.0, clampAdjustment(-30), "负向修正应收敛到-10")
	assert.Equal(t, 5.0, clampAdjustment(5), "合法修正量不应被修改")
}

// TestSkillAgentAdjustmentClamped LLM给出超范围修正时应被收敛到±10
func TestSkillAgentAdjustmentClamped(t *testing.T) {
	candidate, req := skillTestFixture()
	facts := GetFactualBaseline(candidate, req, fixedNow)

	mock := llm.NewMockChatClient(`{"adjustment": 25, "final_score": 95, "reasoning": "great projects"}`, nil)
	agent := NewSkillAgent(mock)

	result, err := agent.Score(context.Background(), candidate, req, facts)
	require.NoError(t, err, "技能评估不应返回错误")

	// 基线70 + 修正收敛到+10 = 80
	assert.Equal(t, 80.0, result.Score, "修正量应被收敛到+10后再叠加")
	assert.Equal(t, 10.0, result.Adjustment, "记录的修正量应是收敛后的值")
	assert.Equal(t, "skill", result.AgentName, "Agent名称不符")
	assert.Contains(t, result.Reasoning, "Matched 1/2 skills", "推理文本应包含事实匹配数据")
}

// TestSkillAgentMalformedResponse LLM响应无法解析时按零修正继续，不中断评估
func TestSkillAgentMalformedResponse(t *testing.T) {
	candidate, req := skillTestFixture()
	facts := GetFactualBaseline(candidate, req, fixedNow)

	mock := llm.NewMockChatClient("sorry, I cannot answer that", nil)
	agent := NewSkillAgent(mock)

	result, err := agent.Score(context.Background(), candidate, req, facts)
	require.NoError(t, err, "响应不可解析不应导致评估失败")
	assert.Equal(t, 70.0, result.Score, "响应不可解析时应退回规则基线分")
	assert.Equal(t, 0.0, result.Adjustment, "响应不可解析时修正量应为0")
}

// TestSkillAgentLLMError 模型调用失败应向上传播错误
func TestSkillAgentLLMError(t *testing.T) {
	candidate, req := skillTestFixture()
	facts := GetFactualBaseline(candidate, req, fixedNow)

	mock := llm.NewMockChatClient("", errors.New("connection refused"))
	agent := NewSkillAgent(mock)

	_, err := agent.Score(context.Background(), candidate, req, facts)
	require.Error(t, err, "模型不可达时应返回错误")
	assert.Contains(t, err.Error(), "connection refused", "错误应携带底层原因")
}

// TestExperienceAgentScore 经验评估：基线来自年限规则，LLM做有限修正
func TestExperienceAgentScore(t *testing.T) {
	candidate, req := skillTestFixture()
	facts := GetFactualBaseline(candidate, req, fixedNow)

	// 2021年1月至今超过5年，达到2年要求的1.5倍以上，基线100
	mock := llm.NewMockChatClient(`{"adjustment": -4, "reasoning": "single employer"}`, nil)
	agent := NewExperienceAgent(mock)

	result, err := agent.Score(context.Background(), candidate, req, facts)
	require.NoError(t, err, "经验评估不应返回错误")
	assert.Equal(t, 96.0, result.Score, "基线100叠加-4修正应为96")
	assert.Equal(t, -4.0, result.Adjustment, "修正量不符")
	assert.Equal(t, "experience", result.AgentName, "Agent名称不符")
}

// TestFitAgentScore 契合度完全由LLM给分，越界分数被收敛
func TestFitAgentScore(t *testing.T) {
	candidate, req := skillTestFixture()
	facts := GetFactualBaseline(candidate, req, fixedNow)

	mock := llm.NewMockChatClient(`{"score": 82.4, "reasoning": "solid presentation", "strengths": ["clear resume"], "weaknesses": ["no leadership"]}`, nil)
	agent := NewFitAgent(mock)

	result, err := agent.Score(context.Background(), candidate, req, facts)
	require.NoError(t, err, "契合度评估不应返回错误")
	assert.Equal(t, 82.4, result.Score, "契合度得分应来自LLM")
	assert.Equal(t, []string{"clear resume"}, result.Strengths, "优势列表不符")
	assert.Equal(t, []string{"no leadership"}, result.Concerns, "顾虑列表不符")

	overMock := llm.NewMockChatClient(`{"score": 150, "reasoning": "x"}`, nil)
	overResult, err := NewFitAgent(overMock).Score(context.Background(), candidate, req, facts)
	require.NoError(t, err)
	assert.Equal(t, 100.0, overResult.Score, "超出100的得分应被收敛")
}

// TestQueryAgentLLMExtractsEmbeddedJSON LLM响应夹杂说明文字时应提取其中的JSON
func TestQueryAgentLLMExtractsEmbeddedJSON(t *testing.T) {
	mock := llm.NewMockChatClient("Here is my assessment:\n```json\n{\"score\": 66, \"reasoning\": \"ok\"}\n```\nHope this helps.", nil)

	result, err := queryAgentLLM(context.Background(), mock, "prompt")
	require.NoError(t, err, "提取内嵌JSON不应失败")
	assert.Equal(t, 66.0, result.Score, "应解析出内嵌JSON中的分数")
}

// TestFormatProjectsTruncatesOnRuneBoundary 非ASCII项目描述截断后仍是合法UTF-8
func TestFormatProjectsTruncatesOnRuneBoundary(t *testing.T) {
	longDesc := strings.Repeat("负责分布式简历解析系统的设计与实现", 10)
	candidate := &types.Candidate{
		Projects: []types.Project{
			{Name: "解析平台", Description: longDesc, Technologies: []string{"Go"}},
		},
	}

	formatted := formatProjects(candidate)
	assert.True(t, utf8.ValidString(formatted), "截断后的描述应是合法UTF-8")
	assert.Contains(t, formatted, truncateRunes(longDesc, 100), "描述应在100个字符处截断")
	assert.NotContains(t, formatted, truncateRunes(longDesc, 101), "描述不应超过100个字符")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5), "未超限的字符串应原样返回")
	assert.Equal(t, "ab", truncateRunes("abcd", 2), "ASCII字符串应按长度截断")
	assert.Equal(t, "简历", truncateRunes("简历筛选", 2), "多字节字符串应按字符数截断")
}
