package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"resume-screener-go/internal/types"
)

// ExperienceAgent 混合式经验评估：
// 规则部分负责年限计算和职位相关性，LLM评估职业轨迹质量并做有限修正
type ExperienceAgent struct {
	llmModel model.ChatModel
}

// NewExperienceAgent 创建经验评估Agent
func NewExperienceAgent(llmModel model.ChatModel) *ExperienceAgent {
	return &ExperienceAgent{llmModel: llmModel}
}

// Name 实现 Agent 接口
func (a *ExperienceAgent) Name() string {
	return "experience"
}

// baselineFromYears 按年限规则计算基线分：
// 无要求时 min(100, 50+年限×10)；≥1.5倍要求=100；≥要求=90；≥0.75倍=70；
// 其余 max(20, 年限/要求×70)。职位不相关时整体×0.6。
func baselineFromYears(years, minRequired float64, roleRelevant bool) float64 {
	var yearScore float64
	switch {
	case minRequired == 0:
		yearScore = 50 + years*10
		if yearScore > 100 {
			yearScore = 100
		}
	case years >= minRequired*1.5:
		yearScore = 100
	case years >= minRequired:
		yearScore = 90
	case years >= minRequired*0.75:
		yearScore = 70
	default:
		yearScore = years / minRequired * 70
		if yearScore < 20 {
			yearScore = 20
		}
	}

	if !roleRelevant && years > 0 {
		yearScore = yearScore * 0.6 // 经验与岗位无关，打4折惩罚后保留6成
	}
	return yearScore
}

// Score 评估候选人的经验匹配度
func (a *ExperienceAgent) Score(ctx context.Context, candidate *types.Candidate, req *types.JobRequirements, facts *FactualBaseline) (*types.AgentResult, error) {
	years := facts.YearsOfExperience
	minRequired := facts.MinRequiredYears
	baseScore := baselineFromYears(years, minRequired, facts.RoleRelevant)

	roleRelevanceText := "NO - roles not relevant to technical position"
	if facts.RoleRelevant {
		roleRelevanceText = "YES - has relevant technical roles"
	}

	candidateContext := fmt.Sprintf(`FACTUAL DATA (VERIFIED FROM RESUME):
- Total years of experience: %.1f years
- Required experience: %.1f years
- Number of roles: %d
- Role relevance: %s
- Relevant roles: %s
- All roles: %s

EXPERIENCE HISTORY:
%s

RULE-BASED SCORE: %.0f/100`,
		years,
		minRequired,
		len(candidate.Experience),
		roleRelevanceText,
		joinOrDefault(facts.RelevantRoles, "None"),
		strings.Join(facts.AllRoles, ", "),
		formatExperience(candidate.Experience),
		baseScore,
	)

	jdContext := fmt.Sprintf(`Minimum Experience: %.1f years
Role Level: %s`, minRequired, orDefault(req.RoleLevel, "Not specified"))

	systemMessage := `You are a career analyst providing context-based adjustment to a rule-based experience score.

IMPORTANT:
- Years of experience have been calculated from dates (factual)
- Role relevance has been determined by keyword matching (factual)
- Your job is to assess career progression quality and adjust score by -10 to +10

Consider:
1. Career trajectory (progression vs stagnation)
2. Job stability (tenure patterns)
3. Company quality/reputation
4. Role complexity evolution`

	instructions := fmt.Sprintf(`Given baseline score of %.0f/100 from:
- %.1f years experience (required: %.1f)
- Role relevance: %t

Provide adjustment (-10 to +10) based on:
1. Career progression - are they growing in responsibility?
2. Job stability - concerning frequent switches (<1.5 yr) or healthy tenure?
3. Career trajectory - upward, lateral, or downward?
4. Role alignment - even if not technical, is there transferable leadership?

Be harsh if:
- Irrelevant experience with no progression
- Very short tenures repeatedly
- Career regression evident

Be generous if:
- Clear upward trajectory
- Stable tenure with growth
- Increasing responsibility

Return JSON:
{
  "adjustment": <-10 to +10>,
  "final_score": <baseline + adjustment>,
  "reasoning": "<justify adjustment>",
  "strengths": ["<based on actual roles>"],
  "weaknesses": ["<based on gaps/concerns>"]
}`, baseScore, years, minRequired, facts.RoleRelevant)

	prompt := buildAgentPrompt(systemMessage, candidateContext, jdContext, instructions)

	llmResult, err := queryAgentLLM(ctx, a.llmModel, prompt)
	if err != nil {
		return nil, err
	}

	adjustment := clampAdjustment(llmResult.Adjustment)
	finalScore := clampScore(baseScore + adjustment)

	relevanceWord := "NOT relevant"
	if facts.RoleRelevant {
		relevanceWord = "relevant"
	}

	strengths := []string{fmt.Sprintf("Has %.1f years of experience", years)}
	if len(facts.RelevantRoles) > 0 {
		strengths = append(strengths, "Relevant roles: "+strings.Join(firstN(facts.RelevantRoles, 2), ", "))
	} else {
		strengths = append(strengths, "Experience in different domain")
	}

	var concerns []string
	if years < minRequired {
		concerns = append(concerns, fmt.Sprintf("Below %.1f year requirement", minRequired))
	}
	if !facts.RoleRelevant {
		concerns = append(concerns, "No relevant technical experience")
	}

	return &types.AgentResult{
		AgentName:  a.Name(),
		Score:      round1(finalScore),
		Adjustment: adjustment,
		Reasoning: fmt.Sprintf("%.1f yrs experience (required: %.1f). Roles %s. %s",
			years, minRequired, relevanceWord, llmResult.Reasoning),
		Strengths: strengths,
		Concerns:  concerns,
	}, nil
}

// formatExperience 将经历按时间正序格式化为LLM上下文
func formatExperience(experience []types.Experience) string {
	if len(experience) == 0 {
		return "No experience listed"
	}

	lines := make([]string, 0, len(experience))
	for i := len(experience) - 1; i >= 0; i-- {
		exp := experience[i]
		end := exp.EndDate
		if end == "" {
			end = "Present"
		}
		lines = append(lines, fmt.Sprintf("- %s at %s (%s - %s)",
			orDefault(exp.Position, "Unknown"), orDefault(exp.Company, "Unknown"), exp.StartDate, end))
	}
	return strings.Join(lines, "\n")
}
