package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"resume-screener-go/internal/types"
)

// SkillAgent 混合式技术评估：
// 规则部分负责精确技能匹配和学历相关性，LLM只做有限的上下文修正
type SkillAgent struct {
	llmModel model.ChatModel
}

// NewSkillAgent 创建技能评估Agent
func NewSkillAgent(llmModel model.ChatModel) *SkillAgent {
	return &SkillAgent{llmModel: llmModel}
}

// Name 实现 Agent 接口
func (a *SkillAgent) Name() string {
	return "skill"
}

// Score 评估候选人的技术匹配度。
// 基线 = 技能匹配率×0.6 + 学历相关性×0.4，LLM修正限制在±10，最终收敛到[0,100]。
func (a *SkillAgent) Score(ctx context.Context, candidate *types.Candidate, req *types.JobRequirements, facts *FactualBaseline) (*types.AgentResult, error) {
	baseScore := facts.SkillMatchPercentage*0.6 + facts.EducationScore*0.4

	candidateContext := fmt.Sprintf(`FACTUAL DATA (VERIFIED FROM RESUME):
- Candidate's listed skills: %s
- Education: %s
- Projects: %d technical projects
- Achievements: %d documented

JOB REQUIREMENTS:
- Required skills: %s

RULE-BASED ANALYSIS:
- Exact skill matches: %s
- Missing required skills: %s
- Skill match rate: %.0f%%
- Education relevance: %.0f/100
- Baseline score: %.0f/100

PROJECT DETAILS:
%s`,
		joinOrDefault(facts.CandidateSkills, "NONE"),
		joinOrDefault(facts.Degrees, "None listed"),
		facts.ProjectCount,
		facts.AchievementCount,
		strings.Join(facts.RequiredSkills, ", "),
		joinOrDefault(facts.MatchedSkills, "NONE"),
		joinOrDefault(facts.MissingSkills, "NONE"),
		facts.SkillMatchPercentage,
		facts.EducationScore,
		baseScore,
		formatProjects(candidate),
	)

	jdContext := fmt.Sprintf(`Required Technical Skills: %s
Preferred Skills: %s
Role Level: %s`,
		strings.Join(req.RequiredSkills, ", "),
		strings.Join(req.PreferredSkills, ", "),
		orDefault(req.RoleLevel, "Not specified"),
	)

	systemMessage := `You are a technical recruiter providing context-based adjustment to a rule-based score.

IMPORTANT:
- The factual matching has already been done by rules
- You CANNOT change which skills matched or didn't match
- Your job is to adjust the baseline score by -10 to +10 points based on:
  1. Transferable skills (e.g., Java experience helps with Python)
  2. Project portfolio quality (hands-on evidence)
  3. Learning potential (related background)
  4. Depth vs breadth considerations

RULES:
- If candidate has 0 matching skills and irrelevant background: adjustment = -5 to 0
- If candidate has some matches with good projects: adjustment = 0 to +10
- Your adjustment must be justified by actual data provided`

	instructions := fmt.Sprintf(`Given the baseline score of %.0f/100 from rule-based matching:

Provide an adjustment (-10 to +10 points) based on:
1. Are there transferable skills? (e.g., JavaScript -> Node.js, Java -> backend)
2. Do projects demonstrate practical ability beyond listed skills?
3. Does education background suggest learning capability?
4. Is there potential for quick ramp-up?

Be conservative:
- No technical skills + no projects = negative adjustment
- Some matches + good projects = positive adjustment
- Irrelevant degree + no tech skills = negative adjustment

Return JSON:
{
  "adjustment": <number -10 to +10>,
  "final_score": <baseline + adjustment>,
  "reasoning": "<justify your adjustment with specific evidence>",
  "strengths": ["<based on factual matched skills>"],
  "weaknesses": ["<based on factual missing skills>"]
}`, baseScore)

	prompt := buildAgentPrompt(systemMessage, candidateContext, jdContext, instructions)

	llmResult, err := queryAgentLLM(ctx, a.llmModel, prompt)
	if err != nil {
		return nil, err
	}

	adjustment := clampAdjustment(llmResult.Adjustment)
	finalScore := clampScore(baseScore + adjustment)

	strengths := []string{}
	if len(facts.MatchedSkills) > 0 {
		strengths = append(strengths, "Has required: "+strings.Join(firstN(facts.MatchedSkills, 3), ", "))
	} else {
		strengths = append(strengths, "No matching technical skills")
	}
	if len(facts.Degrees) > 0 {
		strengths = append(strengths, "Education: "+facts.Degrees[0])
	} else {
		strengths = append(strengths, "Education: Not specified")
	}

	concerns := []string{}
	if len(facts.MissingSkills) > 0 {
		concerns = append(concerns, "Missing: "+strings.Join(firstN(facts.MissingSkills, 3), ", "))
	} else {
		concerns = append(concerns, "No critical skill gaps")
	}

	return &types.AgentResult{
		AgentName:  a.Name(),
		Score:      round1(finalScore),
		Adjustment: adjustment,
		Reasoning: fmt.Sprintf("Matched %d/%d skills. %s",
			len(facts.MatchedSkills), len(facts.RequiredSkills), llmResult.Reasoning),
		Strengths: strengths,
		Concerns:  concerns,
	}, nil
}

// formatProjects 将项目列表格式化为LLM上下文
func formatProjects(candidate *types.Candidate) string {
	if len(candidate.Projects) == 0 {
		return "No projects listed"
	}

	var lines []string
	for _, proj := range firstNProjects(candidate.Projects, 5) {
		desc := truncateRunes(proj.Description, 100)
		lines = append(lines, fmt.Sprintf("- %s: %s (Tech: %s)",
			orDefault(proj.Name, "Unnamed"), desc, strings.Join(proj.Technologies, ", ")))
	}
	return strings.Join(lines, "\n")
}

// truncateRunes 按字符截断，避免把多字节字符切成半个
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func firstNProjects(projects []types.Project, n int) []types.Project {
	if len(projects) <= n {
		return projects
	}
	return projects[:n]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
