package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"resume-screener-go/internal/types"
)

// FitAgent 评估简历质量、态度信号与文化契合度。
// 与另外两个Agent不同，这个维度没有可靠的规则基线，得分完全来自LLM。
type FitAgent struct {
	llmModel model.ChatModel
}

// NewFitAgent 创建契合度评估Agent
func NewFitAgent(llmModel model.ChatModel) *FitAgent {
	return &FitAgent{llmModel: llmModel}
}

// Name 实现 Agent 接口
func (a *FitAgent) Name() string {
	return "fit"
}

// Score 评估候选人的综合契合度
func (a *FitAgent) Score(ctx context.Context, candidate *types.Candidate, req *types.JobRequirements, facts *FactualBaseline) (*types.AgentResult, error) {
	hasContact := candidate.PersonalInfo.Email != "" && candidate.PersonalInfo.Phone != ""

	candidateContext := fmt.Sprintf(`Resume Quality Assessment:
%s

Work Experience Summary:
%s

Project Portfolio:
%d projects demonstrating hands-on work

Achievements & Recognition:
%s

Communication & Presentation:
- Contact details provided: %t
- Professional online presence: %t`,
		assessResumeQuality(candidate),
		summarizeExperience(candidate.Experience),
		len(candidate.Projects),
		summarizeAchievements(candidate.Achievements),
		hasContact,
		candidate.PersonalInfo.LinkedIn != "",
	)

	jdContext := fmt.Sprintf(`Role Level: %s
Culture Indicators: %s
Key Responsibilities: %s
Must-Have Qualifications: %s`,
		orDefault(req.RoleLevel, "mid"),
		strings.Join(req.CultureIndicators, ", "),
		strings.Join(req.KeyResponsibilities, ", "),
		strings.Join(req.MustHaveQualifications, ", "),
	)

	systemMessage := `You are an expert organizational psychologist and resume analyst evaluating candidate fit.

Evaluate based on:
1. Resume Quality & Communication
   - Clarity and structure (organized, ATS-friendly)
   - Professional presentation
   - Clarity of contributions (impact-based vs generic)
   - Use of quantifiable data
   - Career storytelling quality

2. Attitude, Aptitude & Psychological Indicators
   - Stability indicators (tenure patterns)
   - Learning aptitude (upskilling, certifications, cross-domain)
   - Risk appetite (startup experience, role transitions)
   - Adaptability (different domains, multi-functional exposure)
   - Ambition indicator (fast progression, challenging projects)
   - Ownership/impact orientation ("delivered, built" vs "assisted, helped")
   - Confidence balance (realistic vs inflated/humble)

3. Cultural & Organizational Fit
   - Team leadership/management exposure
   - Work environment familiarity (startup vs corporate)
   - Cross-cultural work experience
   - Alignment to role level (not over/under qualified)

Scoring Guidelines:
- 90-100: Exceptional fit, strong cultural alignment, outstanding presentation
- 75-89: Good fit, clear alignment, professional quality
- 60-74: Adequate fit, reasonable alignment, acceptable quality
- 45-59: Questionable fit, weak alignment, quality concerns
- 0-44: Poor fit, misalignment, significant quality issues`

	instructions := `Analyze the candidate's fit and soft indicators.

Consider:
- How well does the resume tell a compelling story?
- Evidence of continuous learning and skill development
- Balance between stability and ambition
- Alignment with role expectations and company culture
- Red flags in presentation or content

Return your response as a valid JSON object with the following structure:
{
  "score": <number 0-100>,
  "reasoning": "<brief explanation>",
  "strengths": ["<strength1>", "<strength2>"],
  "weaknesses": ["<weakness1>", "<weakness2>"]
}

Do not include any text outside the JSON object.`

	prompt := buildAgentPrompt(systemMessage, candidateContext, jdContext, instructions)

	llmResult, err := queryAgentLLM(ctx, a.llmModel, prompt)
	if err != nil {
		return nil, err
	}

	return &types.AgentResult{
		AgentName: a.Name(),
		Score:     round1(llmResult.Score),
		Reasoning: llmResult.Reasoning,
		Strengths: llmResult.Strengths,
		Concerns:  llmResult.Weaknesses,
	}, nil
}

// assessResumeQuality 对简历完整度做简单的结构化评估
func assessResumeQuality(candidate *types.Candidate) string {
	completeness := 0
	if len(candidate.Experience) > 0 {
		completeness++
	}
	if len(candidate.Education) > 0 {
		completeness++
	}
	if len(candidate.Skills.Technical) > 0 {
		completeness++
	}
	if len(candidate.Projects) > 0 {
		completeness++
	}

	hasAchievements := "None listed"
	for _, a := range candidate.Achievements {
		if strings.TrimSpace(a) != "" {
			hasAchievements = "Yes"
			break
		}
	}

	return fmt.Sprintf(`Completeness: %d/4 key sections present
Detail Level: %d roles, %d projects documented
Achievements: %s`,
		completeness, len(candidate.Experience), len(candidate.Projects), hasAchievements)
}

// summarizeExperience 取最近3段经历做摘要
func summarizeExperience(experience []types.Experience) string {
	if len(experience) == 0 {
		return "No experience listed"
	}

	var lines []string
	for _, exp := range experience {
		lines = append(lines, fmt.Sprintf("- %s at %s",
			orDefault(exp.Position, "Unknown"), orDefault(exp.Company, "Unknown")))
		if len(lines) == 3 {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// summarizeAchievements 成就摘要
func summarizeAchievements(achievements []string) string {
	count := 0
	for _, a := range achievements {
		if strings.TrimSpace(a) != "" {
			count++
		}
	}
	if count == 0 {
		return "No specific achievements listed"
	}
	return fmt.Sprintf("%d achievement(s) documented", count)
}
