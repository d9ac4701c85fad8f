package screening

import (
	"fmt"
	"math"
	"strings"
	"time"

	"resume-screener-go/internal/types"
)

// 技术岗位判定用的职位关键词
var relevantRoleKeywords = []string{
	"software", "developer", "engineer", "programmer", "technical",
	"backend", "frontend", "fullstack", "devops", "data",
}

// 学历相关性关键词，按相关程度分档
var (
	highRelevanceDegrees = []string{
		"computer science", "software engineering", "information technology", "cs", "computer engineering",
	}
	mediumRelevanceDegrees = []string{
		"engineering", "electronics", "telecommunication", "mathematics", "physics", "data science",
	}
	anyDegreeKeywords = []string{"bachelor", "b.tech", "b.e", "master", "m.tech"}
)

// FactualBaseline 在LLM评估前由规则计算出的事实数据，
// 防止模型凭空捏造匹配情况
type FactualBaseline struct {
	CandidateSkills      []string
	RequiredSkills       []string
	MatchedSkills        []string
	MissingSkills        []string
	SkillMatchPercentage float64
	YearsOfExperience    float64
	MinRequiredYears     float64
	EducationScore       float64
	EducationRelevant    bool
	Degrees              []string
	RoleRelevant         bool
	RelevantRoles        []string
	AllRoles             []string
	ProjectCount         int
	AchievementCount     int
}

// ExtractSkills 汇总候选人的全部技能：技术技能 + 工具 + 项目用到的技术，去重
func ExtractSkills(candidate *types.Candidate) []string {
	var skills []string
	skills = append(skills, candidate.Skills.Technical...)
	skills = append(skills, candidate.Skills.Tools...)
	for _, proj := range candidate.Projects {
		skills = append(skills, proj.Technologies...)
	}

	seen := make(map[string]struct{}, len(skills))
	unique := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

// MatchSkills 将候选人技能与岗位必需技能做大小写不敏感的精确匹配
// 返回: (匹配到的必需技能, 缺失的必需技能)
func MatchSkills(candidateSkills, requiredSkills []string) ([]string, []string) {
	candidateSet := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		candidateSet[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	var matched, missing []string
	for _, req := range requiredSkills {
		if _, ok := candidateSet[strings.ToLower(strings.TrimSpace(req))]; ok {
			matched = append(matched, req)
		} else {
			missing = append(missing, req)
		}
	}
	return matched, missing
}

// 日期解析尝试的布局，覆盖简历中常见写法
var dateLayouts = []string{
	"Jan 2006", "January 2006", "Jan. 2006",
	"2006-01", "2006/01", "01/2006", "1/2006",
	"2006-01-02", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
	"2006",
}

// parseFlexibleDate 宽松解析简历中的日期字符串
func parseFlexibleDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}
	// 去掉连接符残留（如 "Jan 2020 – Dec 2021" 被整体塞进一个字段的情况）
	for _, dash := range []string{"–", "—"} {
		if strings.Contains(s, dash) {
			s = strings.TrimSpace(strings.Split(s, dash)[0])
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}

// isPresent 判断结束日期是否表示"至今"
func isPresent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present", "current", "now", "":
		return true
	}
	return false
}

// CalculateExperienceYears 根据各段经历的日期范围计算总工作年限。
// 某段经历的日期无法解析时按12个月兜底，与其说丢弃不如保守计入。
func CalculateExperienceYears(candidate *types.Candidate, now time.Time) float64 {
	if len(candidate.Experience) == 0 {
		return 0
	}

	totalMonths := 0
	for _, exp := range candidate.Experience {
		start, err := parseFlexibleDate(exp.StartDate)
		if err != nil {
			totalMonths += 12
			continue
		}

		var end time.Time
		if isPresent(exp.EndDate) {
			end = now
		} else {
			end, err = parseFlexibleDate(exp.EndDate)
			if err != nil {
				totalMonths += 12
				continue
			}
		}

		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		if months > 0 {
			totalMonths += months
		}
	}

	return math.Round(float64(totalMonths)/12*10) / 10
}

// CheckEducationRelevance 按关键词对学历做技术岗位相关性打分：
// 100(计算机类) / 70(理工类) / 30(有学位但不相关) / 10(其他)
func CheckEducationRelevance(candidate *types.Candidate) (score float64, relevant bool, degrees []string) {
	if len(candidate.Education) == 0 {
		return 0, false, nil
	}

	for _, edu := range candidate.Education {
		degrees = append(degrees, edu.Degree)
	}
	degreesText := strings.ToLower(strings.Join(degrees, " "))

	for _, kw := range highRelevanceDegrees {
		if strings.Contains(degreesText, kw) {
			return 100, true, degrees
		}
	}
	for _, kw := range mediumRelevanceDegrees {
		if strings.Contains(degreesText, kw) {
			return 70, true, degrees
		}
	}
	for _, kw := range anyDegreeKeywords {
		if strings.Contains(degreesText, kw) {
			return 30, false, degrees
		}
	}
	return 10, false, degrees
}

// CheckRoleRelevance 按职位名称关键词判断过往经历是否与技术岗位相关
func CheckRoleRelevance(candidate *types.Candidate) (relevant bool, relevantRoles, allRoles []string) {
	for _, exp := range candidate.Experience {
		allRoles = append(allRoles, exp.Position)
		positionLower := strings.ToLower(exp.Position)
		for _, kw := range relevantRoleKeywords {
			if strings.Contains(positionLower, kw) {
				relevantRoles = append(relevantRoles, exp.Position)
				break
			}
		}
	}
	return len(relevantRoles) > 0, relevantRoles, allRoles
}

// GetFactualBaseline 在LLM评估前抽取全部事实数据
func GetFactualBaseline(candidate *types.Candidate, req *types.JobRequirements, now time.Time) *FactualBaseline {
	candidateSkills := ExtractSkills(candidate)
	matched, missing := MatchSkills(candidateSkills, req.RequiredSkills)

	// 岗位没写必需技能时无从匹配，取中位值
	skillMatchPercentage := 50.0
	if len(req.RequiredSkills) > 0 {
		skillMatchPercentage = math.Round(float64(len(matched))/float64(len(req.RequiredSkills))*100*10) / 10
	}

	eduScore, eduRelevant, degrees := CheckEducationRelevance(candidate)
	roleRelevant, relevantRoles, allRoles := CheckRoleRelevance(candidate)

	achievementCount := 0
	for _, a := range candidate.Achievements {
		if strings.TrimSpace(a) != "" {
			achievementCount++
		}
	}

	return &FactualBaseline{
		CandidateSkills:      candidateSkills,
		RequiredSkills:       req.RequiredSkills,
		MatchedSkills:        matched,
		MissingSkills:        missing,
		SkillMatchPercentage: skillMatchPercentage,
		YearsOfExperience:    CalculateExperienceYears(candidate, now),
		MinRequiredYears:     req.MinExperienceYears,
		EducationScore:       eduScore,
		EducationRelevant:    eduRelevant,
		Degrees:              degrees,
		RoleRelevant:         roleRelevant,
		RelevantRoles:        relevantRoles,
		AllRoles:             allRoles,
		ProjectCount:         len(candidate.Projects),
		AchievementCount:     achievementCount,
	}
}
