package screening

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/types"
)

// 固定时间源，保证年限计算可重复
var fixedNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func TestExtractSkills(t *testing.T) {
	candidate := &types.Candidate{
		Skills: types.Skills{
			Technical: []string{"Python", "go"},
			Tools:     []string{"Docker"},
		},
		Projects: []types.Project{
			{Name: "api", Technologies: []string{"python", "Kubernetes"}},
		},
	}

	skills := ExtractSkills(candidate)
	// python 与 Python 大小写不同视为同一技能，保留首次出现的写法
	assert.Equal(t, []string{"Python", "go", "Docker", "Kubernetes"}, skills, "技能汇总去重结果不符")
}

func TestExtractSkillsIgnoresBlank(t *testing.T) {
	candidate := &types.Candidate{
		Skills: types.Skills{Technical: []string{"  ", "Go", ""}},
	}
	assert.Equal(t, []string{"Go"}, ExtractSkills(candidate), "空白技能应被过滤")
}

func TestMatchSkills(t *testing.T) {
	matched, missing := MatchSkills(
		[]string{"python", "Go", "Redis"},
		[]string{"Python", "SQL"},
	)

	assert.Equal(t, []string{"Python"}, matched, "匹配应大小写不敏感且按岗位写法返回")
	assert.Equal(t, []string{"SQL"}, missing, "缺失技能判断错误")
}

func TestCalculateExperienceYears(t *testing.T) {
	candidate := &types.Candidate{
		Experience: []types.Experience{
			{Position: "Engineer", StartDate: "Jan 2020", EndDate: "Jan 2022"}, // 24个月
			{Position: "Senior Engineer", StartDate: "Mar 2023", EndDate: "Present"}, // 到2026-08共41个月
		},
	}

	years := CalculateExperienceYears(candidate, fixedNow)
	assert.Equal(t, 5.4, years, "总年限计算错误") // (24+41)/12 = 5.42 -> 5.4
}

func TestCalculateExperienceYearsUnparseableDates(t *testing.T) {
	candidate := &types.Candidate{
		Experience: []types.Experience{
			{Position: "Engineer", StartDate: "some garbage", EndDate: "whatever"},
		},
	}

	// 无法解析的日期按12个月保守计入
	assert.Equal(t, 1.0, CalculateExperienceYears(candidate, fixedNow), "日期不可解析时应按1年兜底")
}

func TestCalculateExperienceYearsEmpty(t *testing.T) {
	assert.Equal(t, 0.0, CalculateExperienceYears(&types.Candidate{}, fixedNow), "无经历时年限应为0")
}

func TestParseFlexibleDate(t *testing.T) {
	valid := []string{"Jan 2020", "January 2020", "2020-01", "01/2020", "2020", "Jan 2, 2020"}
	for _, s := range valid {
		parsed, err := parseFlexibleDate(s)
		require.NoError(t, err, "日期 %q 应能被解析", s)
		assert.Equal(t, 2020, parsed.Year(), "日期 %q 解析出的年份错误", s)
	}

	_, err := parseFlexibleDate("")
	assert.Error(t, err, "空字符串应返回错误")
	_, err = parseFlexibleDate("not a date")
	assert.Error(t, err, "无法识别的格式应返回错误")
}

func TestCheckEducationRelevance(t *testing.T) {
	tests := []struct {
		name     string
		degree   string
		score    float64
		relevant bool
	}{
		{"计算机类学位", "Bachelor of Computer Science", 100, true},
		{"理工类学位", "B.Tech in Electronics", 70, true},
		{"不相关学位", "Bachelor of Arts", 30, false},
		{"无法识别的学历", "High School Diploma", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &types.Candidate{
				Education: []types.Education{{Degree: tt.degree}},
			}
			score, relevant, degrees := CheckEducationRelevance(candidate)
			assert.Equal(t, tt.score, score, "学历相关性分数错误")
			assert.Equal(t, tt.relevant, relevant, "学历相关性判断错误")
			assert.Equal(t, []string{tt.degree}, degrees, "学位列表不符")
		})
	}

	// 无教育经历
	score, relevant, degrees := CheckEducationRelevance(&types.Candidate{})
	assert.Equal(t, 0.0, score, "无教育经历时分数应为0")
	assert.False(t, relevant, "无教育经历时不应判定为相关")
	assert.Empty(t, degrees, "无教育经历时学位列表应为空")
}

func TestCheckRoleRelevance(t *testing.T) {
	candidate := &types.Candidate{
		Experience: []types.Experience{
			{Position: "Sales Manager"},
			{Position: "Software Engineer"},
		},
	}

	relevant, relevantRoles, allRoles := CheckRoleRelevance(candidate)
	assert.True(t, relevant, "包含技术职位时应判定为相关")
	assert.Equal(t, []string{"Software Engineer"}, relevantRoles, "相关职位筛选错误")
	assert.Equal(t, []string{"Sales Manager", "Software Engineer"}, allRoles, "全部职位列表不符")

	irrelevant := &types.Candidate{
		Experience: []types.Experience{{Position: "Accountant"}},
	}
	relevant, relevantRoles, _ = CheckRoleRelevance(irrelevant)
	assert.False(t, relevant, "无技术职位时不应判定为相关")
	assert.Empty(t, relevantRoles, "无技术职位时相关列表应为空")
}

func TestGetFactualBaseline(t *testing.T) {
	candidate := &types.Candidate{
		Skills: types.Skills{Technical: []string{"Python", "Go"}},
		Education: []types.Education{
			{Degree: "Bachelor of Computer Science", Institution: "Some University"},
		},
		Experience: []types.Experience{
			{Position: "Backend Developer", StartDate: "Jan 2022", EndDate: "Present"},
		},
		Projects:     []types.Project{{Name: "crawler", Technologies: []string{"Python"}}},
		Achievements: []string{"Hackathon winner", "  "},
	}
	req := &types.JobRequirements{
		RequiredSkills:     []string{"Python", "Rust"},
		MinExperienceYears: 2,
	}

	facts := GetFactualBaseline(candidate, req, fixedNow)

	assert.Equal(t, 50.0, facts.SkillMatchPercentage, "1/2技能匹配率应为50%")
	assert.Equal(t, []string{"Python"}, facts.MatchedSkills, "匹配技能不符")
	assert.Equal(t, []string{"Rust"}, facts.MissingSkills, "缺失技能不符")
	assert.Equal(t, 100.0, facts.EducationScore, "计算机类学历应得满分")
	assert.True(t, facts.RoleRelevant, "Backend Developer应判定为相关职位")
	assert.Equal(t, 2.0, facts.MinRequiredYears, "岗位年限要求不符")
	assert.Equal(t, 1, facts.ProjectCount, "项目数不符")
	assert.Equal(t, 1, facts.AchievementCount, "空白成就不应计数")
	assert.Greater(t, facts.YearsOfExperience, 4.0, "2022年1月至今的年限应超过4年")
}

func TestGetFactualBaselineNoRequiredSkills(t *testing.T) {
	candidate := &types.Candidate{
		Skills: types.Skills{Technical: []string{"Go"}},
	}
	facts := GetFactualBaseline(candidate, &types.JobRequirements{}, fixedNow)

	// 岗位没写必需技能时无从匹配，取中位值
	assert.Equal(t, 50.0, facts.SkillMatchPercentage, "无必需技能时匹配率应取中位值50%")
}
