package types

// PersonalInfo 候选人基本信息
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Experience 一段工作经历
type Experience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"start_date,omitempty"` // 保留原文格式，解析在筛选阶段做
	EndDate          string   `json:"end_date,omitempty"`   // 可能是 "Present" / "Current" 等
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// Education 一段教育经历
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Location    string `json:"location,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// Skills 技能分类
type Skills struct {
	Technical  []string `json:"technical,omitempty"`
	SoftSkills []string `json:"soft_skills,omitempty"`
	Tools      []string `json:"tools,omitempty"`
}

// Certification 证书
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Project 项目经历
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Link         string   `json:"link,omitempty"`
}

// Candidate 结构化后的完整候选人数据，由LLM从简历文本中抽取
type Candidate struct {
	ID             string          `json:"id,omitempty"` // 形如 candidate_3 的序号ID
	SourceFile     string          `json:"source_file,omitempty"`
	PersonalInfo   PersonalInfo    `json:"personal_info"`
	Summary        string          `json:"summary,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Skills         Skills          `json:"skills"`
	Certifications []Certification `json:"certifications,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
	Achievements   []string        `json:"achievements,omitempty"`
}

// DisplayName 返回用于展示的候选人名称，缺失时退回ID或文件名
func (c *Candidate) DisplayName() string {
	if c.PersonalInfo.Name != "" {
		return c.PersonalInfo.Name
	}
	if c.ID != "" {
		return c.ID
	}
	return c.SourceFile
}

// JobRequirements JD解析出的结构化岗位需求
type JobRequirements struct {
	RequiredSkills         []string `json:"required_skills"`
	PreferredSkills        []string `json:"preferred_skills,omitempty"`
	MinExperienceYears     float64  `json:"min_experience_years"`
	EducationRequirements  string   `json:"education_requirements,omitempty"`
	RoleLevel              string   `json:"role_level"` // junior / mid / senior / lead
	KeyResponsibilities    []string `json:"key_responsibilities,omitempty"`
	CultureIndicators      []string `json:"culture_indicators,omitempty"`
	Domain                 string   `json:"domain,omitempty"`
	MustHaveQualifications []string `json:"must_have_qualifications,omitempty"`
	RiskFactorsToWatch     []string `json:"risk_factors_to_watch,omitempty"`
}

// DefaultJobRequirements JD解析失败时的最小兜底结构
func DefaultJobRequirements() *JobRequirements {
	return &JobRequirements{
		RequiredSkills: []string{},
		RoleLevel:      "mid",
	}
}

// AgentResult 单个评估Agent的产出
type AgentResult struct {
	AgentName  string   `json:"agent_name"`
	Score      float64  `json:"score"` // 0-100
	Reasoning  string   `json:"reasoning,omitempty"`
	Strengths  []string `json:"strengths,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
	Adjustment float64  `json:"adjustment,omitempty"` // LLM对事实基线的修正量，限制在±10
}

// ScoreBreakdown 三个维度的原始分与加权分
type ScoreBreakdown struct {
	Technical float64 `json:"technical"`
	Career    float64 `json:"career"`
	Fit       float64 `json:"fit"`
}

// RankedCandidate 单个候选人的最终评分结果
type RankedCandidate struct {
	Rank           int            `json:"rank"`
	CandidateID    string         `json:"candidate_id"`
	Name           string         `json:"name"`
	TotalScore     float64        `json:"total_score"`
	Tier           string         `json:"tier"`
	Confidence     float64        `json:"confidence"`
	PercentileRank float64        `json:"percentile_rank"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	WeightedScores ScoreBreakdown `json:"weighted_scores"`
	AgentResults   []AgentResult  `json:"agent_results,omitempty"`
	Status         string         `json:"status"` // scored / failed
	Error          string         `json:"error,omitempty"`
}

// ScreeningResult 一次筛选运行的完整结果
type ScreeningResult struct {
	RunID          string            `json:"run_id"`
	Requirements   *JobRequirements  `json:"requirements"`
	Candidates     []RankedCandidate `json:"candidates"`
	TotalScreened  int               `json:"total_screened"`
	FailedCount    int               `json:"failed_count"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
}
