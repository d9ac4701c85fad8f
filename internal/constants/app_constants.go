package constants

import "time"

const (
	// 应用级常量
	DefaultSchemaVer = "1.0" // 候选人结构化JSON的Schema版本

	// 上传限制
	DefaultMaxFileSizeBytes = 10 * 1024 * 1024 // 默认最大上传文件大小：10MB
	AllowedResumeExt        = ".pdf"           // 仅接受PDF简历

	// 缓存时长
	JDRequirementsCacheDuration = 24 * time.Hour   // JD解析结果缓存时长
	ScreeningResultCacheTTL     = 30 * time.Minute // 筛选结果缓存时长

	// 候选人ID前缀，生成形如 candidate_1, candidate_2 ... 的序号ID
	CandidateIDPrefix = "candidate_"
)
