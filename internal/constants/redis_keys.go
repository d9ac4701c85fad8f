package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// CandidateModulePrefix 候选人模块
	CandidateModulePrefix = "candidate"
	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"
	// ScreeningModulePrefix 筛选模块
	ScreeningModulePrefix = "screening"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToUUID MD5到UUID的映射实体
	EntityMD5ToUUID = "md5_to_uuid"
	// EntityCounter 计数器实体
	EntityCounter = "counter"
	// EntityIndex 索引集合实体
	EntityIndex = "index"
	// EntityRequirements JD结构化需求实体
	EntityRequirements = "requirements"
	// EntityResult 筛选结果实体
	EntityResult = "result"

	// KeyFileMD5Set 原始文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToSubmissionUUID MD5到SubmissionUUID的映射 (STRING)
	// 格式: app:file:md5_to_uuid:{md5}
	KeyFileMD5ToSubmissionUUID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToUUID + ":%s"

	// KeyCandidateCounter 候选人序号计数器 (STRING, INCR)
	// 格式: app:candidate:counter
	KeyCandidateCounter = AppPrefix + ":" + CandidateModulePrefix + ":" + EntityCounter

	// KeyCandidateIndex 已注册候选人ID集合 (SET)
	// 格式: app:candidate:index
	KeyCandidateIndex = AppPrefix + ":" + CandidateModulePrefix + ":" + EntityIndex

	// KeyJobRequirements JD结构化需求缓存 (STRING)
	// 格式: app:job:requirements:{jdHash}
	KeyJobRequirements = AppPrefix + ":" + JobModulePrefix + ":" + EntityRequirements + ":%s"

	// KeyScreeningResult 筛选结果缓存 (STRING)
	// 格式: app:screening:result:{runHash}
	KeyScreeningResult = AppPrefix + ":" + ScreeningModulePrefix + ":" + EntityResult + ":%s"
)
