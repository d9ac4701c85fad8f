package handler

import (
	"context"
	"fmt"
	"time"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/llm"
	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/screening"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/types"
	"resume-screener-go/pkg/utils"
)

// ScreeningHandler 筛选处理器，负责JD解析、候选人加载与批量评分
type ScreeningHandler struct {
	cfg          *config.Config
	storage      *storage.Storage
	jdParser     *parser.JDParser
	orchestrator *screening.Orchestrator
	extractor    *parser.EinoPDFTextExtractor
	structurer   *parser.ResumeStructurer
	ollamaModel  *llm.OllamaChatModel // 模型列表和健康探测
}

// NewScreeningHandler 创建筛选处理器
func NewScreeningHandler(
	cfg *config.Config,
	storage *storage.Storage,
	jdParser *parser.JDParser,
	orchestrator *screening.Orchestrator,
	extractor *parser.EinoPDFTextExtractor,
	structurer *parser.ResumeStructurer,
	ollamaModel *llm.OllamaChatModel,
) *ScreeningHandler {
	return &ScreeningHandler{
		cfg:          cfg,
		storage:      storage,
		jdParser:     jdParser,
		orchestrator: orchestrator,
		extractor:    extractor,
		structurer:   structurer,
		ollamaModel:  ollamaModel,
	}
}

// ParseFailure 单个文件的解析失败详情
type ParseFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// ParseAndScreenResponse 批量解析+筛选响应
type ParseAndScreenResponse struct {
	Result        *types.ScreeningResult `json:"result"`
	ParsedCount   int                    `json:"parsed_count"`
	ParseFailures []ParseFailure         `json:"parse_failures,omitempty"`
}

// OllamaHealthResponse Ollama运行时探测结果
type OllamaHealthResponse struct {
	Reachable bool   `json:"reachable"`
	BaseURL   string `json:"base_url"`
	Error     string `json:"error,omitempty"`
}

// UploadedFile 随请求内联提交的文件
type UploadedFile struct {
	Name string
	Data []byte
}

// ResolveJobRequirements 将JD文本解析为结构化需求，结果按JD哈希缓存
func (h *ScreeningHandler) ResolveJobRequirements(ctx context.Context, jdText string) (*types.JobRequirements, error) {
	jdHash := utils.CalculateSHA256([]byte(jdText))

	if h.storage != nil && h.storage.Redis != nil {
		cached, err := h.storage.Redis.GetCachedJobRequirements(ctx, jdHash)
		if err == nil {
			logger.Debug().Str("jd_hash", jdHash).Msg("JD需求缓存命中")
			return cached, nil
		}
		if err != storage.ErrNotFound {
			logger.Warn().Err(err).Msg("读取JD需求缓存失败")
		}
	}

	req, err := h.jdParser.Parse(ctx, jdText)
	if err != nil {
		return nil, err
	}

	if h.storage != nil && h.storage.Redis != nil {
		if err := h.storage.Redis.CacheJobRequirements(ctx, jdHash, req); err != nil {
			logger.Warn().Err(err).Msg("写入JD需求缓存失败")
		}
	}
	return req, nil
}

// HandleScreeningRun 对候选人库中全部候选人执行筛选。
// 相同JD+相同候选人集合的重复请求直接命中结果缓存。
func (h *ScreeningHandler) HandleScreeningRun(ctx context.Context, jdText string) (*types.ScreeningResult, error) {
	if jdText == "" {
		return nil, fmt.Errorf("岗位描述不能为空")
	}

	// 存储降级运行时候选人库不可用，拒绝而不是半途崩溃
	if h.storage == nil || h.storage.Redis == nil || h.storage.MinIO == nil {
		return nil, fmt.Errorf("%w: 候选人库需要Redis和MinIO", types.ErrStorageUnavailable)
	}

	candidateIDs, err := h.storage.Redis.ListCandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取候选人ID列表失败: %w", err)
	}
	if len(candidateIDs) == 0 {
		// Redis索引为空时回退到MinIO扫描，索引可能被清理过
		candidateIDs, err = h.storage.MinIO.ListCandidateIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("扫描候选人存储失败: %w", err)
		}
	}
	if len(candidateIDs) == 0 {
		return nil, fmt.Errorf("候选人库为空，请先上传并解析简历")
	}

	runHash := utils.ScreeningRunHash(jdText, candidateIDs)
	if cached, err := h.storage.Redis.GetCachedScreeningResult(ctx, runHash); err == nil {
		logger.Info().Str("run_hash", runHash).Msg("筛选结果缓存命中")
		return cached, nil
	} else if err != storage.ErrNotFound {
		logger.Warn().Err(err).Msg("读取筛选结果缓存失败")
	}

	req, err := h.ResolveJobRequirements(ctx, jdText)
	if err != nil {
		return nil, err
	}

	candidates := make([]*types.Candidate, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		candidate, err := h.storage.MinIO.GetCandidateJSON(ctx, id)
		if err != nil {
			logger.Warn().Err(err).Str("candidate_id", id).Msg("加载候选人数据失败，跳过")
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("没有可加载的候选人数据")
	}

	result, err := h.orchestrator.Screen(ctx, candidates, req)
	if err != nil {
		return nil, err
	}

	if !h.cfg.Screening.ShowBreakdown {
		stripAgentDetails(result)
	}

	if err := h.storage.Redis.CacheScreeningResult(ctx, runHash, result); err != nil {
		logger.Warn().Err(err).Msg("写入筛选结果缓存失败")
	}
	return result, nil
}

// HandleParseAndScreen 内联解析一批PDF后立即筛选。
// 单个文件解析失败只记录，不阻断整批；至少一份解析成功才会执行筛选。
func (h *ScreeningHandler) HandleParseAndScreen(ctx context.Context, files []UploadedFile, jdText string) (*ParseAndScreenResponse, error) {
	if jdText == "" {
		return nil, fmt.Errorf("岗位描述不能为空")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("没有上传任何文件")
	}

	var candidates []*types.Candidate
	var failures []ParseFailure

	for i, file := range files {
		candidate, err := h.parseOne(ctx, file)
		if err != nil {
			logger.Warn().Err(err).Str("filename", file.Name).Msg("解析简历失败")
			failures = append(failures, ParseFailure{Filename: file.Name, Error: err.Error()})
			continue
		}
		if candidate.ID == "" {
			candidate.ID = fmt.Sprintf("inline_%d", i+1)
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("全部 %d 个文件解析失败", len(files))
	}

	req, err := h.ResolveJobRequirements(ctx, jdText)
	if err != nil {
		return nil, err
	}

	result, err := h.orchestrator.Screen(ctx, candidates, req)
	if err != nil {
		return nil, err
	}

	if !h.cfg.Screening.ShowBreakdown {
		stripAgentDetails(result)
	}

	return &ParseAndScreenResponse{
		Result:        result,
		ParsedCount:   len(candidates),
		ParseFailures: failures,
	}, nil
}

// parseOne 校验、提取单个文件的文本并结构化。
// 扩展名和大小校验在任何提取或模型调用之前执行。
func (h *ScreeningHandler) parseOne(ctx context.Context, file UploadedFile) (*types.Candidate, error) {
	if err := validateUploadFile(h.cfg, file.Name, int64(len(file.Data))); err != nil {
		return nil, err
	}
	text, _, err := h.extractor.ExtractTextFromBytes(ctx, file.Data, file.Name, nil)
	if err != nil {
		return nil, err
	}
	candidate, err := h.structurer.Structure(ctx, text)
	if err != nil {
		return nil, err
	}
	candidate.SourceFile = file.Name
	return candidate, nil
}

// HandleListModels 列出Ollama可用模型
func (h *ScreeningHandler) HandleListModels(ctx context.Context) ([]string, error) {
	return h.ollamaModel.ListModels(ctx)
}

// HandleOllamaHealth 探测Ollama运行时是否可达
func (h *ScreeningHandler) HandleOllamaHealth(ctx context.Context) *OllamaHealthResponse {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp := &OllamaHealthResponse{BaseURL: h.cfg.Ollama.BaseURL}
	reachable, err := h.ollamaModel.Ping(probeCtx)
	resp.Reachable = reachable
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// stripAgentDetails 配置关闭明细时去掉各Agent的详细结果
func stripAgentDetails(result *types.ScreeningResult) {
	for i := range result.Candidates {
		result.Candidates[i].AgentResults = nil
	}
}
