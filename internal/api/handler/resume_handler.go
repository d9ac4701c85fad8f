package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/types"
	"resume-screener-go/pkg/utils"
)

// ResumeHandler 简历处理器，负责上传入库流水线与同步解析
type ResumeHandler struct {
	cfg        *config.Config
	storage    *storage.Storage
	extractor  *parser.EinoPDFTextExtractor
	structurer *parser.ResumeStructurer
	analyzer   *parser.ResumeAnalyzer // 可选，配置关闭时为nil
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(
	cfg *config.Config,
	storage *storage.Storage,
	extractor *parser.EinoPDFTextExtractor,
	structurer *parser.ResumeStructurer,
	analyzer *parser.ResumeAnalyzer,
) *ResumeHandler {
	return &ResumeHandler{
		cfg:        cfg,
		storage:    storage,
		extractor:  extractor,
		structurer: structurer,
		analyzer:   analyzer,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// ResumeParseResponse 同步解析响应
type ResumeParseResponse struct {
	CandidateID string                 `json:"candidate_id,omitempty"`
	Candidate   *types.Candidate       `json:"candidate"`
	Analysis    *parser.ResumeAnalysis `json:"analysis,omitempty"`
	TextLength  int                    `json:"text_length"`
}

// CandidateStatsResponse 候选人库统计
type CandidateStatsResponse struct {
	TotalCandidates int64    `json:"total_candidates"`
	CandidateIDs    []string `json:"candidate_ids,omitempty"`
}

// ValidateUploadFile 校验上传文件的扩展名和大小。
// 在任何模型调用或存储写入之前执行，失败时返回可用 errors.Is 识别的错误。
func (h *ResumeHandler) ValidateUploadFile(filename string, fileSize int64) error {
	return validateUploadFile(h.cfg, filename, fileSize)
}

// validateUploadFile 上传校验的公共实现，同步解析和批量筛选入口共用
func validateUploadFile(cfg *config.Config, filename string, fileSize int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range cfg.Server.AllowedExtensions {
		if ext == strings.ToLower(a) {
			allowed = true
			break
		}
	}
	if !allowed {
		return types.NewUnsupportedFileTypeError("", fmt.Sprintf("不支持的文件类型: %s", ext))
	}

	if fileSize > cfg.Server.MaxFileSizeBytes {
		return types.NewFileTooLargeError("", fmt.Sprintf("文件大小 %d 字节超过上限 %d 字节", fileSize, cfg.Server.MaxFileSizeBytes))
	}
	return nil
}

// HandleResumeUpload 处理简历上传请求：校验 → MD5去重 → MinIO存储 → 发布上传事件
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, fileBytes []byte,
	filename string, sourceChannel string) (*ResumeUploadResponse, error) {

	if err := h.ValidateUploadFile(filename, int64(len(fileBytes))); err != nil {
		return nil, err
	}

	// 存储降级运行时上传流水线整体不可用，拒绝而不是半途崩溃
	if h.storage == nil || h.storage.Redis == nil || h.storage.MinIO == nil || h.storage.RabbitMQ == nil {
		return nil, fmt.Errorf("%w: 上传流水线需要Redis、MinIO和RabbitMQ", types.ErrStorageUnavailable)
	}

	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// 1. 生成UUIDv7，时间有序便于排查
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	// 2. 原子地检查并登记文件MD5
	exists, existingUUID, err := h.storage.Redis.CheckAndSetFileMD5(ctx, fileMD5Hex, submissionUUID)
	if err != nil {
		logger.Error().Err(err).Str("md5", fileMD5Hex).Msg("查询Redis文件MD5失败")
		return nil, fmt.Errorf("检查文件MD5重复性失败: %w", err)
	}
	if exists {
		logger.Info().
			Str("md5", fileMD5Hex).
			Str("filename", filename).
			Str("existing_uuid", existingUUID).
			Msg("检测到重复的文件MD5，跳过处理")
		return &ResumeUploadResponse{
			SubmissionUUID: existingUUID,
			Status:         "DUPLICATE_FILE_SKIPPED",
		}, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))

	// 3. 上传原始文件到MinIO
	originalObjectKey, _, err := h.storage.MinIO.UploadResumeFileStreaming(
		ctx, submissionUUID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		// 上传失败回滚去重记录，否则该文件永远无法再次提交
		if rbErr := h.storage.Redis.RemoveFileMD5(ctx, fileMD5Hex); rbErr != nil {
			logger.Warn().Err(rbErr).Str("md5", fileMD5Hex).Msg("回滚文件MD5记录失败")
		}
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	// 4. 发布上传事件
	message := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalObjectKey:   originalObjectKey,
		RawFileMD5:          fileMD5Hex,
	}

	err = h.storage.RabbitMQ.PublishJSON(
		ctx,
		h.cfg.RabbitMQ.ResumeEventsExchange,
		h.cfg.RabbitMQ.UploadedRoutingKey,
		message,
		true, // 持久化
	)
	if err != nil {
		if rbErr := h.storage.Redis.RemoveFileMD5(ctx, fileMD5Hex); rbErr != nil {
			logger.Warn().Err(rbErr).Str("md5", fileMD5Hex).Msg("回滚文件MD5记录失败")
		}
		return nil, types.NewPublishError(submissionUUID, err.Error())
	}

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         "SUBMITTED_FOR_PROCESSING",
	}, nil
}

// HandleResumeParse 同步解析单份简历：提取文本 → LLM结构化 → 可选质量分析。
// 解析结果会注册到候选人库，供后续筛选使用。
func (h *ResumeHandler) HandleResumeParse(ctx context.Context, fileBytes []byte,
	filename string, withAnalysis bool) (*ResumeParseResponse, error) {

	if err := h.ValidateUploadFile(filename, int64(len(fileBytes))); err != nil {
		return nil, err
	}

	text, _, err := h.extractor.ExtractTextFromBytes(ctx, fileBytes, filename, nil)
	if err != nil {
		return nil, err
	}

	candidate, err := h.structurer.Structure(ctx, text)
	if err != nil {
		return nil, err
	}
	candidate.SourceFile = filename

	candidateID, err := h.registerCandidate(ctx, candidate)
	if err != nil {
		logger.Warn().Err(err).Str("filename", filename).Msg("注册候选人失败，解析结果仍然返回")
	}

	resp := &ResumeParseResponse{
		CandidateID: candidateID,
		Candidate:   candidate,
		TextLength:  len(text),
	}

	if withAnalysis && h.analyzer != nil {
		analysis, err := h.analyzer.Analyze(ctx, candidate)
		if err != nil {
			logger.Warn().Err(err).Str("filename", filename).Msg("简历质量分析失败")
		} else {
			resp.Analysis = analysis
		}
	}

	return resp, nil
}

// HandleExtractText 仅提取纯文本，调试辅助接口
func (h *ResumeHandler) HandleExtractText(ctx context.Context, fileBytes []byte, filename string) (string, error) {
	if err := h.ValidateUploadFile(filename, int64(len(fileBytes))); err != nil {
		return "", err
	}
	text, _, err := h.extractor.ExtractTextFromBytes(ctx, fileBytes, filename, nil)
	return text, err
}

// HandleCandidateStats 返回候选人库统计
func (h *ResumeHandler) HandleCandidateStats(ctx context.Context) (*CandidateStatsResponse, error) {
	if h.storage == nil || h.storage.Redis == nil {
		return nil, fmt.Errorf("%w: 候选人统计需要Redis", types.ErrStorageUnavailable)
	}
	count, err := h.storage.Redis.CountCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取候选人数量失败: %w", err)
	}
	ids, err := h.storage.Redis.ListCandidateIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取候选人ID列表失败: %w", err)
	}
	return &CandidateStatsResponse{
		TotalCandidates: count,
		CandidateIDs:    ids,
	}, nil
}

// HandleClearCandidates 清空候选人库：删除MinIO中的候选人对象与Redis索引
func (h *ResumeHandler) HandleClearCandidates(ctx context.Context) (int, error) {
	if h.storage == nil || h.storage.MinIO == nil || h.storage.Redis == nil {
		return 0, fmt.Errorf("%w: 清空候选人库需要MinIO和Redis", types.ErrStorageUnavailable)
	}
	deleted, err := h.storage.MinIO.ClearCandidates(ctx)
	if err != nil {
		return deleted, fmt.Errorf("清空候选人存储失败: %w", err)
	}
	if err := h.storage.Redis.ClearCandidates(ctx); err != nil {
		return deleted, fmt.Errorf("清空候选人索引失败: %w", err)
	}
	logger.Info().Int("deleted", deleted).Msg("候选人库已清空")
	return deleted, nil
}

// registerCandidate 分配顺序ID、写入MinIO并加入Redis索引
func (h *ResumeHandler) registerCandidate(ctx context.Context, candidate *types.Candidate) (string, error) {
	if h.storage == nil || h.storage.Redis == nil || h.storage.MinIO == nil {
		return "", fmt.Errorf("%w: 注册候选人需要Redis和MinIO", types.ErrStorageUnavailable)
	}
	candidateID, err := h.storage.Redis.NextCandidateID(ctx)
	if err != nil {
		return "", types.NewRegistryError("", err.Error())
	}
	candidate.ID = candidateID

	if _, err := h.storage.MinIO.UploadCandidateJSON(ctx, candidateID, candidate); err != nil {
		return candidateID, types.NewRegistryError(candidateID, err.Error())
	}
	if err := h.storage.Redis.RegisterCandidate(ctx, candidateID); err != nil {
		return candidateID, types.NewRegistryError(candidateID, err.Error())
	}
	return candidateID, nil
}

// StartResumeUploadConsumer 启动第一阶段消费者：原始简历 → 纯文本
func (h *ResumeHandler) StartResumeUploadConsumer(ctx context.Context) error {
	if h.storage == nil || h.storage.RabbitMQ == nil || h.storage.MinIO == nil {
		return fmt.Errorf("%w: 消费者需要RabbitMQ和MinIO", types.ErrStorageUnavailable)
	}
	if err := h.storage.RabbitMQ.SetupResumeTopology(); err != nil {
		return fmt.Errorf("声明RabbitMQ拓扑失败: %w", err)
	}

	logger.Info().
		Str("queue", h.cfg.RabbitMQ.RawResumeQueue).
		Int("prefetch", h.cfg.RabbitMQ.PrefetchCount).
		Msg("简历上传消费者就绪")

	_, err := h.storage.RabbitMQ.StartConsumer(h.cfg.RabbitMQ.RawResumeQueue, h.cfg.RabbitMQ.PrefetchCount, func(data []byte) bool {
		var message storage.ResumeUploadMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析上传消息失败")
			return false
		}

		if err := h.processResumeText(ctx, message); err != nil {
			logger.Error().
				Err(err).
				Str("submission_uuid", message.SubmissionUUID).
				Msg("处理简历文本失败")
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}
	return nil
}

// processResumeText 下载原始简历、提取文本并发布解析事件
func (h *ResumeHandler) processResumeText(ctx context.Context, message storage.ResumeUploadMessage) error {
	fileContentBytes, err := h.storage.MinIO.GetResumeFile(ctx, message.OriginalObjectKey)
	if err != nil {
		return types.NewDownloadError(message.SubmissionUUID, err.Error())
	}

	text, _, err := h.extractor.ExtractTextFromBytes(ctx, fileContentBytes, message.OriginalFilename, nil)
	if err != nil {
		return fmt.Errorf("提取简历文本失败: %w", err)
	}

	textObjectKey, err := h.storage.MinIO.UploadParsedText(ctx, message.SubmissionUUID, text)
	if err != nil {
		return fmt.Errorf("上传提取文本到MinIO失败: %w", err)
	}

	parsedMessage := storage.ResumeParsedMessage{
		SubmissionUUID:      message.SubmissionUUID,
		ParsedTextObjectKey: textObjectKey,
		RawFileMD5:          message.RawFileMD5,
		ProcessedAt:         time.Now().Unix(),
	}

	err = h.storage.RabbitMQ.PublishJSON(
		ctx,
		h.cfg.RabbitMQ.ResumeEventsExchange,
		h.cfg.RabbitMQ.ParsedRoutingKey,
		parsedMessage,
		true,
	)
	if err != nil {
		return types.NewPublishError(message.SubmissionUUID, err.Error())
	}

	// 文本已经落库，原始文件不再需要，删除失败不影响流水线
	if err := h.storage.MinIO.DeleteFile(ctx, message.OriginalObjectKey); err != nil {
		logger.Warn().
			Err(err).
			Str("submission_uuid", message.SubmissionUUID).
			Str("object_key", message.OriginalObjectKey).
			Msg("删除已解析的原始简历失败")
	}
	return nil
}

// StartLLMParsingConsumer 启动第二阶段消费者：纯文本 → 结构化候选人
func (h *ResumeHandler) StartLLMParsingConsumer(ctx context.Context) error {
	if h.storage == nil || h.storage.RabbitMQ == nil || h.storage.MinIO == nil {
		return fmt.Errorf("%w: 消费者需要RabbitMQ和MinIO", types.ErrStorageUnavailable)
	}
	if err := h.storage.RabbitMQ.SetupResumeTopology(); err != nil {
		return fmt.Errorf("声明RabbitMQ拓扑失败: %w", err)
	}

	logger.Info().
		Str("queue", h.cfg.RabbitMQ.LLMParsingQueue).
		Int("prefetch", h.cfg.RabbitMQ.PrefetchCount).
		Msg("LLM结构化消费者就绪")

	_, err := h.storage.RabbitMQ.StartConsumer(h.cfg.RabbitMQ.LLMParsingQueue, h.cfg.RabbitMQ.PrefetchCount, func(data []byte) bool {
		var message storage.ResumeParsedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析结构化消息失败")
			return false
		}

		if err := h.processStructuring(ctx, message); err != nil {
			logger.Error().
				Err(err).
				Str("submission_uuid", message.SubmissionUUID).
				Msg("结构化简历失败")
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("启动消费者失败: %w", err)
	}
	return nil
}

// processStructuring 执行LLM结构化并注册候选人
func (h *ResumeHandler) processStructuring(ctx context.Context, message storage.ResumeParsedMessage) error {
	var text string
	var err error

	if message.ParsedText != "" {
		text = message.ParsedText
	} else if message.ParsedTextObjectKey != "" {
		text, err = h.storage.MinIO.GetParsedText(ctx, message.ParsedTextObjectKey)
		if err != nil {
			return types.NewDownloadError(message.SubmissionUUID, err.Error())
		}
	} else {
		return fmt.Errorf("消息中既没有文本内容也没有文本对象键")
	}

	candidate, err := h.structurer.Structure(ctx, text)
	if err != nil {
		return fmt.Errorf("结构化简历失败: %w", err)
	}
	candidate.SourceFile = message.SubmissionUUID

	candidateID, err := h.registerCandidate(ctx, candidate)
	if err != nil {
		return err
	}

	logger.Info().
		Str("submission_uuid", message.SubmissionUUID).
		Str("candidate_id", candidateID).
		Str("name", candidate.DisplayName()).
		Msg("候选人结构化完成")
	return nil
}
