package handler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err, "测试环境应能获得默认配置")
	return cfg
}

// 校验只依赖配置。存储、提取器和模型全部传nil，
// 任何在校验前触碰它们的代码路径都会直接panic暴露出来。
func validationOnlyHandler(t *testing.T) *ResumeHandler {
	return NewResumeHandler(testConfig(t), nil, nil, nil, nil)
}

func TestValidateUploadFileAccepted(t *testing.T) {
	h := validationOnlyHandler(t)
	assert.NoError(t, h.ValidateUploadFile("resume.pdf", 1024), "合法PDF应通过校验")
	assert.NoError(t, h.ValidateUploadFile("Resume.PDF", 1024), "扩展名大小写不应影响校验")
}

func TestValidateUploadFileRejectsUnsupportedType(t *testing.T) {
	h := validationOnlyHandler(t)

	for _, filename := range []string{"resume.docx", "resume.txt", "resume", "resume.pdf.exe"} {
		err := h.ValidateUploadFile(filename, 1024)
		require.Error(t, err, "文件 %s 应被拒绝", filename)
		assert.True(t, errors.Is(err, types.ErrUnsupportedFileType), "文件 %s 的错误应可识别为类型不支持", filename)
	}
}

func TestValidateUploadFileRejectsTooLarge(t *testing.T) {
	cfg := testConfig(t)
	h := NewResumeHandler(cfg, nil, nil, nil, nil)

	err := h.ValidateUploadFile("resume.pdf", cfg.Server.MaxFileSizeBytes+1)
	require.Error(t, err, "超限文件应被拒绝")
	assert.True(t, errors.Is(err, types.ErrFileTooLarge), "错误应可识别为文件过大")

	assert.NoError(t, h.ValidateUploadFile("resume.pdf", cfg.Server.MaxFileSizeBytes), "恰好等于上限的文件应通过")
}

// TestHandleResumeParseRejectsBeforeExtraction 非法文件在任何提取或模型调用前被拒绝。
// 提取器和结构化器为nil，若校验后还继续执行会panic。
func TestHandleResumeParseRejectsBeforeExtraction(t *testing.T) {
	h := validationOnlyHandler(t)

	_, err := h.HandleResumeParse(context.Background(), []byte("fake content"), "resume.docx", false)
	require.Error(t, err, "非法扩展名应被拒绝")
	assert.True(t, errors.Is(err, types.ErrUnsupportedFileType))

	tooLarge := make([]byte, testConfig(t).Server.MaxFileSizeBytes+1)
	_, err = h.HandleResumeParse(context.Background(), tooLarge, "resume.pdf", false)
	require.Error(t, err, "超限文件应被拒绝")
	assert.True(t, errors.Is(err, types.ErrFileTooLarge))
}

// TestHandleResumeUploadRejectsBeforeStorage 非法文件在触碰存储前被拒绝
func TestHandleResumeUploadRejectsBeforeStorage(t *testing.T) {
	h := validationOnlyHandler(t)

	_, err := h.HandleResumeUpload(context.Background(), []byte("x"), "notes.txt", "web_upload")
	require.Error(t, err, "非法扩展名应被拒绝")
	assert.True(t, errors.Is(err, types.ErrUnsupportedFileType))
}

func TestScreenErrorFormatting(t *testing.T) {
	err := types.NewFileTooLargeError("uuid-123", "文件大小 99 字节超过上限 10 字节")
	assert.True(t, errors.Is(err, types.ErrFileTooLarge), "包装错误应保留基础错误类型")
	assert.Contains(t, err.Error(), "uuid-123", "错误信息应携带提交UUID")
	assert.Contains(t, err.Error(), "超过上限", "错误信息应携带详情")

	var screenErr *types.ScreenError
	require.True(t, errors.As(err, &screenErr), "应能断言为ScreenError")
	assert.Equal(t, "validate", screenErr.Op, "操作名不符")
}

// TestHandleParseAndScreenInputValidation 筛选入口的参数校验不依赖任何下游组件
func TestHandleParseAndScreenInputValidation(t *testing.T) {
	h := NewScreeningHandler(testConfig(t), nil, nil, nil, nil, nil, nil)

	_, err := h.HandleParseAndScreen(context.Background(), []UploadedFile{{Name: "a.pdf"}}, "")
	require.Error(t, err, "空岗位描述应被拒绝")
	assert.True(t, strings.Contains(err.Error(), "岗位描述"), "错误应说明缺少岗位描述")

	_, err = h.HandleParseAndScreen(context.Background(), nil, "some jd")
	require.Error(t, err, "没有文件应被拒绝")
}

// TestHandleScreeningRunRequiresJD 空岗位描述直接拒绝，不触碰存储
func TestHandleScreeningRunRequiresJD(t *testing.T) {
	h := NewScreeningHandler(testConfig(t), nil, nil, nil, nil, nil, nil)

	_, err := h.HandleScreeningRun(context.Background(), "")
	require.Error(t, err, "空岗位描述应被拒绝")
}

// TestHandleScreeningRunDegradedStorage 存储组件初始化失败时各字段为nil，
// 请求应返回服务不可用错误而不是崩溃
func TestHandleScreeningRunDegradedStorage(t *testing.T) {
	h := NewScreeningHandler(testConfig(t), &storage.Storage{}, nil, nil, nil, nil, nil)

	var err error
	assert.NotPanics(t, func() {
		_, err = h.HandleScreeningRun(context.Background(), "some job description")
	}, "存储降级时筛选请求不应崩溃")
	require.Error(t, err, "存储降级时筛选请求应返回错误")
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "错误应可识别为存储不可用")
}

// TestHandleResumeUploadDegradedStorage 上传流水线在存储降级时拒绝请求
func TestHandleResumeUploadDegradedStorage(t *testing.T) {
	h := NewResumeHandler(testConfig(t), &storage.Storage{}, nil, nil, nil)

	var err error
	assert.NotPanics(t, func() {
		_, err = h.HandleResumeUpload(context.Background(), []byte("%PDF-1.5"), "resume.pdf", "web_upload")
	}, "存储降级时上传请求不应崩溃")
	require.Error(t, err, "存储降级时上传请求应返回错误")
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "错误应可识别为存储不可用")
}

// TestCandidateOpsDegradedStorage 统计和清空接口在存储降级时同样拒绝
func TestCandidateOpsDegradedStorage(t *testing.T) {
	h := NewResumeHandler(testConfig(t), &storage.Storage{}, nil, nil, nil)

	assert.NotPanics(t, func() {
		_, err := h.HandleCandidateStats(context.Background())
		assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "统计接口应返回存储不可用")

		_, err = h.HandleClearCandidates(context.Background())
		assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "清空接口应返回存储不可用")
	}, "存储降级时候选人库接口不应崩溃")
}

// TestStartConsumersDegradedStorage 消息队列缺失时消费者启动直接失败
func TestStartConsumersDegradedStorage(t *testing.T) {
	h := NewResumeHandler(testConfig(t), &storage.Storage{}, nil, nil, nil)

	err := h.StartResumeUploadConsumer(context.Background())
	require.Error(t, err, "RabbitMQ缺失时第一阶段消费者应拒绝启动")
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable))

	err = h.StartLLMParsingConsumer(context.Background())
	require.Error(t, err, "RabbitMQ缺失时第二阶段消费者应拒绝启动")
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable))
}

// TestHandleParseAndScreenValidatesFilesBeforeExtraction 批量入口的文件校验
// 在任何提取或模型调用之前执行。提取器和结构化器为nil，校验后继续会panic。
func TestHandleParseAndScreenValidatesFilesBeforeExtraction(t *testing.T) {
	cfg := testConfig(t)
	h := NewScreeningHandler(cfg, nil, nil, nil, nil, nil, nil)

	tooLarge := make([]byte, cfg.Server.MaxFileSizeBytes+1)
	files := []UploadedFile{
		{Name: "resume.txt", Data: []byte("plain text")},
		{Name: "resume.exe", Data: []byte("binary")},
		{Name: "huge.pdf", Data: tooLarge},
	}

	var resp *ParseAndScreenResponse
	var err error
	assert.NotPanics(t, func() {
		resp, err = h.HandleParseAndScreen(context.Background(), files, "some jd")
	}, "非法文件应在提取前被拒绝")
	require.Error(t, err, "全部文件非法时应返回错误")
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "全部 3 个文件解析失败", "错误应说明全部文件解析失败")
}
