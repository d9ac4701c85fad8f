package types

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrFileTooLarge            = errors.New("文件超过大小限制")
	ErrUnsupportedFileType     = errors.New("不支持的文件类型")
	ErrUnreadablePDF           = errors.New("无法读取PDF内容")
	ErrModelUnreachable        = errors.New("无法连接LLM运行时")
	ErrMalformedModelResponse  = errors.New("LLM响应格式错误")
	ErrCandidateDownloadFailed = errors.New("下载候选人文件失败")
	ErrCandidateRegistryFailed = errors.New("候选人注册表操作失败")
	ErrScreeningPublishFailed  = errors.New("发布筛选流水线消息失败")
	ErrStorageUnavailable      = errors.New("存储服务不可用")
)

// ScreenError 包含详细错误信息的自定义错误
type ScreenError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *ScreenError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *ScreenError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ScreenError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewFileTooLargeError(uuid, detail string) error {
	return &ScreenError{
		SubmissionUUID: uuid,
		Op:             "validate",
		BaseErr:        ErrFileTooLarge,
		Detail:         detail,
	}
}

func NewUnsupportedFileTypeError(uuid, detail string) error {
	return &ScreenError{
		SubmissionUUID: uuid,
		Op:             "validate",
		BaseErr:        ErrUnsupportedFileType,
		Detail:         detail,
	}
}

func NewDownloadError(uuid, detail string) error {
	return &ScreenError{
		SubmissionUUID: uuid,
		Op:             "download",
		BaseErr:        ErrCandidateDownloadFailed,
		Detail:         detail,
	}
}

func NewRegistryError(uuid, detail string) error {
	return &ScreenError{
		SubmissionUUID: uuid,
		Op:             "registry",
		BaseErr:        ErrCandidateRegistryFailed,
		Detail:         detail,
	}
}

func NewPublishError(uuid, detail string) error {
	return &ScreenError{
		SubmissionUUID: uuid,
		Op:             "publish",
		BaseErr:        ErrScreeningPublishFailed,
		Detail:         detail,
	}
}
