package storage

import "time"

// ResumeUploadMessage 简历上传事件，由上传接口发布，原始简历消费者消费
type ResumeUploadMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`          // 提交UUID
	SubmissionTimestamp time.Time `json:"submission_timestamp"`     // 提交时间戳
	SourceChannel       string    `json:"source_channel,omitempty"` // 来源渠道
	OriginalFilename    string    `json:"original_filename"`        // 原始文件名
	OriginalObjectKey   string    `json:"original_object_key"`      // 原始文件在MinIO中的对象键
	RawFileMD5          string    `json:"raw_file_md5,omitempty"`   // 原始文件MD5，失败回滚去重记录时使用
}

// ResumeParsedMessage 文本提取完成事件，由原始简历消费者发布，LLM结构化消费者消费
type ResumeParsedMessage struct {
	SubmissionUUID      string `json:"submission_uuid"`                  // 提交UUID
	ParsedTextObjectKey string `json:"parsed_text_object_key,omitempty"` // 提取文本在MinIO中的对象键
	ParsedText          string `json:"parsed_text,omitempty"`            // 文本内容，小文件直接随消息传递
	RawFileMD5          string `json:"raw_file_md5,omitempty"`           // 原始文件MD5
	ProcessedAt         int64  `json:"processed_at,omitempty"`           // 处理时间戳
	Error               string `json:"error,omitempty"`                  // 错误信息
}
