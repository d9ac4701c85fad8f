package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/types"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadResumeFileStreaming 流式上传原始简历并同时计算MD5，返回对象键和MD5
	UploadResumeFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// UploadParsedText 上传提取后的纯文本
	UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error)

	// GetResumeFile 下载原始简历
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)

	// GetParsedText 下载提取文本
	GetParsedText(ctx context.Context, objectKey string) (string, error)

	// UploadCandidateJSON 上传结构化候选人数据
	UploadCandidateJSON(ctx context.Context, candidateID string, candidate *types.Candidate) (string, error)

	// GetCandidateJSON 下载结构化候选人数据
	GetCandidateJSON(ctx context.Context, candidateID string) (*types.Candidate, error)

	// ListCandidateIDs 列出候选人存储桶中所有候选人ID
	ListCandidateIDs(ctx context.Context) ([]string, error)

	// DeleteFile 删除原始简历对象
	DeleteFile(ctx context.Context, objectKey string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能，按原始简历/提取文本/结构化候选人分桶存放
type MinIO struct {
	client           *minio.Client
	cfg              *config.MinIOConfig
	originalsBucket  string
	parsedBucket     string
	candidatesBucket string
	logger           *log.Logger
}

// NewMinIO 创建MinIO客户端并确保三个存储桶存在
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "resume-originals"
	}
	parsedBucket := cfg.ParsedTextBucket
	if parsedBucket == "" {
		parsedBucket = "resume-texts"
	}
	candidatesBucket := cfg.CandidatesBucket
	if candidatesBucket == "" {
		candidatesBucket = "resume-candidates"
	}

	m := &MinIO{
		client:           client,
		cfg:              cfg,
		originalsBucket:  originalsBucket,
		parsedBucket:     parsedBucket,
		candidatesBucket: candidatesBucket,
		logger:           logger,
	}

	for _, bucket := range []string{originalsBucket, parsedBucket, candidatesBucket} {
		if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
			return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
		}
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedTextExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] 设置生命周期规则失败: %v", err)
		}
	}

	logger.Printf("[MinIO] 客户端初始化完成: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] 存储桶 %s 创建成功", bucketName)
	}
	return nil
}

// setupLifecycleRules 为原始简历和提取文本设置过期规则，候选人数据长期保留
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalsBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始简历存储桶 %s 设置生命周期失败: %w", m.originalsBucket, err)
		}
	}
	if m.cfg.ParsedTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.parsedBucket, "expire-parsed-text", m.cfg.ParsedTextExpireDays); err != nil {
			return fmt.Errorf("为提取文本存储桶 %s 设置生命周期失败: %w", m.parsedBucket, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期天数
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcCfg := lifecycle.NewConfiguration()
	lcCfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lcCfg)
}

// UploadResumeFileStreaming 流式上传原始简历并同时计算MD5。
// 返回: objectKey, md5Hex, error
func (m *MinIO) UploadResumeFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := fmt.Sprintf("resume/%s/original%s", submissionUUID, fileExt)
	contentType := getContentType(fileExt)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.originalsBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("流式上传文件到MinIO失败: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	m.logger.Printf("[MinIO] 上传原始简历完成: %s, ETag=%s, Size=%d", objectName, info.ETag, info.Size)
	return objectName, md5Hex, nil
}

// UploadParsedText 上传提取后的纯文本
func (m *MinIO) UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error) {
	objectName := fmt.Sprintf("resume/%s/parsed_text.txt", submissionUUID)
	_, err := m.client.PutObject(ctx, m.parsedBucket, objectName, strings.NewReader(text),
		int64(len(text)), minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传提取文本 %s 到存储桶 %s 失败: %w", objectName, m.parsedBucket, err)
	}
	return objectName, nil
}

// GetResumeFile 下载原始简历
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadObject(ctx, m.originalsBucket, objectKey)
}

// GetParsedText 下载提取文本
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	data, err := m.downloadObject(ctx, m.parsedBucket, objectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UploadCandidateJSON 上传结构化候选人数据到候选人存储桶
func (m *MinIO) UploadCandidateJSON(ctx context.Context, candidateID string, candidate *types.Candidate) (string, error) {
	if candidate == nil {
		return "", fmt.Errorf("候选人数据不能为空")
	}
	data, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化候选人数据失败: %w", err)
	}

	objectName := candidateObjectKey(candidateID)
	_, err = m.client.PutObject(ctx, m.candidatesBucket, objectName, bytes.NewReader(data),
		int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传候选人数据 %s 失败: %w", objectName, err)
	}
	return objectName, nil
}

// GetCandidateJSON 下载并反序列化候选人数据
func (m *MinIO) GetCandidateJSON(ctx context.Context, candidateID string) (*types.Candidate, error) {
	data, err := m.downloadObject(ctx, m.candidatesBucket, candidateObjectKey(candidateID))
	if err != nil {
		return nil, err
	}

	var candidate types.Candidate
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, fmt.Errorf("反序列化候选人 %s 数据失败: %w", candidateID, err)
	}
	if candidate.ID == "" {
		candidate.ID = candidateID
	}
	return &candidate, nil
}

// ListCandidateIDs 遍历候选人存储桶，返回所有候选人ID
func (m *MinIO) ListCandidateIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range m.client.ListObjects(ctx, m.candidatesBucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("遍历候选人存储桶失败: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			ids = append(ids, strings.TrimSuffix(obj.Key, ".json"))
		}
	}
	return ids, nil
}

// DeleteFile 删除原始简历对象
func (m *MinIO) DeleteFile(ctx context.Context, objectKey string) error {
	err := m.client.RemoveObject(ctx, m.originalsBucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// ClearCandidates 删除候选人存储桶中全部对象，返回删除数量
func (m *MinIO) ClearCandidates(ctx context.Context) (int, error) {
	deleted := 0
	for obj := range m.client.ListObjects(ctx, m.candidatesBucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return deleted, fmt.Errorf("遍历候选人存储桶失败: %w", obj.Err)
		}
		if err := m.client.RemoveObject(ctx, m.candidatesBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, fmt.Errorf("删除候选人对象 %s 失败: %w", obj.Key, err)
		}
		deleted++
	}
	return deleted, nil
}

// downloadObject 从指定存储桶下载对象并读取全部内容
func (m *MinIO) downloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	// Stat确认对象确实存在，GetObject本身是惰性的
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	return data, nil
}

// candidateObjectKey 候选人对象键，形如 candidate_1.json
func candidateObjectKey(candidateID string) string {
	return candidateID + ".json"
}

// getContentType 根据扩展名推断内容类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
