package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/types"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5去重记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// GetResultCacheTTL 返回筛选结果缓存时长
func (r *Redis) GetResultCacheTTL() time.Duration {
	minutes := r.config.ResultCacheTTLMinutes
	if minutes <= 0 {
		return constants.ScreeningResultCacheTTL
	}
	return time.Duration(minutes) * time.Minute
}

// CheckAndSetFileMD5 原子地检查并登记原始文件MD5。
// 返回: exists(是否已存在), existingUUID(已存在时关联的SubmissionUUID), err
func (r *Redis) CheckAndSetFileMD5(ctx context.Context, md5Hex string, submissionUUID string) (bool, string, error) {
	if r.Client == nil {
		return false, "", fmt.Errorf("redis client is not initialized")
	}

	setKey := constants.KeyFileMD5Set
	exists, err := r.Client.SIsMember(ctx, setKey, md5Hex).Result()
	if err != nil {
		return false, "", fmt.Errorf("检查MD5是否存在失败: %w", err)
	}
	if exists {
		mapKey := fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, md5Hex)
		existingUUID, err := r.Client.Get(ctx, mapKey).Result()
		if err != nil && err != redis.Nil {
			return true, "", fmt.Errorf("获取已存在的submission_uuid失败: %w", err)
		}
		return true, existingUUID, nil
	}

	// MD5不存在，原子地添加
	pipe := r.Client.Pipeline()
	setCmd := pipe.SAdd(ctx, setKey, md5Hex)
	mapKey := fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, md5Hex)
	setNXCmd := pipe.SetNX(ctx, mapKey, submissionUUID, r.GetMD5ExpireDuration())
	pipe.Expire(ctx, setKey, r.GetMD5ExpireDuration())
	if _, err := pipe.Exec(ctx); err != nil {
		return false, "", fmt.Errorf("执行原子添加MD5操作失败: %w", err)
	}

	if setCmd.Val() > 0 && setNXCmd.Val() {
		return false, "", nil
	}

	// 极小的并发窗口内被其他进程抢先登记了，重新读取
	existingUUID, err := r.Client.Get(ctx, mapKey).Result()
	if err != nil {
		return true, "", fmt.Errorf("获取已存在的submission_uuid失败: %w", err)
	}
	return true, existingUUID, nil
}

// RemoveFileMD5 删除原始文件MD5记录，上传后续处理失败时回滚去重状态
func (r *Redis) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	pipe := r.Client.Pipeline()
	pipe.SRem(ctx, constants.KeyFileMD5Set, md5Hex)
	pipe.Del(ctx, fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, md5Hex))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("从集合中移除MD5失败: %w", err)
	}
	return nil
}

// NextCandidateID 自增计数器生成顺序候选人ID，形如 candidate_1
func (r *Redis) NextCandidateID(ctx context.Context) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	n, err := r.Client.Incr(ctx, constants.KeyCandidateCounter).Result()
	if err != nil {
		return "", fmt.Errorf("候选人计数器自增失败: %w", err)
	}
	return fmt.Sprintf("%s%d", constants.CandidateIDPrefix, n), nil
}

// RegisterCandidate 将候选人ID加入索引集合
func (r *Redis) RegisterCandidate(ctx context.Context, candidateID string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.SAdd(ctx, constants.KeyCandidateIndex, candidateID).Err()
}

// ListCandidateIDs 返回索引集合中全部候选人ID
func (r *Redis) ListCandidateIDs(ctx context.Context) ([]string, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	return r.Client.SMembers(ctx, constants.KeyCandidateIndex).Result()
}

// CountCandidates 返回已注册候选人数量
func (r *Redis) CountCandidates(ctx context.Context) (int64, error) {
	if r.Client == nil {
		return 0, fmt.Errorf("redis client is not initialized")
	}
	return r.Client.SCard(ctx, constants.KeyCandidateIndex).Result()
}

// ClearCandidates 清空候选人索引、计数器和文件去重记录
func (r *Redis) ClearCandidates(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	// MD5映射键按模式逐批删除
	iter := r.Client.Scan(ctx, 0,
		fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, "*"), 100).Iterator()
	var mapKeys []string
	for iter.Next(ctx) {
		mapKeys = append(mapKeys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("扫描MD5映射键失败: %w", err)
	}

	pipe := r.Client.Pipeline()
	pipe.Del(ctx, constants.KeyCandidateIndex)
	pipe.Del(ctx, constants.KeyCandidateCounter)
	pipe.Del(ctx, constants.KeyFileMD5Set)
	if len(mapKeys) > 0 {
		pipe.Del(ctx, mapKeys...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("清空候选人记录失败: %w", err)
	}
	return nil
}

// CacheJobRequirements 缓存JD结构化结果，键为JD文本哈希
func (r *Redis) CacheJobRequirements(ctx context.Context, jdHash string, req *types.JobRequirements) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("序列化岗位需求失败: %w", err)
	}
	key := fmt.Sprintf(constants.KeyJobRequirements, jdHash)
	return r.Client.Set(ctx, key, data, constants.JDRequirementsCacheDuration).Err()
}

// GetCachedJobRequirements 读取JD结构化缓存，未命中返回 ErrNotFound
func (r *Redis) GetCachedJobRequirements(ctx context.Context, jdHash string) (*types.JobRequirements, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyJobRequirements, jdHash)
	data, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		return nil, err // 包括 redis.Nil
	}
	var req types.JobRequirements
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, fmt.Errorf("反序列化岗位需求缓存失败: %w", err)
	}
	return &req, nil
}

// CacheScreeningResult 缓存整轮筛选结果，键为JD与候选人集合的组合哈希
func (r *Redis) CacheScreeningResult(ctx context.Context, runHash string, result *types.ScreeningResult) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化筛选结果失败: %w", err)
	}
	key := fmt.Sprintf(constants.KeyScreeningResult, runHash)
	return r.Client.Set(ctx, key, data, r.GetResultCacheTTL()).Err()
}

// GetCachedScreeningResult 读取筛选结果缓存，未命中返回 ErrNotFound
func (r *Redis) GetCachedScreeningResult(ctx context.Context, runHash string) (*types.ScreeningResult, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyScreeningResult, runHash)
	data, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var result types.ScreeningResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("反序列化筛选结果缓存失败: %w", err)
	}
	return &result, nil
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Get(ctx, key).Result()
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	return r.Client.Set(ctx, key, value, expiration).Err()
}
