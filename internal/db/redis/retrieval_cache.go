// Package redisdb 检索结果的 Redis 缓存。
package redisdb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	applog "careqa/internal/platform/log"
)

// RetrievalCache 检索文档 ID 的 Redis 缓存，实现 qa.RetrievalCacheStore。
// 只缓存命中的文档 ID 列表，文档内容始终从数据库解析，避免缓存陈旧正文。
type RetrievalCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRetrievalCache 创建检索缓存
func NewRetrievalCache(rdb *redis.Client, ttlSeconds int) *RetrievalCache {
	ttl := 5 * time.Minute
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &RetrievalCache{
		redis:  rdb,
		ttl:    ttl,
		prefix: "qa:retrieval:",
	}
}

// Open 连接 Redis 并验证连通性
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Get 从缓存获取检索结果 ID 列表
func (c *RetrievalCache) Get(ctx context.Context, question string, k int) ([]int64, bool) {
	key := c.cacheKey(question, k)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		applog.Warn("[QA/RetrievalCache] Failed to unmarshal cached ids", "error", err)
		return nil, false
	}

	applog.Debug("[QA/RetrievalCache] Hit", "key", key, "ids", len(ids))
	return ids, true
}

// Set 写入检索结果 ID 列表到缓存
func (c *RetrievalCache) Set(ctx context.Context, question string, k int, ids []int64) {
	key := c.cacheKey(question, k)
	data, err := json.Marshal(ids)
	if err != nil {
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		applog.Warn("[QA/RetrievalCache] Failed to set cache", "key", key, "error", err)
	}
}

// cacheKey 生成缓存 key = hash(question + k)
func (c *RetrievalCache) cacheKey(question string, k int) string {
	raw := fmt.Sprintf("%s|%d", question, k)
	hash := sha256.Sum256([]byte(raw))
	return c.prefix + fmt.Sprintf("%x", hash[:12])
}
