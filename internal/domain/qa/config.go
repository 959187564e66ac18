package qa

// Config 问答模块配置
type Config struct {
	// Embedding
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDims      int    `json:"embedding_dims"`
	EmbeddingBatchSize int    `json:"embedding_batch_size"`

	// 检索配置
	RetrievalTopK int `json:"retrieval_top_k"`

	// 语义缓存：最近邻相似度达到阈值即命中
	CacheThreshold float64 `json:"cache_threshold"`

	// 检索结果 Redis 缓存 TTL（秒），0=禁用
	RetrievalCacheTTL int `json:"retrieval_cache_ttl"`

	// 上传文件大小上限（MB）
	MaxFileSize int `json:"max_file_size"`

	// 生成模型候选列表，"provider:model"，按序 fallback
	Models []string `json:"models"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingDims:      1536,
		EmbeddingBatchSize: 64,
		RetrievalTopK:      2,
		CacheThreshold:     0.9,
		RetrievalCacheTTL:  300,
		MaxFileSize:        20,
		Models:             []string{"openai:gpt-4o", "openai:gpt-4o-mini"},
	}
}

// HasRetrievalCache 是否启用检索缓存
func (c *Config) HasRetrievalCache() bool {
	return c.RetrievalCacheTTL > 0
}
