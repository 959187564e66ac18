package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"careqa/internal/domain/qa"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string         `json:"log_level"`
	LogFormat string         `json:"log_format"`
	Server    ServerConfig   `json:"server"`
	Database  DatabaseConfig `json:"database"`
	Redis     RedisConfig    `json:"redis"`
	Auth      AuthConfig     `json:"auth"`
	OpenAI    OpenAIConfig   `json:"openai"`
	Fixtures  FixturesConfig `json:"fixtures"`
	QA        qa.Config      `json:"qa"`
}

type ServerConfig struct {
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	ReadTimeoutSeconds   int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds  int    `json:"write_timeout_seconds"`
	AnswerTimeoutSeconds int    `json:"answer_timeout_seconds"` // 单个问答请求上限（含 LLM 调用）
}

type DatabaseConfig struct {
	URL                    string `json:"url"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

type RedisConfig struct {
	URL string `json:"url"` // 可选，配置后启用检索缓存
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"` // 可选，配置后 /api/v1 需要 Bearer token
	JWTIssuer string `json:"jwt_issuer"`
}

type OpenAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"` // 默认 https://api.openai.com/v1
}

type FixturesConfig struct {
	File string `json:"file"` // 文档种子 JSON 路径，空=不加载
}

// Default 返回默认配置。
func Default() *AppConfig {
	qaCfg := qa.DefaultConfig()
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                 "0.0.0.0",
			Port:                 8080,
			ReadTimeoutSeconds:   30,
			WriteTimeoutSeconds:  120,
			AnswerTimeoutSeconds: 90,
		},
		Database: DatabaseConfig{
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Fixtures: FixturesConfig{
			File: "fixtures/documents.json",
		},
		QA: *qaCfg,
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// .env 非必需，忽略错误
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)
	applyInt("SERVER_ANSWER_TIMEOUT", &c.Server.AnswerTimeoutSeconds)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("REDIS_URL", &c.Redis.URL)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	applyString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)

	applyString("FIXTURES_FILE", &c.Fixtures.File)

	// QA 环境变量
	applyString("QA_EMBEDDING_MODEL", &c.QA.EmbeddingModel)
	applyInt("QA_EMBEDDING_DIMS", &c.QA.EmbeddingDims)
	applyInt("QA_RETRIEVAL_TOP_K", &c.QA.RetrievalTopK)
	applyFloat64("QA_CACHE_THRESHOLD", &c.QA.CacheThreshold)
	applyInt("QA_RETRIEVAL_CACHE_TTL", &c.QA.RetrievalCacheTTL)
	applyInt("QA_MAX_FILE_SIZE", &c.QA.MaxFileSize)
	if v := strings.TrimSpace(os.Getenv("QA_MODELS")); v != "" {
		parts := strings.Split(v, ",")
		models := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				models = append(models, p)
			}
		}
		if len(models) > 0 {
			c.QA.Models = models
		}
	}
}

func (c *AppConfig) normalize() {
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.QA.CacheThreshold <= 0 || c.QA.CacheThreshold > 1 {
		return fmt.Errorf("QA_CACHE_THRESHOLD must be in (0, 1], got %v", c.QA.CacheThreshold)
	}
	if len(c.QA.Models) == 0 {
		return fmt.Errorf("QA_MODELS must list at least one provider:model candidate")
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}
