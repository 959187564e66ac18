package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careqa/internal/api"
	"careqa/internal/db/postgres"
	redisdb "careqa/internal/db/redis"
	"careqa/internal/domain/notes"
	"careqa/internal/domain/qa"
	"careqa/internal/fixtures"
	"careqa/internal/platform/config"
	applog "careqa/internal/platform/log"
	"careqa/internal/provider"
	"careqa/internal/provider/openai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()

	// ── PostgreSQL ───────────────────────────────────────────
	db, err := postgres.Open(ctx, cfg.Database.URL,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		time.Duration(cfg.Database.ConnMaxLifetimeSeconds)*time.Second,
	)
	if err != nil {
		applog.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	applog.Info("✅ Connected to PostgreSQL")

	store := postgres.NewStore(db)
	if err := store.EnsureTables(ctx); err != nil {
		applog.Fatalf("❌ Failed to ensure tables: %v", err)
	}
	applog.Info("✅ Tables ready (documents, question_answers)")

	// ── 种子文档 ─────────────────────────────────────────────
	if err := fixtures.Seed(ctx, store, cfg.Fixtures.File); err != nil {
		applog.Warnf("⚠️  Failed to seed fixtures: %v", err)
	}

	// ── LLM Provider 与回退链 ────────────────────────────────
	provider.RegisterProvider(openai.New(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}))

	candidates, err := provider.ParseCandidates(cfg.QA.Models)
	if err != nil {
		applog.Fatalf("❌ Invalid QA_MODELS: %v", err)
	}
	llm := provider.NewFallback(candidates)
	applog.Infof("✅ LLM fallback chain initialized (%d candidates)", len(candidates))

	// ── Embedder ─────────────────────────────────────────────
	embedder := qa.NewOpenAIEmbedder(qa.OpenAIEmbedderConfig{
		BaseURL:   cfg.OpenAI.BaseURL,
		APIKey:    cfg.OpenAI.APIKey,
		Model:     cfg.QA.EmbeddingModel,
		Dims:      cfg.QA.EmbeddingDims,
		BatchSize: cfg.QA.EmbeddingBatchSize,
	})
	applog.Infof("✅ Embedder initialized (model: %s, dims: %d)", cfg.QA.EmbeddingModel, embedder.Dims())

	// ── 可选 Redis 检索缓存 ──────────────────────────────────
	var retrievalCache qa.RetrievalCacheStore
	if cfg.Redis.URL != "" && cfg.QA.HasRetrievalCache() {
		rdb, err := redisdb.Open(ctx, cfg.Redis.URL)
		if err != nil {
			applog.Warnf("⚠️  Redis unavailable, retrieval cache disabled: %v", err)
		} else {
			defer rdb.Close()
			retrievalCache = redisdb.NewRetrievalCache(rdb, cfg.QA.RetrievalCacheTTL)
			applog.Infof("✅ Retrieval cache initialized (TTL: %ds)", cfg.QA.RetrievalCacheTTL)
		}
	} else {
		applog.Info("ℹ️  No REDIS_URL set, retrieval cache disabled")
	}

	// ── 问答服务（延迟构建，首个请求触发索引构建）──────────
	qaCfg := cfg.QA
	lazy := qa.NewLazyService(func(ctx context.Context) (*qa.Service, error) {
		return qa.NewService(ctx, store, store, embedder, llm, retrievalCache, &qaCfg)
	})

	summarizer := notes.NewSummarizer(llm)
	extractor := notes.NewExtractor(llm)

	// ── HTTP 服务器 ──────────────────────────────────────────
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.AnswerTimeout = time.Duration(cfg.Server.AnswerTimeoutSeconds) * time.Second
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer
	serverConfig.MaxFileMB = cfg.QA.MaxFileSize
	server := api.NewServer(serverConfig, lazy, store, summarizer, extractor)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}
