// Package api 问答服务的 HTTP API。
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"careqa/internal/domain/notes"
	"careqa/internal/domain/qa"
	applog "careqa/internal/platform/log"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AnswerTimeout time.Duration // 单次问答超时（含首个请求的索引构建）
	JWTSecret     string        // JWT 签名密钥（为空时不启用鉴权）
	JWTIssuer     string        // JWT 签发者（可选）
	MaxFileMB     int           // 文档上传大小上限
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:          "0.0.0.0",
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  5 * time.Minute, // 首个问答请求要等索引构建完成
		AnswerTimeout: 2 * time.Minute,
		MaxFileMB:     20,
	}
}

// Server HTTP 服务器
type Server struct {
	config     *ServerConfig
	lazy       *qa.LazyService
	docs       qa.DocumentStore
	summarizer *notes.Summarizer
	extractor  *notes.Extractor
	httpSrv    *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, lazy *qa.LazyService, docs qa.DocumentStore, summarizer *notes.Summarizer, extractor *notes.Extractor) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:     config,
		lazy:       lazy,
		docs:       docs,
		summarizer: summarizer,
		extractor:  extractor,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	r := s.buildRouter()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 QA API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	qaHandler := NewQAHandler(s.lazy, s.docs, s.config.AnswerTimeout, s.config.MaxFileMB)
	notesHandler := NewNotesHandler(s.summarizer, s.extractor)

	r.Route("/api/v1", func(r chi.Router) {
		// JWT_SECRET 配置时所有业务路由需要鉴权
		if strings.TrimSpace(s.config.JWTSecret) != "" {
			r.Use(authMiddleware(&JWTConfig{
				Secret: s.config.JWTSecret,
				Issuer: s.config.JWTIssuer,
			}))
		}

		qaHandler.RegisterRoutes(r)
		notesHandler.RegisterRoutes(r)
	})

	return r
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
