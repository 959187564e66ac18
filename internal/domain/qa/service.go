package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	applog "careqa/internal/platform/log"
	"careqa/internal/provider"
)

const answerSystemPrompt = `You answer questions about medical documents.`

// Completer 生成答案的补全器（通常是 provider.Fallback）。
type Completer interface {
	Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error)
}

// Service 问答编排：语义缓存 → 文档检索 → 生成 → 记录。
// 进程内应只存在一个实例（索引构建需要全量重新 embedding，见 LazyService）。
type Service struct {
	docIndex *DocumentIndex
	cache    *AnswerCache
	llm      Completer
	cfg      *Config
}

// NewService 构建问答服务：快照构建文档索引与语义缓存。
// retrievalCache 可为 nil（禁用检索缓存）。
func NewService(ctx context.Context, docs DocumentStore, answers AnswerStore, embedder Embedder, llm Completer, retrievalCache RetrievalCacheStore, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	docIndex, err := BuildDocumentIndex(ctx, docs, embedder, cfg)
	if err != nil {
		return nil, fmt.Errorf("build document index: %w", err)
	}
	if retrievalCache != nil {
		docIndex.SetCache(retrievalCache)
	}

	cache, err := BuildAnswerCache(ctx, answers, embedder, cfg.CacheThreshold)
	if err != nil {
		return nil, fmt.Errorf("build answer cache: %w", err)
	}

	return &Service{
		docIndex: docIndex,
		cache:    cache,
		llm:      llm,
		cfg:      cfg,
	}, nil
}

// Answer 回答一个问题。
// 缓存命中直接返回；未命中则检索上下文、调用生成模型、记录新问答对。
// 生成失败是硬错误，此时不产生任何记录，同样的问题重试会再次走生成。
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	start := time.Now()

	cached, hit, err := s.cache.Lookup(ctx, question)
	if err != nil {
		return "", fmt.Errorf("cache lookup: %w", err)
	}
	if hit {
		return cached, nil
	}

	docs, err := s.docIndex.Retrieve(ctx, question, s.cfg.RetrievalTopK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	resp, err := s.llm.Complete(ctx, &provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: buildUserPrompt(question, docs)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer := resp.Content

	if _, err := s.cache.Record(ctx, question, answer); err != nil {
		return "", fmt.Errorf("record answer: %w", err)
	}

	applog.Info("[QA/Service] Question answered",
		"cache_hit", false,
		"context_docs", len(docs),
		"model", resp.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

// RetrieveContext 返回与问题相关的文档 id（供编排组合，不对外暴露为 API）。
func (s *Service) RetrieveContext(ctx context.Context, question string, k int) ([]int64, error) {
	return s.docIndex.RetrieveIDs(ctx, question, k)
}

// CacheSize 返回语义缓存条目数。
func (s *Service) CacheSize() int {
	return s.cache.Len()
}

// IndexedDocuments 返回文档索引条目数。
func (s *Service) IndexedDocuments() int {
	return s.docIndex.Len()
}

func buildUserPrompt(question string, docs []Document) string {
	var sb strings.Builder
	sb.WriteString("Please answer the following question:\n")
	sb.WriteString(question)
	sb.WriteString("\nHere are the documents that may be relevant:\n")
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(d.Title)
		sb.WriteString("\n\n")
		sb.WriteString(d.Content)
	}
	sb.WriteString("\nIn the answer, please provide citations with the document title you may have used to answer the question.\n")
	sb.WriteString("Place all citations at the end of the answer.")
	return sb.String()
}
