// Package notes 医疗笔记处理：摘要、结构化抽取、FHIR 转换。
package notes

import (
	"context"
	"fmt"
	"time"

	applog "careqa/internal/platform/log"
	"careqa/internal/provider"
)

const summarySystemPrompt = `You are a medical document summarization assistant.
Your task is to create concise, accurate summaries of medical notes and documents.

Guidelines:
- Focus on key medical information: diagnoses, treatments, medications, and patient status
- Maintain medical terminology accuracy
- Be concise but comprehensive (3-5 sentences typically)
- Highlight any critical or urgent information
- Preserve important numerical values (dosages, test results, etc.)
- Do not add information that is not present in the original document`

// Completer 生成接口（通常是 provider.Fallback）。
type Completer interface {
	Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error)
}

// Summarizer 医疗笔记摘要服务
type Summarizer struct {
	llm Completer
}

// NewSummarizer 创建摘要服务
func NewSummarizer(llm Completer) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize 生成医疗笔记摘要
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	start := time.Now()

	resp, err := s.llm.Complete(ctx, &provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: "Please summarize the following medical note:\n\n" + content},
		},
		Temperature: 0.3, // 低温度保证稳定摘要
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("summarize note: %w", err)
	}

	applog.Info("[Notes/Summarizer] Summary generated",
		"content_length", len(content),
		"summary_length", len(resp.Content),
		"model", resp.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp.Content, nil
}
