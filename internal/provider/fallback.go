package provider

import (
	"context"
	"fmt"
	"strings"

	applog "careqa/internal/platform/log"
)

// Candidate 候选模型：供应商名 + 模型名
type Candidate struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (c Candidate) String() string {
	return c.Provider + ":" + c.Model
}

// ParseCandidates 解析 "provider:model" 形式的候选列表。
func ParseCandidates(specs []string) ([]Candidate, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no model candidates configured")
	}
	candidates := make([]Candidate, 0, len(specs))
	for _, spec := range specs {
		name, model, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok || name == "" || model == "" {
			return nil, fmt.Errorf("invalid model spec %q, expected provider:model", spec)
		}
		candidates = append(candidates, Candidate{Provider: name, Model: model})
	}
	return candidates, nil
}

// Fallback 按序尝试多个候选模型的补全器。
// 任一候选失败即换下一个，全部失败才向上返回错误。
type Fallback struct {
	candidates []Candidate
	lookup     func(name string) (LLMProvider, error)
}

// NewFallback 创建 fallback 补全器。
func NewFallback(candidates []Candidate) *Fallback {
	return &Fallback{
		candidates: candidates,
		lookup:     GetProvider,
	}
}

// NewFallbackWithLookup 使用自定义 provider 查找（测试用）。
func NewFallbackWithLookup(candidates []Candidate, lookup func(name string) (LLMProvider, error)) *Fallback {
	return &Fallback{candidates: candidates, lookup: lookup}
}

// Complete 依次尝试每个候选模型，返回首个成功的响应。
// req.Model 被候选模型名覆盖，其余参数原样传递。
func (f *Fallback) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if len(f.candidates) == 0 {
		return nil, fmt.Errorf("fallback: no candidates configured")
	}

	var lastErr error
	for _, cand := range f.candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		p, err := f.lookup(cand.Provider)
		if err != nil {
			applog.Warn("[LLM/Fallback] Provider unavailable, trying next",
				"candidate", cand.String(),
				"error", err,
			)
			lastErr = err
			continue
		}

		candReq := *req
		candReq.Model = cand.Model

		resp, err := p.Complete(ctx, &candReq)
		if err != nil {
			applog.Warn("[LLM/Fallback] Completion failed, trying next",
				"candidate", cand.String(),
				"error", err,
			)
			lastErr = err
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("fallback: all %d candidates failed: %w", len(f.candidates), lastErr)
}
