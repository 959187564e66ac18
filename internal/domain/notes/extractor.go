package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	applog "careqa/internal/platform/log"
	"careqa/internal/provider"
)

// ── 结构化数据模型 ────────────────────────────────────────────

// CodedItem 带编码的医疗条目（ICD-10）
type CodedItem struct {
	Name    string `json:"name"`
	ICDCode string `json:"icd_code"`
}

// Medication 用药条目（RxNorm 编码）
type Medication struct {
	Name       string `json:"name"`
	RxNormCode string `json:"rx_norm_code"`
}

// StructuredData 从医疗笔记抽取出的结构化数据
type StructuredData struct {
	Name        string       `json:"name"`
	Age         *int         `json:"age"`
	Conditions  []CodedItem  `json:"conditions"`
	Diagnoses   []CodedItem  `json:"diagnoses"`
	Treatments  []CodedItem  `json:"treatments"`
	Medications []Medication `json:"medications"`
}

// ── 抽取服务 ─────────────────────────────────────────────────

const extractSystemPrompt = `You extract structured data from a medical note.
Respond with a single JSON object, no prose, matching exactly this schema:
{
  "name": "patient name",
  "age": 42,
  "conditions": [{"name": "...", "icd_code": "..."}],
  "diagnoses": [{"name": "...", "icd_code": "..."}],
  "treatments": [{"name": "...", "icd_code": "..."}],
  "medications": [{"name": "...", "rx_norm_code": "..."}]
}
Use ICD-10 codes for conditions, diagnoses and treatments, and RxNorm codes
for medications. Use null for age when unknown and empty arrays for missing
categories. Never invent items that are not present in the note.`

// Extractor 结构化抽取服务
type Extractor struct {
	llm Completer
}

// NewExtractor 创建结构化抽取服务
func NewExtractor(llm Completer) *Extractor {
	return &Extractor{llm: llm}
}

// Extract 从医疗笔记抽取结构化数据
func (e *Extractor) Extract(ctx context.Context, data string) (*StructuredData, error) {
	start := time.Now()

	resp, err := e.llm.Complete(ctx, &provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: data},
		},
		Temperature: 0.1, // 结构化输出需要确定性
	})
	if err != nil {
		return nil, fmt.Errorf("extract structured data: %w", err)
	}

	structured, err := parseStructuredOutput(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	applog.Info("[Notes/Extractor] Structured data extracted",
		"conditions", len(structured.Conditions),
		"diagnoses", len(structured.Diagnoses),
		"treatments", len(structured.Treatments),
		"medications", len(structured.Medications),
		"model", resp.Model,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return structured, nil
}

// parseStructuredOutput 解析模型输出的 JSON，容忍 Markdown 代码块包裹。
func parseStructuredOutput(output string) (*StructuredData, error) {
	text := strings.TrimSpace(output)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	// 模型偶尔会在 JSON 前后夹带说明文字，截取最外层大括号
	if first := strings.Index(text, "{"); first > 0 {
		if last := strings.LastIndex(text, "}"); last > first {
			text = text[first : last+1]
		}
	}

	var structured StructuredData
	if err := json.Unmarshal([]byte(text), &structured); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if structured.Conditions == nil {
		structured.Conditions = []CodedItem{}
	}
	if structured.Diagnoses == nil {
		structured.Diagnoses = []CodedItem{}
	}
	if structured.Treatments == nil {
		structured.Treatments = []CodedItem{}
	}
	if structured.Medications == nil {
		structured.Medications = []Medication{}
	}
	return &structured, nil
}
