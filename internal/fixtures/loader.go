// Package fixtures 启动时向数据库播种初始文档。
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"careqa/internal/domain/qa"
	applog "careqa/internal/platform/log"
)

// SeedDocument 种子文档
type SeedDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// LoadFromFile 从 JSON 文件读取种子文档
func LoadFromFile(path string) ([]SeedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures file: %w", err)
	}

	var docs []SeedDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse fixtures file: %w", err)
	}
	return docs, nil
}

// SeedDocuments 写入种子文档，按标题去重（已存在的跳过）。
// 返回 (新建数, 跳过数)。
func SeedDocuments(ctx context.Context, store qa.DocumentStore, docs []SeedDocument) (int, int, error) {
	created, skipped := 0, 0

	for _, doc := range docs {
		if doc.Title == "" || doc.Content == "" {
			continue
		}

		existing, err := store.GetDocumentByTitle(ctx, doc.Title)
		if err != nil {
			return created, skipped, fmt.Errorf("check existing document %q: %w", doc.Title, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if _, err := store.InsertDocument(ctx, doc.Title, doc.Content); err != nil {
			return created, skipped, fmt.Errorf("seed document %q: %w", doc.Title, err)
		}
		created++
	}

	return created, skipped, nil
}

// Seed 从文件读取并播种，文件不存在视为无种子数据。
func Seed(ctx context.Context, store qa.DocumentStore, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		applog.Debug("[Fixtures] No fixtures file, skipping", "path", path)
		return nil
	}

	docs, err := LoadFromFile(path)
	if err != nil {
		return err
	}

	created, skipped, err := SeedDocuments(ctx, store, docs)
	if err != nil {
		return err
	}

	applog.Info("[Fixtures] Documents seeded", "created", created, "skipped", skipped)
	return nil
}
