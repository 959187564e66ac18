package qa

import (
	"context"
	"fmt"
	"time"

	applog "careqa/internal/platform/log"
	"careqa/internal/vecindex"
)

// DocumentIndex 文档检索索引。
// 构建时对文档表做一次全量快照并整体向量化，之后不再增量更新：
// 新入库的文档在进程重启重建索引前对检索不可见。
type DocumentIndex struct {
	store    DocumentStore
	embedder Embedder
	index    *vecindex.Index
	cache    RetrievalCacheStore // 可选
	topK     int
}

// BuildDocumentIndex 全量快照构建文档索引。
func BuildDocumentIndex(ctx context.Context, store DocumentStore, embedder Embedder, cfg *Config) (*DocumentIndex, error) {
	start := time.Now()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	topK := cfg.RetrievalTopK
	if topK <= 0 {
		topK = 2
	}

	di := &DocumentIndex{
		store:    store,
		embedder: embedder,
		topK:     topK,
	}

	if len(docs) == 0 {
		applog.Info("[QA/Retriever] No documents in store, index starts empty")
		di.index, err = vecindex.Build(nil, nil)
		return di, err
	}

	texts := make([]string, len(docs))
	ids := make([]int64, len(docs))
	for i := range docs {
		texts[i] = docs[i].EmbeddingText()
		ids[i] = docs[i].ID
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	di.index, err = vecindex.Build(ids, vectors)
	if err != nil {
		return nil, fmt.Errorf("build document index: %w", err)
	}

	applog.Info("[QA/Retriever] Document index built",
		"documents", len(docs),
		"dims", di.index.Dim(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return di, nil
}

// SetCache 设置检索结果缓存（可选）。
func (di *DocumentIndex) SetCache(c RetrievalCacheStore) {
	di.cache = c
}

// Retrieve 返回与问题最相关的至多 k 篇文档（k <= 0 时用默认值）。
// 命中缓存时跳过 embedding；文档 id 始终重新解析到存储，
// 已被删除的文档直接丢弃，结果可能少于 k 篇，不视为错误。
func (di *DocumentIndex) Retrieve(ctx context.Context, question string, k int) ([]Document, error) {
	if k <= 0 {
		k = di.topK
	}

	ids, cached := di.cachedIDs(ctx, question, k)
	if !cached {
		var err error
		ids, err = di.searchIDs(ctx, question, k)
		if err != nil {
			return nil, err
		}
		di.storeIDs(question, k, ids)
	}

	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := di.store.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve document %d: %w", id, err)
		}
		if doc == nil {
			applog.Warn("[QA/Retriever] Indexed document no longer in store, dropping", "id", id)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// RetrieveIDs 返回检索到且仍可解析的文档 id（排序同 Retrieve）。
func (di *DocumentIndex) RetrieveIDs(ctx context.Context, question string, k int) ([]int64, error) {
	docs, err := di.Retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	return ids, nil
}

// Len 返回索引内文档条数。
func (di *DocumentIndex) Len() int {
	return di.index.Len()
}

func (di *DocumentIndex) searchIDs(ctx context.Context, question string, k int) ([]int64, error) {
	if di.index.Len() == 0 {
		return nil, nil
	}

	vec, err := EmbedOne(ctx, di.embedder, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results, err := di.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("search document index: %w", err)
	}

	ids := make([]int64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

func (di *DocumentIndex) cachedIDs(ctx context.Context, question string, k int) ([]int64, bool) {
	if di.cache == nil {
		return nil, false
	}
	return di.cache.Get(ctx, question, k)
}

func (di *DocumentIndex) storeIDs(question string, k int, ids []int64) {
	if di.cache == nil {
		return
	}
	// 异步写缓存，不阻塞请求
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		di.cache.Set(cacheCtx, question, k, ids)
	}()
}
