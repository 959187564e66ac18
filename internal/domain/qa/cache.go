package qa

import (
	"context"
	"fmt"
	"time"

	applog "careqa/internal/platform/log"
	"careqa/internal/vecindex"
)

// AnswerCache 语义问答缓存。
// 对已回答的问题做向量索引，新问题与最近邻相似度达到阈值即直接复用答案。
// 构建时对问答表做一次全量快照，之后每次缓存未命中且生成成功后增量写入。
type AnswerCache struct {
	store     AnswerStore
	embedder  Embedder
	index     *vecindex.Index
	threshold float64
}

// BuildAnswerCache 全量快照构建语义缓存。问答表为空时缓存从空索引起步。
func BuildAnswerCache(ctx context.Context, store AnswerStore, embedder Embedder, threshold float64) (*AnswerCache, error) {
	start := time.Now()

	pairs, err := store.ListAnswers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached answers: %w", err)
	}

	c := &AnswerCache{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
	}

	if len(pairs) == 0 {
		applog.Info("[QA/Cache] No cached answers in store, cache starts empty")
		c.index, err = vecindex.Build(nil, nil)
		return c, err
	}

	questions := make([]string, len(pairs))
	ids := make([]int64, len(pairs))
	for i := range pairs {
		questions[i] = pairs[i].Question
		ids[i] = pairs[i].ID
	}

	vectors, err := embedder.Embed(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("embed cached questions: %w", err)
	}

	c.index, err = vecindex.Build(ids, vectors)
	if err != nil {
		return nil, fmt.Errorf("build answer cache index: %w", err)
	}

	applog.Info("[QA/Cache] Answer cache built",
		"entries", len(pairs),
		"threshold", threshold,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c, nil
}

// Lookup 查找语义等价的已缓存答案。
// 未命中返回 ("", false, nil)；索引里的 id 在存储中解析失败时按未命中处理
// 而不是报错，过期的索引条目不应阻塞回答。
func (c *AnswerCache) Lookup(ctx context.Context, question string) (string, bool, error) {
	if c.index.Len() == 0 {
		return "", false, nil
	}

	vec, err := EmbedOne(ctx, c.embedder, question)
	if err != nil {
		return "", false, fmt.Errorf("embed question: %w", err)
	}

	results, err := c.index.Search(vec, 1)
	if err != nil {
		return "", false, fmt.Errorf("search answer cache: %w", err)
	}
	if len(results) == 0 {
		return "", false, nil
	}

	top := results[0]
	if top.Score < c.threshold {
		applog.Debug("[QA/Cache] Miss, best score below threshold",
			"score", top.Score,
			"threshold", c.threshold,
		)
		return "", false, nil
	}

	pair, err := c.store.GetAnswer(ctx, top.ID)
	if err != nil {
		return "", false, fmt.Errorf("resolve cached answer %d: %w", top.ID, err)
	}
	if pair == nil {
		applog.Warn("[QA/Cache] Index entry no longer in store, treating as miss", "id", top.ID)
		return "", false, nil
	}

	applog.Info("[QA/Cache] Hit",
		"cached_question", pair.Question,
		"score", top.Score,
	)
	return pair.Answer, true, nil
}

// Record 持久化新问答对并写入索引。不做去重：同一问题记两次就产生两条。
// 行落库后 embedding 失败只记告警不报错，该条目在重启重建索引前不可检索。
func (c *AnswerCache) Record(ctx context.Context, question, answer string) (*QuestionAnswer, error) {
	pair, err := c.store.InsertAnswer(ctx, question, answer)
	if err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}

	vec, err := EmbedOne(ctx, c.embedder, question)
	if err != nil {
		applog.Warn("[QA/Cache] Answer persisted but embedding failed, entry not searchable until restart",
			"id", pair.ID,
			"error", err,
		)
		return pair, nil
	}

	if err := c.index.Insert(pair.ID, vec); err != nil {
		applog.Warn("[QA/Cache] Answer persisted but index insert failed, entry not searchable until restart",
			"id", pair.ID,
			"error", err,
		)
	}
	return pair, nil
}

// Len 返回缓存索引内条目数。
func (c *AnswerCache) Len() int {
	return c.index.Len()
}
