package qa

import "context"

// DocumentStore 文档表操作。Get 未命中时返回 (nil, nil)。
type DocumentStore interface {
	InsertDocument(ctx context.Context, title, content string) (*Document, error)
	GetDocument(ctx context.Context, id int64) (*Document, error)
	GetDocumentByTitle(ctx context.Context, title string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
}

// AnswerStore 问答表操作。Get 未命中时返回 (nil, nil)。
type AnswerStore interface {
	InsertAnswer(ctx context.Context, question, answer string) (*QuestionAnswer, error)
	GetAnswer(ctx context.Context, id int64) (*QuestionAnswer, error)
	ListAnswers(ctx context.Context) ([]QuestionAnswer, error)
}

// RetrievalCacheStore 检索结果缓存（缓存文档 id 序列，不缓存文档本身）。
type RetrievalCacheStore interface {
	Get(ctx context.Context, question string, k int) ([]int64, bool)
	Set(ctx context.Context, question string, k int, ids []int64)
}
