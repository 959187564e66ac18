package qa

import "time"

// Document 检索语料文档。id 由关系库分配，创建后不再更新。
type Document struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingText 返回参与向量化的文本（标题 + 正文）。
func (d *Document) EmbeddingText() string {
	return d.Title + "\n\n" + d.Content
}

// QuestionAnswer 已回答的问题及其答案。每次缓存未命中且生成成功后新增一条。
type QuestionAnswer struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
