package qa

import (
	"context"
	"fmt"
	"sync"

	"careqa/internal/provider"
)

// fakeEmbedder 用预置向量表代替真实 embedding 服务。
type fakeEmbedder struct {
	mu    sync.Mutex
	vecs  map[string][]float32
	dims  int
	calls int
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{vecs: make(map[string][]float32), dims: dims}
}

func (e *fakeEmbedder) set(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vecs[text] = vec
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++

	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := e.vecs[t]
		if !ok {
			return nil, fmt.Errorf("no fixture vector for %q", t)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *fakeEmbedder) Dims() int { return e.dims }

func (e *fakeEmbedder) embedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// memDocStore 内存文档存储
type memDocStore struct {
	mu     sync.Mutex
	nextID int64
	docs   map[int64]Document
	order  []int64
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: make(map[int64]Document)}
}

func (s *memDocStore) InsertDocument(ctx context.Context, title, content string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	doc := Document{ID: s.nextID, Title: title, Content: content}
	s.docs[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	return &doc, nil
}

func (s *memDocStore) GetDocument(ctx context.Context, id int64) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *memDocStore) GetDocumentByTitle(ctx context.Context, title string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if doc, ok := s.docs[id]; ok && doc.Title == title {
			return &doc, nil
		}
	}
	return nil, nil
}

func (s *memDocStore) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		if doc, ok := s.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *memDocStore) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

// memAnswerStore 内存问答存储
type memAnswerStore struct {
	mu     sync.Mutex
	nextID int64
	pairs  map[int64]QuestionAnswer
	order  []int64
}

func newMemAnswerStore() *memAnswerStore {
	return &memAnswerStore{pairs: make(map[int64]QuestionAnswer)}
}

func (s *memAnswerStore) InsertAnswer(ctx context.Context, question, answer string) (*QuestionAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	pair := QuestionAnswer{ID: s.nextID, Question: question, Answer: answer}
	s.pairs[pair.ID] = pair
	s.order = append(s.order, pair.ID)
	return &pair, nil
}

func (s *memAnswerStore) GetAnswer(ctx context.Context, id int64) (*QuestionAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.pairs[id]
	if !ok {
		return nil, nil
	}
	return &pair, nil
}

func (s *memAnswerStore) ListAnswers(ctx context.Context) ([]QuestionAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QuestionAnswer, 0, len(s.order))
	for _, id := range s.order {
		if pair, ok := s.pairs[id]; ok {
			out = append(out, pair)
		}
	}
	return out, nil
}

func (s *memAnswerStore) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, id)
}

// fakeCompleter 固定答案的补全器，记录调用次数。
type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	lastReq *provider.CompletionRequest
}

func (c *fakeCompleter) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &provider.CompletionResponse{Content: c.answer, Model: "fake"}, nil
}

func (c *fakeCompleter) completeCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeRetrievalCache 内存检索缓存
type fakeRetrievalCache struct {
	mu      sync.Mutex
	entries map[string][]int64
	hits    int
}

func newFakeRetrievalCache() *fakeRetrievalCache {
	return &fakeRetrievalCache{entries: make(map[string][]int64)}
}

func (c *fakeRetrievalCache) key(question string, k int) string {
	return fmt.Sprintf("%s|%d", question, k)
}

func (c *fakeRetrievalCache) Get(ctx context.Context, question string, k int) ([]int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.entries[c.key(question, k)]
	if ok {
		c.hits++
	}
	return ids, ok
}

func (c *fakeRetrievalCache) Set(ctx context.Context, question string, k int, ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(question, k)] = ids
}
