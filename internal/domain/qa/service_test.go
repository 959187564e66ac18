package qa

import (
	"context"
	"strings"
	"testing"
)

func newTestService(t *testing.T, docs *memDocStore, answers *memAnswerStore, emb *fakeEmbedder, llm Completer) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), docs, answers, emb, llm, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestAnswerGeneratesThenServesFromCache(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocStore()
	answers := newMemAnswerStore()
	emb := newFakeEmbedder(2)
	llm := &fakeCompleter{answer: "The flu is a contagious respiratory illness."}

	seedDoc(t, docs, emb, "Influenza Overview", "Influenza is caused by influenza viruses.", []float32{1, 0})
	seedDoc(t, docs, emb, "Hypertension Guidelines", "High blood pressure basics.", []float32{0, 1})
	emb.set("what is the flu?", []float32{1, 0})

	svc := newTestService(t, docs, answers, emb, llm)

	answer, err := svc.Answer(ctx, "what is the flu?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != "The flu is a contagious respiratory illness." {
		t.Fatalf("wrong answer: %q", answer)
	}
	if llm.completeCalls() != 1 {
		t.Fatalf("expected 1 generation call, got %d", llm.completeCalls())
	}
	if svc.CacheSize() != 1 {
		t.Fatalf("expected 1 cached answer, got %d", svc.CacheSize())
	}

	// 生成的提示词要带上检索到的文档
	if !strings.Contains(llm.lastReq.Messages[1].Content, "Influenza Overview") {
		t.Fatal("user prompt must contain retrieved document title")
	}

	// 同一问题第二次提问：缓存命中，不再生成
	again, err := svc.Answer(ctx, "what is the flu?")
	if err != nil {
		t.Fatalf("second Answer failed: %v", err)
	}
	if again != answer {
		t.Fatalf("cached answer differs: %q vs %q", again, answer)
	}
	if llm.completeCalls() != 1 {
		t.Fatalf("cache hit must not call the LLM, got %d calls", llm.completeCalls())
	}
	if svc.CacheSize() != 1 {
		t.Fatalf("cache hit must not grow the cache, got %d", svc.CacheSize())
	}
}

func TestAnswerGenerationFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocStore()
	answers := newMemAnswerStore()
	emb := newFakeEmbedder(2)
	llm := &fakeCompleter{err: context.DeadlineExceeded}

	seedDoc(t, docs, emb, "Influenza Overview", "Influenza basics.", []float32{1, 0})
	emb.set("what is the flu?", []float32{1, 0})

	svc := newTestService(t, docs, answers, emb, llm)

	if _, err := svc.Answer(ctx, "what is the flu?"); err == nil {
		t.Fatal("expected generation error")
	}
	if svc.CacheSize() != 0 {
		t.Fatalf("failed generation must not be cached, got %d entries", svc.CacheSize())
	}
	pairs, _ := answers.ListAnswers(ctx)
	if len(pairs) != 0 {
		t.Fatalf("failed generation must not be persisted, got %d rows", len(pairs))
	}
}

func TestAnswerEmptyCorpusStillGenerates(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocStore()
	answers := newMemAnswerStore()
	emb := newFakeEmbedder(2)
	llm := &fakeCompleter{answer: "I don't have documents about that."}

	emb.set("anything?", []float32{1, 0})

	svc := newTestService(t, docs, answers, emb, llm)
	if svc.IndexedDocuments() != 0 {
		t.Fatalf("expected empty document index, got %d", svc.IndexedDocuments())
	}

	answer, err := svc.Answer(ctx, "anything?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer == "" {
		t.Fatal("expected an answer even with empty corpus")
	}
}

func TestRetrieveContext(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocStore()
	answers := newMemAnswerStore()
	emb := newFakeEmbedder(2)
	llm := &fakeCompleter{answer: "x"}

	d1 := seedDoc(t, docs, emb, "flu", "flu content", []float32{1, 0})
	d2 := seedDoc(t, docs, emb, "diabetes", "diabetes content", []float32{0.8, 0.6})
	seedDoc(t, docs, emb, "asthma", "asthma content", []float32{0, 1})
	emb.set("flu question", []float32{1, 0})

	svc := newTestService(t, docs, answers, emb, llm)

	ids, err := svc.RetrieveContext(ctx, "flu question", 2)
	if err != nil {
		t.Fatalf("RetrieveContext failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != d1.ID || ids[1] != d2.ID {
		t.Fatalf("wrong context ids: %v", ids)
	}
}
