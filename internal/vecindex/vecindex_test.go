package vecindex

import (
	"errors"
	"sync"
	"testing"
)

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int64
		vecs    [][]float32
		wantErr error
	}{
		{
			name: "length mismatch",
			ids:  []int64{1, 2},
			vecs: [][]float32{{1, 0}},

			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "inconsistent dims",
			ids:     []int64{1, 2},
			vecs:    [][]float32{{1, 0}, {1, 0, 0}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "duplicate ids",
			ids:     []int64{7, 7},
			vecs:    [][]float32{{1, 0}, {0, 1}},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "empty vector",
			ids:     []int64{1},
			vecs:    [][]float32{{}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name: "empty ok",
			ids:  nil,
			vecs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := Build(tt.ids, tt.vecs)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ix.Len() != len(tt.ids) {
				t.Fatalf("expected size %d, got %d", len(tt.ids), ix.Len())
			}
		})
	}
}

func TestInsert(t *testing.T) {
	ix, err := Build([]int64{1}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if err := ix.Insert(2, []float32{0, 1}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if ix.Len() != 2 {
		t.Fatalf("expected size 2, got %d", ix.Len())
	}

	if err := ix.Insert(2, []float32{0, 1}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := ix.Insert(3, []float32{0, 1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestInsertIntoEmptyEstablishesDim(t *testing.T) {
	ix, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if ix.Dim() != 0 {
		t.Fatalf("expected dim 0, got %d", ix.Dim())
	}

	if err := ix.Insert(1, []float32{1, 2, 3}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if ix.Dim() != 3 {
		t.Fatalf("expected dim 3, got %d", ix.Dim())
	}
	if err := ix.Insert(2, []float32{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchOrderingAndLimit(t *testing.T) {
	ix, err := Build(
		[]int64{10, 20, 30, 40},
		[][]float32{
			{0.5, 0}, // score 0.5
			{0.9, 0}, // score 0.9
			{0.1, 0}, // score 0.1
			{0.7, 0}, // score 0.7
		},
	)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantIDs := []int64{20, 40, 10}
	for i, r := range results {
		if r.ID != wantIDs[i] {
			t.Errorf("result %d: expected id %d, got %d", i, wantIDs[i], r.ID)
		}
		if i > 0 && results[i-1].Score < r.Score {
			t.Errorf("scores not descending at %d: %v then %v", i, results[i-1].Score, r.Score)
		}
	}

	// k 大于索引容量时只返回全部
	results, err = ix.Search([]float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
}

func TestSearchTieBreakByAscendingID(t *testing.T) {
	ix, err := Build(
		[]int64{9, 3, 6},
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
	)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	wantIDs := []int64{3, 6, 9}
	for i, r := range results {
		if r.ID != wantIDs[i] {
			t.Fatalf("expected ids %v, got position %d = %d", wantIDs, i, r.ID)
		}
	}
}

func TestSearchRoundTrip(t *testing.T) {
	ix, err := Build(
		[]int64{1, 2, 3},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	results, err := ix.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != 2 {
		t.Fatalf("expected top result id 2, got %v", results)
	}
}

func TestSearchErrors(t *testing.T) {
	ix, err := Build([]int64{1}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := ix.Search([]float32{1, 0}, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for k=0, got %v", err)
	}
	if _, err := ix.Search([]float32{1, 0}, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for k=-1, got %v", err)
	}
	if _, err := ix.Search([]float32{1, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	results, err := ix.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("expected no error on empty index, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}

func TestConcurrentSearchAndInsert(t *testing.T) {
	ix, err := Build([]int64{1}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := ix.Search([]float32{1, 0}, 2); err != nil {
					t.Errorf("search failed: %v", err)
					return
				}
			}
		}()
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 50; i++ {
				if err := ix.Insert(base+i, []float32{0, 1}); err != nil {
					t.Errorf("insert failed: %v", err)
					return
				}
			}
		}(int64(1000 * (g + 1)))
	}
	wg.Wait()

	if ix.Len() != 201 {
		t.Fatalf("expected 201 entries, got %d", ix.Len())
	}
}
