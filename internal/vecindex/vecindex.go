// Package vecindex 实现精确内积检索的内存向量索引。
//
// 索引规模（几百到几千条）下线性扫描足够快，不需要近似索引结构。
// id 由调用方（关系库）分配，索引只持有派生向量，随时可由源数据重建。
package vecindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch 向量维度与索引既定维度不一致。
	ErrDimensionMismatch = errors.New("vecindex: dimension mismatch")
	// ErrDuplicateID id 已存在于索引中。
	ErrDuplicateID = errors.New("vecindex: duplicate id")
	// ErrInvalidArgument 非法参数（如 k <= 0）。
	ErrInvalidArgument = errors.New("vecindex: invalid argument")
)

// Result 单条检索结果。
type Result struct {
	ID    int64
	Score float64
}

// Index 内存向量索引。Search 并发安全，Insert 与任何其他操作互斥。
// 维度在首次写入（Build 的第一批向量或空索引后的首次 Insert）时确定。
type Index struct {
	mu   sync.RWMutex
	dim  int
	ids  []int64
	vecs [][]float32
	byID map[int64]struct{}
}

// Build 以显式 id 批量构建索引。允许空索引（维度延迟到首次 Insert 确定）。
func Build(ids []int64, vectors [][]float32) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids vs %d vectors", ErrDimensionMismatch, len(ids), len(vectors))
	}

	ix := &Index{byID: make(map[int64]struct{}, len(ids))}
	if len(ids) == 0 {
		return ix, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dim %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	for _, id := range ids {
		if _, ok := ix.byID[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		ix.byID[id] = struct{}{}
	}

	ix.dim = dim
	ix.ids = append([]int64(nil), ids...)
	ix.vecs = make([][]float32, len(vectors))
	for i, v := range vectors {
		ix.vecs[i] = append([]float32(nil), v...)
	}
	return ix, nil
}

// Insert 增量写入单条向量。成功后立即可被 Search 命中。
func (ix *Index) Insert(id int64, vector []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim > 0 && len(vector) != ix.dim {
		return fmt.Errorf("%w: vector has dim %d, expected %d", ErrDimensionMismatch, len(vector), ix.dim)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if _, ok := ix.byID[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}

	if ix.dim == 0 {
		ix.dim = len(vector)
	}
	ix.ids = append(ix.ids, id)
	ix.vecs = append(ix.vecs, append([]float32(nil), vector...))
	ix.byID[id] = struct{}{}
	return nil
}

// Search 返回与 query 内积最大的至多 k 条结果，按分数降序、同分按 id 升序。
// 分数为原始内积，未归一化。空索引返回空结果。
func (ix *Index) Search(query []float32, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.ids) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dim %d, expected %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	results := make([]Result, len(ix.ids))
	for i, v := range ix.vecs {
		results[i] = Result{ID: ix.ids[i], Score: dot(query, v)}
	}
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len 返回索引内向量条数。
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Dim 返回索引既定维度，0 表示尚未确定。
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
