package simkernel

import (
	"fmt"
	"sort"
	"sync"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// denseStore is one VectorSet's dense vector storage: a FAISS
// IDMap-wrapped flat index keyed by external vector id, adapted from
// VectorEngineImpl in internal/storage/vector_storage.go. Unlike the
// teacher, which owns one index per Basis, SPEC_FULL's VectorSet is the
// natural storage unit, so one denseStore exists per live VectorSet.
type denseStore struct {
	mu  sync.RWMutex
	dim int
	idx faiss.Index
	// raw keeps float64 copies for Vacc/Vget precision and for the
	// recommendation scorer's brute-force fallback; FAISS itself only
	// round-trips float32.
	raw map[int][]float64
}

func newDenseStore(dim int) (*denseStore, error) {
	idx, err := faiss.IndexFactory(dim, "IDMap,Flat", faiss.MetricL2)
	if err != nil {
		return nil, fmt.Errorf("create dense index: %w", err)
	}
	return &denseStore{dim: dim, idx: idx, raw: make(map[int][]float64)}, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func (d *denseStore) set(id int, vec []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(vec) != d.dim {
		return fmt.Errorf("vector length mismatch: expected %d, got %d", d.dim, len(vec))
	}
	sel, err := faiss.NewIDSelectorBatch([]int64{int64(id)})
	if err == nil {
		_, _ = d.idx.RemoveIDs(sel)
		sel.Delete()
	}
	if err := d.idx.AddWithIDs(toFloat32(vec), []int64{int64(id)}); err != nil {
		return err
	}
	cp := make([]float64, len(vec))
	copy(cp, vec)
	d.raw[id] = cp
	return nil
}

func (d *denseStore) acc(id int, vec []float64) error {
	d.mu.RLock()
	existing, ok := d.raw[id]
	d.mu.RUnlock()
	if !ok {
		return d.set(id, vec)
	}
	sum := make([]float64, d.dim)
	for i := range sum {
		sum[i] = existing[i] + vec[i]
	}
	return d.set(id, sum)
}

func (d *denseStore) remove(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel, err := faiss.NewIDSelectorBatch([]int64{int64(id)})
	if err != nil {
		return err
	}
	defer sel.Delete()
	if _, err := d.idx.RemoveIDs(sel); err != nil {
		return err
	}
	delete(d.raw, id)
	return nil
}

func (d *denseStore) get(id int) ([]float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.raw[id]
	if !ok {
		return nil, false
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp, true
}

func (d *denseStore) ids() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]int, 0, len(d.raw))
	for id := range d.raw {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// searchL2 runs FAISS's native search when the recommendation's scoring
// function maps directly onto the index's metric, the fast path
// SPEC_FULL.md §4.7 describes.
func (d *denseStore) searchL2(query []float64, k int) ([]Scored, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.raw) == 0 {
		return nil, nil
	}
	if k > len(d.raw) {
		k = len(d.raw)
	}
	dists, labels, err := d.idx.Search(toFloat32(query), int64(k))
	if err != nil {
		return nil, err
	}
	out := make([]Scored, 0, len(labels))
	for i, id := range labels {
		if id < 0 {
			continue
		}
		// FAISS L2 is a distance; invert so higher Score means closer,
		// matching the convention the brute-force scorers below use.
		out = append(out, Scored{ID: int(id), Score: -dists[i]})
	}
	return out, nil
}

func (d *denseStore) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idx.Delete()
}
