package simkernel

// sparseOverlay remembers, per vector id, which coordinate indices were
// populated through the i* entry points so Iget can answer with the
// original sparse index list instead of a dense vector's zero-padded
// form. The dense values themselves live in the owning VectorSet's
// denseStore — a sparse pair list is just another way to write the same
// underlying vector (SPEC_FULL.md §4.7).
type sparseOverlay struct {
	indices map[int][]int
}

func newSparseOverlay() *sparseOverlay {
	return &sparseOverlay{indices: make(map[int][]int)}
}

func pairsToDense(dim int, pairs []int) []float64 {
	vec := make([]float64, dim)
	for i := 0; i+1 < len(pairs); i += 2 {
		idx, weight := pairs[i], pairs[i+1]
		if idx >= 0 && idx < dim {
			vec[idx] = float64(weight)
		}
	}
	return vec
}

func denseToIndices(vec []float64) []int {
	out := make([]int, 0)
	for i, v := range vec {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

func (s *sparseOverlay) record(id int, pairs []int) {
	idxs := make([]int, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		idxs = append(idxs, pairs[i])
	}
	s.indices[id] = idxs
}

func (s *sparseOverlay) get(id int) ([]int, bool) {
	idxs, ok := s.indices[id]
	return idxs, ok
}

func (s *sparseOverlay) remove(id int) {
	delete(s.indices, id)
}
