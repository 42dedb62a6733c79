package simkernel

import "sort"

// defaultTopK bounds how many target ids a recommendation keeps per
// source id, matching the "top-K nearest-neighbor recommendations" goal
// in spec.md §1. The kernel is a reference implementation, not a tuned
// production index, so this is a fixed constant rather than a knob.
const defaultTopK = 10

// recommendation is the kernel's view of spec.md §3's Recommendation
// entity: a scoring function between two named VectorSets, computed
// lazily against the target's live vectors rather than maintained
// incrementally, per SPEC_FULL.md §4.7.
type recommendation struct {
	src, tgt  string
	funcscore string
}

func newRecommendation(src, tgt, funcscore string) *recommendation {
	return &recommendation{src: src, tgt: tgt, funcscore: funcscore}
}

// topK scores the source vector against every live vector in tgt and
// returns the best defaultTopK matches, using FAISS's native search
// when the funcscore maps onto the index's L2 metric and falling back
// to the brute-force scorers otherwise.
func (r *recommendation) topK(srcVec []float64, tgt *denseStore) ([]Scored, error) {
	if r.funcscore == "l2" {
		return tgt.searchL2(srcVec, defaultTopK)
	}

	score := scorerFor(r.funcscore)
	ids := tgt.ids()
	out := make([]Scored, 0, len(ids))
	for _, id := range ids {
		vec, ok := tgt.get(id)
		if !ok {
			continue
		}
		out = append(out, Scored{ID: id, Score: score(srcVec, vec)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > defaultTopK {
		out = out[:defaultTopK]
	}
	return out, nil
}
