package simkernel

import "testing"

func TestPairsToDense(t *testing.T) {
	vec := pairsToDense(4, []int{0, 5, 2, 3})
	want := []float64{5, 0, 3, 0}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("pairsToDense: expected %v, got %v", want, vec)
		}
	}
}

func TestPairsToDenseIgnoresOutOfRangeIndex(t *testing.T) {
	vec := pairsToDense(2, []int{5, 9, 0, 1})
	want := []float64{1, 0}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("pairsToDense(out-of-range): expected %v, got %v", want, vec)
		}
	}
}

func TestDenseToIndices(t *testing.T) {
	got := denseToIndices([]float64{0, 3, 0, 1})
	want := []int{1, 3}
	if len(got) != len(want) {
		t.Fatalf("denseToIndices: expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("denseToIndices: expected %v, got %v", want, got)
		}
	}
}

func TestSparseOverlayRecordGetRemove(t *testing.T) {
	s := newSparseOverlay()
	s.record(1, []int{0, 5, 2, 3})

	idxs, ok := s.get(1)
	if !ok {
		t.Fatalf("get(1): expected recorded indices, got none")
	}
	want := []int{0, 2}
	if len(idxs) != len(want) || idxs[0] != want[0] || idxs[1] != want[1] {
		t.Fatalf("get(1): expected %v, got %v", want, idxs)
	}

	s.remove(1)
	if _, ok := s.get(1); ok {
		t.Fatalf("get(1) after remove: expected not found")
	}
}
