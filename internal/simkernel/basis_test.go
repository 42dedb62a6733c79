package simkernel

import (
	"path/filepath"
	"testing"
)

func newTestBasisImpl(t *testing.T) *basisImpl {
	t.Helper()
	path := filepath.Join(t.TempDir(), "basis.wal")
	b, err := NewBasis("b1", []string{"a", "b", "c"}, path)
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b.(*basisImpl)
}

type recordingListener struct {
	added   []string
	deleted []string
	recAdd  []string
	recDel  []string
}

func (l *recordingListener) OnVecSetAdded(bkey, vkey string)   { l.added = append(l.added, vkey) }
func (l *recordingListener) OnVecSetDeleted(bkey, vkey string) { l.deleted = append(l.deleted, vkey) }
func (l *recordingListener) OnRecAdded(bkey, from, to string)  { l.recAdd = append(l.recAdd, from+"_"+to) }
func (l *recordingListener) OnRecDeleted(bkey, from, to string) {
	l.recDel = append(l.recDel, from+"_"+to)
}

func TestBasisVectorRoundTrip(t *testing.T) {
	b := newTestBasisImpl(t)

	if err := b.Vmk("vs"); err != nil {
		t.Fatalf("Vmk: %v", err)
	}
	if err := b.Vadd("vs", 1, []float64{0.2, 0.3, 0.5}); err != nil {
		t.Fatalf("Vadd: %v", err)
	}

	vec, err := b.Vget("vs", 1)
	if err != nil {
		t.Fatalf("Vget: %v", err)
	}
	want := []float64{0.2, 0.3, 0.5}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("Vget: expected %v, got %v", want, vec)
		}
	}

	ids, err := b.Vids("vs")
	if err != nil {
		t.Fatalf("Vids: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("Vids: expected [1], got %v", ids)
	}
}

func TestBasisVaccSumsOntoExisting(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("vs"); err != nil {
		t.Fatalf("Vmk: %v", err)
	}
	if err := b.Vadd("vs", 1, []float64{1, 1, 1}); err != nil {
		t.Fatalf("Vadd: %v", err)
	}
	if err := b.Vacc("vs", 1, []float64{1, 2, 3}); err != nil {
		t.Fatalf("Vacc: %v", err)
	}

	vec, err := b.Vget("vs", 1)
	if err != nil {
		t.Fatalf("Vget: %v", err)
	}
	want := []float64{2, 3, 4}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("Vget after Vacc: expected %v, got %v", want, vec)
		}
	}
}

func TestBasisSparseRoundTrip(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("vs"); err != nil {
		t.Fatalf("Vmk: %v", err)
	}
	if err := b.Iadd("vs", 1, []int{0, 5, 2, 3}); err != nil {
		t.Fatalf("Iadd: %v", err)
	}

	idxs, err := b.Iget("vs", 1)
	if err != nil {
		t.Fatalf("Iget: %v", err)
	}
	want := []int{0, 2}
	if len(idxs) != len(want) || idxs[0] != want[0] || idxs[1] != want[1] {
		t.Fatalf("Iget: expected %v, got %v", want, idxs)
	}
}

func TestBasisVdelCascadesRecommendations(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("src"); err != nil {
		t.Fatalf("Vmk(src): %v", err)
	}
	if err := b.Vmk("tgt"); err != nil {
		t.Fatalf("Vmk(tgt): %v", err)
	}
	if err := b.Rmk("src", "tgt", "cosine"); err != nil {
		t.Fatalf("Rmk: %v", err)
	}

	l := &recordingListener{}
	b.AddListener(l)

	if err := b.Vdel("tgt"); err != nil {
		t.Fatalf("Vdel: %v", err)
	}

	if len(l.recDel) != 1 || l.recDel[0] != "src_tgt" {
		t.Fatalf("Vdel: expected recommendation src_tgt to be cascaded, got %v", l.recDel)
	}
	if _, err := b.Rget("src", 1, "tgt"); err == nil {
		t.Fatalf("Rget after Vdel(tgt): expected an error, got none")
	}
}

func TestBasisRecommendTopK(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("src"); err != nil {
		t.Fatalf("Vmk(src): %v", err)
	}
	if err := b.Vmk("tgt"); err != nil {
		t.Fatalf("Vmk(tgt): %v", err)
	}
	if err := b.Vadd("src", 1, []float64{1, 0, 0}); err != nil {
		t.Fatalf("Vadd(src): %v", err)
	}
	if err := b.Vadd("tgt", 1, []float64{1, 0, 0}); err != nil {
		t.Fatalf("Vadd(tgt, close): %v", err)
	}
	if err := b.Vadd("tgt", 2, []float64{0, 1, 0}); err != nil {
		t.Fatalf("Vadd(tgt, far): %v", err)
	}
	if err := b.Rmk("src", "tgt", "cosine"); err != nil {
		t.Fatalf("Rmk: %v", err)
	}

	ranked, err := b.Rrec("src", 1, "tgt")
	if err != nil {
		t.Fatalf("Rrec: %v", err)
	}
	if len(ranked) != 2 || ranked[0] != 1 {
		t.Fatalf("Rrec: expected the closer vector 1 ranked first, got %v", ranked)
	}
}

func TestBasisRecommendTopKL2(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("src"); err != nil {
		t.Fatalf("Vmk(src): %v", err)
	}
	if err := b.Vmk("tgt"); err != nil {
		t.Fatalf("Vmk(tgt): %v", err)
	}
	if err := b.Vadd("src", 1, []float64{1, 0, 0}); err != nil {
		t.Fatalf("Vadd(src): %v", err)
	}
	if err := b.Vadd("tgt", 1, []float64{1, 0, 0}); err != nil {
		t.Fatalf("Vadd(tgt, close): %v", err)
	}
	if err := b.Vadd("tgt", 2, []float64{0, 1, 0}); err != nil {
		t.Fatalf("Vadd(tgt, far): %v", err)
	}
	if err := b.Rmk("src", "tgt", "l2"); err != nil {
		t.Fatalf("Rmk: %v", err)
	}

	ranked, err := b.Rrec("src", 1, "tgt")
	if err != nil {
		t.Fatalf("Rrec: %v", err)
	}
	if len(ranked) != 2 || ranked[0] != 1 {
		t.Fatalf("Rrec(l2): expected the closer vector 1 ranked first, got %v", ranked)
	}
}

func TestBasisSaveLoadRoundTrip(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Vmk("vs"); err != nil {
		t.Fatalf("Vmk: %v", err)
	}
	if err := b.Vadd("vs", 1, []float64{0.2, 0.3, 0.5}); err != nil {
		t.Fatalf("Vadd: %v", err)
	}

	dumpPath := filepath.Join(t.TempDir(), "b1.dmp")
	if err := b.Bsave(dumpPath); err != nil {
		t.Fatalf("Bsave: %v", err)
	}

	reloaded := newTestBasisImpl(t)
	if err := reloaded.Bload(dumpPath); err != nil {
		t.Fatalf("Bload: %v", err)
	}

	vec, err := reloaded.Vget("vs", 1)
	if err != nil {
		t.Fatalf("Vget after Bload: %v", err)
	}
	want := []float64{0.2, 0.3, 0.5}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("Vget after Bload: expected %v, got %v", want, vec)
		}
	}
}

func TestBasisBrevRejectsCountMismatch(t *testing.T) {
	b := newTestBasisImpl(t)
	if err := b.Brev([]string{"x", "y"}); err == nil {
		t.Fatalf("Brev: expected an error for a coordinate count mismatch, got none")
	}
}
