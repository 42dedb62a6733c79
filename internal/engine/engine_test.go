package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Podcopic-Labs/simbase/internal/simconfig"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := simconfig.LoadDefault()
	cfg.SavePath = dir
	eng, err := New(cfg, MinReaderWorkers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func mustOK(t *testing.T, op string, err *simerrors.Error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", op, err)
	}
}

func wantKind(t *testing.T, op string, err *simerrors.Error, kind simerrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error kind %s, got nil", op, kind)
	}
	if err.Kind != kind {
		t.Fatalf("%s: expected error kind %s, got %s", op, kind, err.Kind)
	}
}

// TestS1Basis covers scenario S1: bmk -> blist -> bget.
func TestS1Basis(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a", "b", "c"}))

	bases, err := e.Blist()
	mustOK(t, "blist", err)
	if len(bases) != 1 || bases[0] != "b1" {
		t.Fatalf("blist: expected [b1], got %v", bases)
	}

	base, err := e.Bget("b1")
	mustOK(t, "bget", err)
	if len(base) != 3 || base[0] != "a" || base[1] != "b" || base[2] != "c" {
		t.Fatalf("bget: expected [a b c], got %v", base)
	}
}

// TestS2VectorRoundTrip covers scenario S2: vmk -> vadd -> vget/vids.
func TestS2VectorRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a", "b", "c"}))
	mustOK(t, "vmk", e.Vmk("b1", "vs"))
	mustOK(t, "vadd", e.Vadd("vs", 1, []float64{0.2, 0.3, 0.5}))

	waitWriterDrain(t, e, "b1")

	vec, err := e.Vget("vs", 1)
	mustOK(t, "vget", err)
	if len(vec) != 3 || vec[0] != 0.2 || vec[1] != 0.3 || vec[2] != 0.5 {
		t.Fatalf("vget: expected [0.2 0.3 0.5], got %v", vec)
	}

	ids, err := e.Vids("vs")
	mustOK(t, "vids", err)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("vids: expected [1], got %v", ids)
	}
}

// TestS3InvalidInputs covers scenario S3: out-of-range probability and
// non-positive id are rejected synchronously.
func TestS3InvalidInputs(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a", "b", "c"}))
	mustOK(t, "vmk", e.Vmk("b1", "vs"))

	wantKind(t, "vadd", e.Vadd("vs", 1, []float64{1.1, 0, 0}), simerrors.InvalidProbability)
	wantKind(t, "vadd", e.Vadd("vs", 0, []float64{0.5, 0.5, 0}), simerrors.InvalidID)
}

// TestS4RecommendationCascade covers scenario S4: rmk, rlist, and
// cascading delete of the recommendation's target.
func TestS4RecommendationCascade(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a", "b"}))
	mustOK(t, "vmk", e.Vmk("b1", "src"))
	mustOK(t, "vmk", e.Vmk("b1", "tgt"))
	mustOK(t, "rmk", e.Rmk("src", "tgt", "cosine"))

	targets, err := e.Rlist("src")
	mustOK(t, "rlist", err)
	if len(targets) != 1 || targets[0] != "tgt" {
		t.Fatalf("rlist: expected [tgt], got %v", targets)
	}

	mustOK(t, "del", e.Del("tgt"))

	targets, err = e.Rlist("src")
	mustOK(t, "rlist", err)
	if len(targets) != 0 {
		t.Fatalf("rlist after del: expected [], got %v", targets)
	}
}

// TestS5CrossBasisRecommendationRejected covers scenario S5.
func TestS5CrossBasisRecommendationRejected(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a"}))
	mustOK(t, "vmk", e.Vmk("b1", "vs"))
	mustOK(t, "bmk", e.Bmk("b2", []string{"a"}))
	mustOK(t, "vmk", e.Vmk("b2", "u"))

	wantKind(t, "rmk", e.Rmk("vs", "u", "cosine"), simerrors.BasisMismatch)
}

// TestS6SaveLoadRoundTrip covers scenario S6: bsave followed by a
// fresh engine loading the same save path reproduces the vector.
func TestS6SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := simconfig.LoadDefault()
	cfg.SavePath = dir

	e1, err := New(cfg, MinReaderWorkers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustOK(t, "bmk", e1.Bmk("b1", []string{"a", "b", "c"}))
	mustOK(t, "vmk", e1.Vmk("b1", "vs"))
	mustOK(t, "vadd", e1.Vadd("vs", 1, []float64{0.2, 0.3, 0.5}))
	waitWriterDrain(t, e1, "b1")
	mustOK(t, "bsave", e1.Bsave("b1"))
	e1.Close()

	e2, err := New(cfg, MinReaderWorkers)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e2.Close)
	mustOK(t, "load", e2.Load())

	vec, err := e2.Vget("vs", 1)
	mustOK(t, "vget", err)
	if len(vec) != 3 || vec[0] != 0.2 || vec[1] != 0.3 || vec[2] != 0.5 {
		t.Fatalf("vget after reload: expected [0.2 0.3 0.5], got %v", vec)
	}
}

// TestInvariantRejectsUnderscoreInUserKeys covers invariant 6.
func TestInvariantRejectsUnderscoreInUserKeys(t *testing.T) {
	e := newTestEngine(t)
	wantKind(t, "bmk", e.Bmk("a_b", []string{"x"}), simerrors.InvalidKeyFormat)

	mustOK(t, "bmk", e.Bmk("b1", []string{"x"}))
	wantKind(t, "vmk", e.Vmk("b1", "x_y"), simerrors.InvalidKeyFormat)
}

// TestInvariantCascadeCompleteness covers invariant 2: deleting a
// basis removes every key under it, including recommendations, and
// tears down its writer executor.
func TestInvariantCascadeCompleteness(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a"}))
	mustOK(t, "vmk", e.Vmk("b1", "src"))
	mustOK(t, "vmk", e.Vmk("b1", "tgt"))
	mustOK(t, "rmk", e.Rmk("src", "tgt", "cosine"))

	mustOK(t, "del", e.Del("b1"))

	if e.cat.Exists("b1") || e.cat.Exists("src") || e.cat.Exists("tgt") {
		t.Fatalf("expected b1, src, tgt all gone after basis delete")
	}
	if e.cat.Exists("src_tgt") {
		t.Fatalf("expected recommendation src_tgt gone after basis delete")
	}
	if e.writerFor("b1") != nil {
		t.Fatalf("expected b1's writer executor to be torn down")
	}
}

// TestInvariantLoadOnEmptyDirectory covers invariant 4.
func TestInvariantLoadOnEmptyDirectory(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "load", e.Load())
	bases, err := e.Blist()
	mustOK(t, "blist", err)
	if len(bases) != 0 {
		t.Fatalf("expected empty catalog after loading an empty directory, got %v", bases)
	}
}

// TestDumpMissingOnBload ensures bload against a nonexistent dump file
// fails with DumpMissing rather than silently creating an empty basis.
func TestDumpMissingOnBload(t *testing.T) {
	e := newTestEngine(t)
	wantKind(t, "bload", e.Bload("ghost"), simerrors.DumpMissing)
	if e.cat.Exists("ghost") {
		t.Fatalf("bload on a missing dump must not register the basis")
	}
}

// TestReaderPoolRejectionReplies ensures a saturated reader pool always
// replies Rejected instead of leaving the caller dangling
// (SPEC_FULL.md §9's fix of the source's silent-drop bug).
func TestReaderPoolRejectionReplies(t *testing.T) {
	e := newTestEngine(t)
	mustOK(t, "bmk", e.Bmk("b1", []string{"a"}))

	// Fill the reader pool's queue past capacity with blocking jobs.
	block := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	for i := 0; i < MinReaderWorkers+ReaderQueueCap; i++ {
		ok := e.readers.TrySubmit(func() {
			<-release
		})
		if !ok {
			close(block)
			break
		}
	}

	_, err := e.Bget("b1")
	if err == nil || err.Kind != simerrors.Rejected {
		t.Fatalf("expected Rejected once the reader pool saturates, got %v", err)
	}
}

// waitWriterDrain blocks until bkey's writer executor has processed
// every job submitted so far, used to observe fire-and-forget writes
// before asserting on them.
func waitWriterDrain(t *testing.T, e *Engine, bkey string) {
	t.Helper()
	_, err := e.runWriter("test-drain", bkey, func() (interface{}, *simerrors.Error) { return nil, nil })
	if err != nil {
		t.Fatalf("drain %s: %v", bkey, err)
	}
}

func TestMain_dumpPathUsesSavePath(t *testing.T) {
	e := newTestEngine(t)
	got := e.dumpPath("b1")
	want := filepath.Join(e.cfg.SavePath, "b1.dmp")
	if got != want {
		t.Fatalf("dumpPath: got %q, want %q", got, want)
	}
	if _, err := os.Stat(e.cfg.SavePath); err != nil {
		t.Fatalf("expected save path to exist: %v", err)
	}
}
