// Package simkernel is a concrete reference implementation of the
// SimBasis numerical kernel described in SPEC_FULL.md §6: the external
// collaborator the engine dispatches vector and recommendation work to.
// It is grounded on internal/storage/vector_storage.go's FAISS-backed
// approach, generalized from one engine-wide vector space to one dense
// index per VectorSet, plus a sparse overlay and a recommendation
// scorer.
package simkernel

// Scored pairs an entity id with a similarity score, the unit the
// recommendation engine returns from Rget/Rrec before formatting.
type Scored struct {
	ID    int
	Score float32
}

// Listener receives the four events a Basis emits whenever a VectorSet
// or a Recommendation is created or removed, whether by a dispatcher
// call (Vmk, Vdel, Rmk, Rdel) or internally during Bload's restore
// (SPEC_FULL.md §4.7's Events bullet).
type Listener interface {
	OnVecSetAdded(bkey, vkey string)
	OnVecSetDeleted(bkey, vkey string)
	OnRecAdded(bkey, vkeyFrom, vkeyTo string)
	OnRecDeleted(bkey, vkeyFrom, vkeyTo string)
}

// Basis is the per-basis numerical kernel contract consumed by the
// dispatcher (SPEC_FULL.md §6). Every method here runs on the caller's
// goroutine; the dispatcher chooses which executor calls each one.
type Basis interface {
	Bload(path string) error
	Bsave(path string) error
	Brev(base []string) error
	Bget() []string

	Vmk(vkey string) error
	Vdel(vkey string) error
	Vids(vkey string) ([]int, error)

	Vget(vkey string, id int) ([]float64, error)
	Vadd(vkey string, id int, vec []float64) error
	Vset(vkey string, id int, vec []float64) error
	Vacc(vkey string, id int, vec []float64) error
	Vrem(vkey string, id int) error

	Iget(vkey string, id int) ([]int, error)
	Iadd(vkey string, id int, pairs []int) error
	Iset(vkey string, id int, pairs []int) error
	Iacc(vkey string, id int, pairs []int) error

	Rmk(src, tgt, funcscore string) error
	Rdel(rkey string) error
	Rget(src string, id int, tgt string) ([]string, error)
	Rrec(src string, id int, tgt string) ([]int, error)

	AddListener(l Listener)
	Close() error
}
