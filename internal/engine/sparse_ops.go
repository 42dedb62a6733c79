package engine

import (
	"log"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/simkernel"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

// Iget returns vkey's sparse index list for id, served from the
// reader pool. SPEC_FULL.md §4.3 tightens this to require vkey be a
// VectorSet, rather than the original's bare Exists check.
func (e *Engine) Iget(vkey string, id int) ([]int, *simerrors.Error) {
	if err := validator.KindIs("iget", e.view(), vkey, catalog.VectorSet); err != nil {
		return nil, err
	}
	v, err := e.runReader("iget", func() (interface{}, *simerrors.Error) {
		b, _, kerr := e.kernelFor("iget", vkey)
		if kerr != nil {
			return nil, kerr
		}
		idxs, gerr := b.Iget(vkey, id)
		if gerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "iget", gerr, "vector (%s,%d)", vkey, id)
		}
		return idxs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

// mutateSparse validates an alternating (index, weight) pair list
// against vkey's basis dimension and enqueues a fire-and-forget write.
func (e *Engine) mutateSparse(op, vkey string, id int, pairs []int, apply func(simkernel.Basis) error) *simerrors.Error {
	if err := validator.KindIs(op, e.view(), vkey, catalog.VectorSet); err != nil {
		return err
	}
	if err := validator.ValidID(op, id); err != nil {
		return err
	}
	b, bkey, kerr := e.kernelFor(op, vkey)
	if kerr != nil {
		return kerr
	}
	// dim bounds pairs to exactly the width pairsToDense and the basis's
	// dense store share — an index the dense vector can't hold is never
	// valid, regardless of what the source's validatePairs allowed.
	dim := dimOf(b)
	if err := validator.ValidSparsePairs(op, dim, pairs); err != nil {
		return err
	}
	return e.submitWriterAsync(op, bkey, func() {
		b, ok := e.basisFor(bkey)
		if !ok {
			log.Printf("%s: basis %q vanished before the write ran", op, bkey)
			return
		}
		if err := apply(b); err != nil {
			log.Printf("%s: async write to %q failed: %v", op, vkey, err)
			return
		}
		e.bumpWriteCounter(op, vkey)
	})
}

func (e *Engine) Iadd(vkey string, id int, pairs []int) *simerrors.Error {
	return e.mutateSparse("iadd", vkey, id, pairs, func(b simkernel.Basis) error { return b.Iadd(vkey, id, pairs) })
}

func (e *Engine) Iset(vkey string, id int, pairs []int) *simerrors.Error {
	return e.mutateSparse("iset", vkey, id, pairs, func(b simkernel.Basis) error { return b.Iset(vkey, id, pairs) })
}

func (e *Engine) Iacc(vkey string, id int, pairs []int) *simerrors.Error {
	return e.mutateSparse("iacc", vkey, id, pairs, func(b simkernel.Basis) error { return b.Iacc(vkey, id, pairs) })
}
