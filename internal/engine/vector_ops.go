package engine

import (
	"log"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/simkernel"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

// Vlist returns the sorted VectorSet keys under bkey.
func (e *Engine) Vlist(bkey string) ([]string, *simerrors.Error) {
	if err := validator.KindIs("vlist", e.view(), bkey, catalog.Basis); err != nil {
		return nil, err
	}
	v, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		return e.cat.VectorSetsOf(bkey), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Vmk creates vkey under bkey, both in the kernel and the catalog.
func (e *Engine) Vmk(bkey, vkey string) *simerrors.Error {
	if err := validator.KindIs("vmk", e.view(), bkey, catalog.Basis); err != nil {
		return err
	}
	if err := validator.ValidKeyFormat("vmk", vkey); err != nil {
		return err
	}
	if err := validator.NotExists("vmk", e.view(), vkey); err != nil {
		return err
	}
	_, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		if err := validator.NotExists("vmk", e.view(), vkey); err != nil {
			return nil, err
		}
		b, _ := e.basisFor(bkey)
		if kerr := b.Vmk(vkey); kerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "vmk", kerr, "vector set %q", vkey)
		}
		return nil, nil
	})
	return err
}

// kernelFor resolves vkey's owning basis and kernel instance.
func (e *Engine) kernelFor(op, vkey string) (simkernel.Basis, string, *simerrors.Error) {
	bkey, ok := e.cat.BasisOf(vkey)
	if !ok {
		return nil, "", simerrors.New(simerrors.UnknownEntry, op, "vector set %q does not exist", vkey)
	}
	b, ok := e.basisFor(bkey)
	if !ok {
		return nil, "", simerrors.New(simerrors.UnknownEntry, op, "basis %q does not exist", bkey)
	}
	return b, bkey, nil
}

// Vids returns vkey's live vector ids, served from the reader pool.
func (e *Engine) Vids(vkey string) ([]int, *simerrors.Error) {
	if err := validator.KindIs("vids", e.view(), vkey, catalog.VectorSet); err != nil {
		return nil, err
	}
	v, err := e.runReader("vids", func() (interface{}, *simerrors.Error) {
		b, _, kerr := e.kernelFor("vids", vkey)
		if kerr != nil {
			return nil, kerr
		}
		ids, gerr := b.Vids(vkey)
		if gerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "vids", gerr, "vector set %q", vkey)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

// Vget returns the dense vector for (vkey, id), served from the
// reader pool.
func (e *Engine) Vget(vkey string, id int) ([]float64, *simerrors.Error) {
	if err := validator.KindIs("vget", e.view(), vkey, catalog.VectorSet); err != nil {
		return nil, err
	}
	v, err := e.runReader("vget", func() (interface{}, *simerrors.Error) {
		b, _, kerr := e.kernelFor("vget", vkey)
		if kerr != nil {
			return nil, kerr
		}
		vec, gerr := b.Vget(vkey, id)
		if gerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "vget", gerr, "vector (%s,%d)", vkey, id)
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// mutateDense validates and enqueues a fire-and-forget dense write on
// vkey's basis writer executor. Per spec.md §7's propagation policy,
// the caller has already received "ok" by the time apply runs, so a
// kernel failure here is only visible through logs and the next read.
func (e *Engine) mutateDense(op, vkey string, id int, vec []float64, apply func(simkernel.Basis) error) *simerrors.Error {
	if err := validator.KindIs(op, e.view(), vkey, catalog.VectorSet); err != nil {
		return err
	}
	if err := validator.ValidID(op, id); err != nil {
		return err
	}
	if err := validator.ValidProbs(op, vec); err != nil {
		return err
	}
	bkey, ok := e.cat.BasisOf(vkey)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, op, "vector set %q does not exist", vkey)
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

// Vadd, Vset and Vacc are fire-and-forget writes serialized through
// vkey's basis writer executor.
func (e *Engine) Vadd(vkey string, id int, vec []float64) *simerrors.Error {
	return e.mutateDense("vadd", vkey, id, vec, func(b simkernel.Basis) error { return b.Vadd(vkey, id, vec) })
}

func (e *Engine) Vset(vkey string, id int, vec []float64) *simerrors.Error {
	return e.mutateDense("vset", vkey, id, vec, func(b simkernel.Basis) error { return b.Vset(vkey, id, vec) })
}

func (e *Engine) Vacc(vkey string, id int, vec []float64) *simerrors.Error {
	return e.mutateDense("vacc", vkey, id, vec, func(b simkernel.Basis) error { return b.Vacc(vkey, id, vec) })
}

// Vrem removes (vkey, id), fire-and-forget on vkey's writer executor.
func (e *Engine) Vrem(vkey string, id int) *simerrors.Error {
	if err := validator.KindIs("vrem", e.view(), vkey, catalog.VectorSet); err != nil {
		return err
	}
	bkey, ok := e.cat.BasisOf(vkey)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, "vrem", "vector set %q does not exist", vkey)
	}
	return e.submitWriterAsync("vrem", bkey, func() {
		b, ok := e.basisFor(bkey)
		if !ok {
			log.Printf("vrem: basis %q vanished before the write ran", bkey)
			return
		}
		if err := b.Vrem(vkey, id); err != nil {
			log.Printf("vrem: async remove of (%s,%d) failed: %v", vkey, id, err)
		}
	})
}
