package engine

import (
	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

// Rlist returns vkey's sorted outgoing recommendation targets.
func (e *Engine) Rlist(vkey string) ([]string, *simerrors.Error) {
	if err := validator.KindIs("rlist", e.view(), vkey, catalog.VectorSet); err != nil {
		return nil, err
	}
	v, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		return e.cat.TargetsOf(vkey), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Rmk creates a recommendation relation between src and tgt, both
// VectorSets sharing a Basis. Runs on the management executor since it
// touches catalog state spanning two VectorSets.
func (e *Engine) Rmk(src, tgt, funcscore string) *simerrors.Error {
	if err := validator.KindIs("rmk", e.view(), src, catalog.VectorSet); err != nil {
		return err
	}
	if err := validator.KindIs("rmk", e.view(), tgt, catalog.VectorSet); err != nil {
		return err
	}
	if err := validator.SameBasis("rmk", e.view(), src, tgt); err != nil {
		return err
	}
	rkey := catalog.Rkey(src, tgt)
	if err := validator.NotExists("rmk", e.view(), rkey); err != nil {
		return err
	}
	_, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		if err := validator.NotExists("rmk", e.view(), rkey); err != nil {
			return nil, err
		}
		bkey, _ := e.cat.BasisOf(src)
		b, ok := e.basisFor(bkey)
		if !ok {
			return nil, simerrors.New(simerrors.UnknownEntry, "rmk", "basis %q does not exist", bkey)
		}
		if kerr := b.Rmk(src, tgt, funcscore); kerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "rmk", kerr, "recommendation %q", rkey)
		}
		return nil, nil
	})
	return err
}

// Rget returns the formatted "id:score" strings for src's top-K
// recommendations against tgt, served from the reader pool.
func (e *Engine) Rget(src string, id int, tgt string) ([]string, *simerrors.Error) {
	if err := e.checkRecommendation("rget", src, tgt); err != nil {
		return nil, err
	}
	v, err := e.runReader("rget", func() (interface{}, *simerrors.Error) {
		b, _, kerr := e.kernelFor("rget", src)
		if kerr != nil {
			return nil, kerr
		}
		out, gerr := b.Rget(src, id, tgt)
		if gerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "rget", gerr, "recommendation %q", catalog.Rkey(src, tgt))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Rrec returns the plain recommended ids for src against tgt, served
// from the reader pool.
func (e *Engine) Rrec(src string, id int, tgt string) ([]int, *simerrors.Error) {
	if err := e.checkRecommendation("rrec", src, tgt); err != nil {
		return nil, err
	}
	v, err := e.runReader("rrec", func() (interface{}, *simerrors.Error) {
		b, _, kerr := e.kernelFor("rrec", src)
		if kerr != nil {
			return nil, kerr
		}
		out, gerr := b.Rrec(src, id, tgt)
		if gerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "rrec", gerr, "recommendation %q", catalog.Rkey(src, tgt))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

func (e *Engine) checkRecommendation(op, src, tgt string) *simerrors.Error {
	if err := validator.KindIs(op, e.view(), src, catalog.VectorSet); err != nil {
		return err
	}
	if err := validator.KindIs(op, e.view(), tgt, catalog.VectorSet); err != nil {
		return err
	}
	return validator.Exists(op, e.view(), catalog.Rkey(src, tgt))
}
