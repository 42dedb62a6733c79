package engine

import (
	"os"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/executor"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/simkernel"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

// Bmk creates a new Basis with the given coordinate names, attaching
// its writer executor and kernel instance on the management executor.
func (e *Engine) Bmk(bkey string, base []string) *simerrors.Error {
	if err := validator.ValidKeyFormat("bmk", bkey); err != nil {
		return err
	}
	_, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		if err := validator.NotExists("bmk", e.view(), bkey); err != nil {
			return nil, err
		}
		return nil, e.createBasis(bkey, base)
	})
	return err
}

// createBasis builds the kernel instance and writer executor for bkey
// and registers it in the catalog. Callers must hold no lock; it takes
// its own.
func (e *Engine) createBasis(bkey string, base []string) *simerrors.Error {
	b, kerr := simkernel.NewBasis(bkey, base, e.walPath(bkey))
	if kerr != nil {
		return simerrors.Wrap(simerrors.KernelError, "bmk", kerr, "basis %q", bkey)
	}
	e.mu.Lock()
	e.bases[bkey] = b
	e.writers[bkey] = executor.NewSingle(writerQueueCap)
	e.mu.Unlock()
	b.AddListener(e)
	e.cat.AddBasis(bkey)
	return nil
}

// Bload creates (or replaces, cascading a full delete first) a Basis
// from its dump file. Per SPEC_FULL.md §9, the cascade and the rebuild
// run as one management-executor job so no half-built state is ever
// externally observable.
func (e *Engine) Bload(bkey string) *simerrors.Error {
	if err := validator.ValidKeyFormat("bload", bkey); err != nil {
		return err
	}
	path := e.dumpPath(bkey)
	_, statErr := os.Stat(path)
	if err := validator.ValidDumpPath("bload", statErr == nil, path); err != nil {
		return err
	}
	_, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		if e.cat.Exists(bkey) {
			if err := e.deleteBasis(bkey); err != nil {
				return nil, err
			}
		}
		if err := e.createBasis(bkey, nil); err != nil {
			return nil, err
		}
		b, _ := e.basisFor(bkey)
		if kerr := b.Bload(path); kerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "bload", kerr, "basis %q", bkey)
		}
		return nil, nil
	})
	return err
}

// Bsave runs on bkey's writer executor, matching the table's
// writer(bkey) assignment.
func (e *Engine) Bsave(bkey string) *simerrors.Error {
	if err := validator.KindIs("bsave", e.view(), bkey, catalog.Basis); err != nil {
		return err
	}
	_, err := e.runWriter("bsave", bkey, func() (interface{}, *simerrors.Error) {
		b, _ := e.basisFor(bkey)
		if kerr := b.Bsave(e.dumpPath(bkey)); kerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "bsave", kerr, "basis %q", bkey)
		}
		return nil, nil
	})
	return err
}

// Blist returns the sorted list of live Basis keys.
func (e *Engine) Blist() ([]string, *simerrors.Error) {
	v, err := e.runMgmt(func() (interface{}, *simerrors.Error) {
		return e.cat.BasisKeys(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Brev reorders or renames bkey's coordinate names.
func (e *Engine) Brev(bkey string, base []string) *simerrors.Error {
	if err := validator.KindIs("brev", e.view(), bkey, catalog.Basis); err != nil {
		return err
	}
	if err := validator.ValidKeyFormat("brev", bkey); err != nil {
		return err
	}
	_, err := e.runWriter("brev", bkey, func() (interface{}, *simerrors.Error) {
		b, _ := e.basisFor(bkey)
		if kerr := b.Brev(base); kerr != nil {
			return nil, simerrors.Wrap(simerrors.KernelError, "brev", kerr, "basis %q", bkey)
		}
		return nil, nil
	})
	return err
}

// Bget returns bkey's coordinate names, served from the reader pool.
func (e *Engine) Bget(bkey string) ([]string, *simerrors.Error) {
	if err := validator.KindIs("bget", e.view(), bkey, catalog.Basis); err != nil {
		return nil, err
	}
	v, err := e.runReader("bget", func() (interface{}, *simerrors.Error) {
		b, ok := e.basisFor(bkey)
		if !ok {
			return nil, simerrors.New(simerrors.UnknownEntry, "bget", "basis %q does not exist", bkey)
		}
		return b.Bget(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
