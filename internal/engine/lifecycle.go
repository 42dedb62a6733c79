// lifecycle.go implements the Lifecycle Manager: cascading delete,
// load-on-startup, and save-all (SPEC_FULL.md §4.6).
package engine

import (
	"os"
	"strings"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

// Del removes key, cascading per its kind (spec.md §4.3's cascade
// rules). Recommendation and VectorSet deletes run on the owning
// basis's writer executor; Basis deletes run the VectorSet cascade on
// that writer, then tear the writer itself down from the caller's
// goroutine to avoid a self-close deadlock.
func (e *Engine) Del(key string) *simerrors.Error {
	if err := validator.Exists("del", e.view(), key); err != nil {
		return err
	}
	kind, _ := e.cat.Kind(key)
	bkey, _ := e.cat.BasisOf(key)

	switch kind {
	case catalog.Recommendation:
		src, tgt, ok := rkeyParts(key)
		if !ok {
			return simerrors.New(simerrors.Internal, "del", "malformed recommendation key %q", key)
		}
		_, err := e.runWriter("del", bkey, func() (interface{}, *simerrors.Error) {
			return nil, e.deleteRecommendation(bkey, key, src, tgt)
		})
		return err
	case catalog.VectorSet:
		_, err := e.runWriter("del", bkey, func() (interface{}, *simerrors.Error) {
			return nil, e.deleteVectorSet(bkey, key)
		})
		return err
	case catalog.Basis:
		return e.deleteBasis(key)
	default:
		return simerrors.New(simerrors.Internal, "del", "key %q has unknown kind", key)
	}
}

// deleteRecommendation asks the kernel to drop the relation and
// removes its catalog entries. Must run on bkey's writer executor.
func (e *Engine) deleteRecommendation(bkey, rkey, src, tgt string) *simerrors.Error {
	b, ok := e.basisFor(bkey)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, "del", "basis %q does not exist", bkey)
	}
	if kerr := b.Rdel(rkey); kerr != nil {
		return simerrors.Wrap(simerrors.KernelError, "del", kerr, "recommendation %q", rkey)
	}
	e.cat.RemoveKey(rkey)
	return nil
}

// deleteVectorSet cascades a VectorSet's recommendation edges before
// dropping it, snapshotting targetsOf/sourcesOf first (the Open
// Question fix in SPEC_FULL.md §9: the source iterates these sets
// while enqueueing further deletes on the same executor). Must run on
// bkey's writer executor.
func (e *Engine) deleteVectorSet(bkey, vkey string) *simerrors.Error {
	targets := e.cat.TargetsOf(vkey)
	sources := e.cat.SourcesOf(vkey)

	for _, tgt := range targets {
		if err := e.deleteRecommendation(bkey, catalog.Rkey(vkey, tgt), vkey, tgt); err != nil {
			return err
		}
	}
	for _, src := range sources {
		if src == vkey {
			continue
		}
		if err := e.deleteRecommendation(bkey, catalog.Rkey(src, vkey), src, vkey); err != nil {
			return err
		}
	}

	b, ok := e.basisFor(bkey)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, "del", "basis %q does not exist", bkey)
	}
	if kerr := b.Vdel(vkey); kerr != nil {
		return simerrors.Wrap(simerrors.KernelError, "del", kerr, "vector set %q", vkey)
	}
	e.cat.RemoveKey(vkey)
	return nil
}

// deleteBasis cascades every VectorSet under bkey (synchronously, on
// bkey's own writer — no re-entrant submission), then tears the writer
// and the kernel instance down from the calling goroutine and removes
// the Basis's catalog entry.
func (e *Engine) deleteBasis(bkey string) *simerrors.Error {
	vsets := e.cat.VectorSetsOf(bkey) // snapshot before iterating

	_, err := e.runWriter("del", bkey, func() (interface{}, *simerrors.Error) {
		for _, vkey := range vsets {
			if err := e.deleteVectorSet(bkey, vkey); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	w := e.writers[bkey]
	b := e.bases[bkey]
	delete(e.writers, bkey)
	delete(e.bases, bkey)
	e.mu.Unlock()

	if w != nil {
		w.Close()
	}
	if b != nil {
		_ = b.Close()
	}
	e.cat.RemoveKey(bkey)
	return nil
}

// Load scans the save path for `*.dmp` files and bloads each,
// deriving bkey from the file's basename, per spec.md §6's startup
// contract. An empty or missing directory leaves the catalog empty and
// reports no error (invariant 4 in spec.md §8).
func (e *Engine) Load() *simerrors.Error {
	entries, err := os.ReadDir(e.cfg.SavePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return simerrors.Wrap(simerrors.Internal, "load", err, "read save path %q", e.cfg.SavePath)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".dmp") {
			continue
		}
		bkey := strings.TrimSuffix(ent.Name(), ".dmp")
		if berr := e.Bload(bkey); berr != nil {
			return berr
		}
	}
	return nil
}

// Save bsaves every live Basis, matching Cron's periodic snapshot.
func (e *Engine) Save() *simerrors.Error {
	for _, bkey := range e.cat.BasisKeys() {
		if err := e.Bsave(bkey); err != nil {
			return err
		}
	}
	return nil
}
