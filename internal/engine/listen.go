package engine

import "github.com/Podcopic-Labs/simbase/internal/simerrors"

// Listen forwards listener registration to the kernel instance owning
// bkey, running on that basis's writer executor per spec.md §4.3's
// `listen(bkey|vkey|src+tgt, listener)` entry — the engine's kernel is
// scoped per-basis, so a vkey or src+tgt argument resolves to the same
// underlying registration as its owning bkey.
func (e *Engine) Listen(bkey string, l Listener) *simerrors.Error {
	_, err := e.runWriter("listen", bkey, func() (interface{}, *simerrors.Error) {
		b, ok := e.basisFor(bkey)
		if !ok {
			return nil, simerrors.New(simerrors.UnknownEntry, "listen", "basis %q does not exist", bkey)
		}
		b.AddListener(l)
		return nil, nil
	})
	return err
}

// Listener is an external subscriber to kernel events, re-exported so
// callers of Listen don't need to import simkernel directly.
type Listener = interface {
	OnVecSetAdded(bkey, vkey string)
	OnVecSetDeleted(bkey, vkey string)
	OnRecAdded(bkey, vkeyFrom, vkeyTo string)
	OnRecDeleted(bkey, vkeyFrom, vkeyTo string)
}
