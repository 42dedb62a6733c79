// listener_bridge.go implements simkernel.Listener: the callback
// contract the kernel invokes whenever it materializes or removes a
// VectorSet or Recommendation, both for dispatcher-issued vmk/rmk/del
// and for bload's internal vmk/rmk calls during dump restore. Vmk and
// Rmk rely on these callbacks for their catalog entries. The bridge
// updates the catalog exactly
// as the corresponding dispatcher operation would, without
// re-issuing kernel calls (SPEC_FULL.md §4.4).
package engine

import "github.com/Podcopic-Labs/simbase/internal/catalog"

func (e *Engine) OnVecSetAdded(bkey, vkey string) {
	e.cat.AddVectorSet(bkey, vkey)
}

func (e *Engine) OnVecSetDeleted(bkey, vkey string) {
	e.cat.RemoveKey(vkey)
}

func (e *Engine) OnRecAdded(bkey, vkeyFrom, vkeyTo string) {
	e.cat.AddRecommendation(bkey, catalog.Rkey(vkeyFrom, vkeyTo), vkeyFrom, vkeyTo)
}

func (e *Engine) OnRecDeleted(bkey, vkeyFrom, vkeyTo string) {
	e.cat.RemoveKey(catalog.Rkey(vkeyFrom, vkeyTo))
}
