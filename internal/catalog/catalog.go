// Package catalog implements the Key Catalog: the single in-memory
// index mapping every live key to its kind and derived relationships,
// per SPEC_FULL.md §4.1. The Dispatcher is the catalog's only mutator;
// everything else is a read-only view.
package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/btree"
)

// Kind classifies a catalog entry, collapsing the original source's
// parallel kindOf/basisOf maps into one tagged field per entry
// (SPEC_FULL.md §3's supplemental note).
type Kind int

const (
	Basis Kind = iota
	VectorSet
	Recommendation
)

func (k Kind) String() string {
	switch k {
	case Basis:
		return "Basis"
	case VectorSet:
		return "VectorSet"
	case Recommendation:
		return "Recommendation"
	default:
		return "Unknown"
	}
}

// vectorSetExtras holds a VectorSet entry's recommendation edges.
type vectorSetExtras struct {
	targets map[string]struct{} // outgoing: this vkey is the src
	sources map[string]struct{} // incoming: this vkey is the tgt
}

// Entry is the catalog's single per-key record, replacing the source's
// parallel kindOf/basisOf maps (SPEC_FULL.md §3).
type Entry struct {
	Kind   Kind
	Basis  string
	extras *vectorSetExtras
}

// vkeyItem orders VectorSet names inside one basis's btree, the same
// degree-2 btree the teacher's BTreeIndex uses.
type vkeyItem string

func (v vkeyItem) Less(other btree.Item) bool { return v < other.(vkeyItem) }

type basisIndex struct {
	vectors *btree.BTree
}

// Catalog is the concurrency-guarded key namespace. A single
// sync.RWMutex guards every map: the semantic model in SPEC_FULL.md §5
// only promises "any single structural mutation is atomic with respect
// to any single point lookup", which a coarse lock satisfies without
// needing per-map synchronization.
type Catalog struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	vectorsOf map[string]*basisIndex // Basis bkey -> ordered VectorSets
	counters  map[string]int         // VectorSet vkey -> write count
}

func New() *Catalog {
	return &Catalog{
		entries:   make(map[string]*Entry),
		vectorsOf: make(map[string]*basisIndex),
		counters:  make(map[string]int),
	}
}

// Kind reports the kind of a key and whether it exists at all.
func (c *Catalog) Kind(key string) (Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return e.Kind, true
}

// BasisOf reports which basis a key belongs to (a Basis entry belongs
// to itself, so its own key is returned).
func (c *Catalog) BasisOf(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return e.Basis, true
}

// Exists reports whether key is present under any kind.
func (c *Catalog) Exists(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// AddBasis registers a new Basis entry. Caller (the management
// executor) must already have validated the key via the validator
// package.
func (c *Catalog) AddBasis(bkey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[bkey] = &Entry{Kind: Basis, Basis: bkey}
	c.vectorsOf[bkey] = &basisIndex{vectors: btree.New(2)}
}

// AddVectorSet registers vkey under bkey, inserting it into bkey's
// ordered vector-set index.
func (c *Catalog) AddVectorSet(bkey, vkey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[vkey] = &Entry{Kind: VectorSet, Basis: bkey, extras: &vectorSetExtras{
		targets: make(map[string]struct{}),
		sources: make(map[string]struct{}),
	}}
	if idx, ok := c.vectorsOf[bkey]; ok {
		idx.vectors.ReplaceOrInsert(vkeyItem(vkey))
	}
	c.counters[vkey] = 0
}

// AddRecommendation registers rkey(src, tgt) and links the src→tgt
// edge into both VectorSets' extras.
func (c *Catalog) AddRecommendation(bkey, rkey, src, tgt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rkey] = &Entry{Kind: Recommendation, Basis: bkey}
	if e, ok := c.entries[src]; ok && e.extras != nil {
		e.extras.targets[tgt] = struct{}{}
	}
	if e, ok := c.entries[tgt]; ok && e.extras != nil {
		e.extras.sources[src] = struct{}{}
	}
}

// RemoveKey deletes key and, for a VectorSet, removes it from its
// basis's ordered index. It does not cascade — callers (the lifecycle
// manager) are responsible for snapshotting and removing dependents
// first.
func (c *Catalog) RemoveKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	switch e.Kind {
	case Basis:
		delete(c.vectorsOf, key)
	case VectorSet:
		if idx, ok := c.vectorsOf[e.Basis]; ok {
			idx.vectors.Delete(vkeyItem(key))
		}
		delete(c.counters, key)
	case Recommendation:
		if src, tgt, ok := splitRkey(key); ok {
			if se, ok := c.entries[src]; ok && se.extras != nil {
				delete(se.extras.targets, tgt)
			}
			if te, ok := c.entries[tgt]; ok && te.extras != nil {
				delete(te.extras.sources, src)
			}
		}
	}
	delete(c.entries, key)
}

// VectorSetsOf returns the sorted VectorSet keys registered under
// bkey, via the btree's Ascend rather than a sort call on every read.
func (c *Catalog) VectorSetsOf(bkey string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.vectorsOf[bkey]
	if !ok {
		return nil
	}
	out := make([]string, 0, idx.vectors.Len())
	idx.vectors.Ascend(func(it btree.Item) bool {
		out = append(out, string(it.(vkeyItem)))
		return true
	})
	return out
}

// BasisKeys returns every registered Basis key, sorted.
func (c *Catalog) BasisKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.vectorsOf))
	for bkey := range c.vectorsOf {
		out = append(out, bkey)
	}
	sort.Strings(out)
	return out
}

// TargetsOf snapshots the outgoing recommendation targets of vkey, the
// snapshot-before-iterate discipline the cascade requires
// (SPEC_FULL.md §9).
func (c *Catalog) TargetsOf(vkey string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[vkey]
	if !ok || e.extras == nil {
		return nil
	}
	out := make([]string, 0, len(e.extras.targets))
	for t := range e.extras.targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SourcesOf snapshots the incoming recommendation sources of vkey.
func (c *Catalog) SourcesOf(vkey string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[vkey]
	if !ok || e.extras == nil {
		return nil
	}
	out := make([]string, 0, len(e.extras.sources))
	for s := range e.extras.sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// BumpCounter increments vkey's write counter and reports the new
// value, used by the dispatcher to log every `bycount` writes.
func (c *Catalog) BumpCounter(vkey string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[vkey]++
	return c.counters[vkey]
}

// Rkey builds the one recommendation-key ordering the whole engine
// uses: src first, per SPEC_FULL.md §3's fix of the source's
// inconsistent rkey(tgt, src) vs rkey(src, tgt) call sites.
func Rkey(src, tgt string) string { return src + "_" + tgt }

func splitRkey(r string) (src, tgt string, ok bool) {
	i := strings.IndexByte(r, '_')
	if i < 0 {
		return "", "", false
	}
	return r[:i], r[i+1:], true
}
