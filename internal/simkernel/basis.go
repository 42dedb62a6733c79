package simkernel

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type vectorSet struct {
	name   string
	dense  *denseStore
	sparse *sparseOverlay
}

// basisImpl is the concrete simkernel.Basis used by the engine. One
// instance exists per live Basis key. The dispatcher runs vector and
// recommendation writes, Vdel/Rdel, Brev and Bsave on that basis's
// writer goroutine; Vmk, Rmk and Bload on the management executor; and
// Bget/Vget/Vids/Iget/Rget/Rrec on a reader-pool worker. The kernel
// itself does not re-derive that discipline; mu guards its maps.
type basisImpl struct {
	mu         sync.RWMutex
	name       string
	coordNames []string
	sets       map[string]*vectorSet
	recs       map[string]*recommendation
	listeners  []Listener
	wal        *vectorWAL
}

// NewBasis creates a kernel-backed Basis with the given coordinate
// names, matching the Java source's `new Basis(bkey, base)` +
// `new SimBasis(...)` pairing in SimEngineImpl.bmk.
func NewBasis(name string, coordNames []string, walPath string) (Basis, error) {
	w, err := openVectorWAL(walPath)
	if err != nil {
		return nil, fmt.Errorf("open kernel WAL: %w", err)
	}
	return &basisImpl{
		name:       name,
		coordNames: append([]string{}, coordNames...),
		sets:       make(map[string]*vectorSet),
		recs:       make(map[string]*recommendation),
		wal:        w,
	}, nil
}

func (b *basisImpl) dim() int { return len(b.coordNames) }

func rkey(src, tgt string) string { return src + "_" + tgt }

func splitRkey(r string) (src, tgt string, ok bool) {
	i := strings.IndexByte(r, '_')
	if i < 0 {
		return "", "", false
	}
	return r[:i], r[i+1:], true
}

func (b *basisImpl) Bget() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.coordNames))
	copy(out, b.coordNames)
	return out
}

func (b *basisImpl) Brev(base []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(base) != len(b.coordNames) {
		return fmt.Errorf("brev: coordinate count mismatch: have %d, want %d", len(b.coordNames), len(base))
	}
	b.coordNames = append([]string{}, base...)
	return nil
}

func (b *basisImpl) Vmk(vkey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sets[vkey]; exists {
		return fmt.Errorf("vector set %q already exists", vkey)
	}
	ds, err := newDenseStore(b.dim())
	if err != nil {
		return err
	}
	b.sets[vkey] = &vectorSet{name: vkey, dense: ds, sparse: newSparseOverlay()}
	b.notifyVecSetAdded(vkey)
	return nil
}

func (b *basisImpl) Vdel(vkey string) error {
	b.mu.Lock()
	vs, ok := b.sets[vkey]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("vector set %q does not exist", vkey)
	}
	delete(b.sets, vkey)
	// Snapshot and drop every recommendation touching vkey, mirroring
	// the engine-level cascade but scoped to what the kernel itself
	// owns (its recs map), per the Open Question in spec.md §9 about
	// snapshotting before mutating during cascade.
	var toDrop []string
	for rk, r := range b.recs {
		if r.src == vkey || r.tgt == vkey {
			toDrop = append(toDrop, rk)
		}
	}
	for _, rk := range toDrop {
		delete(b.recs, rk)
	}
	b.mu.Unlock()

	vs.dense.close()
	b.notifyVecSetDeleted(vkey)
	for _, rk := range toDrop {
		src, tgt, _ := splitRkey(rk)
		b.notifyRecDeleted(src, tgt)
	}
	return nil
}

func (b *basisImpl) Vids(vkey string) ([]int, error) {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return nil, err
	}
	return vs.dense.ids(), nil
}

func (b *basisImpl) vectorSet(vkey string) (*vectorSet, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	vs, ok := b.sets[vkey]
	if !ok {
		return nil, fmt.Errorf("vector set %q does not exist", vkey)
	}
	return vs, nil
}

func (b *basisImpl) Vget(vkey string, id int) ([]float64, error) {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return nil, err
	}
	vec, ok := vs.dense.get(id)
	if !ok {
		return nil, fmt.Errorf("vector %d not found in %q", id, vkey)
	}
	return vec, nil
}

func (b *basisImpl) mutateDense(vkey string, id int, vec []float64, op walOp, apply func(*denseStore) error) error {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return err
	}
	off, err := b.wal.offset()
	if err != nil {
		return err
	}
	if err := b.wal.append(walRecord{op: op, vkey: vkey, id: id, vec: vec}); err != nil {
		return err
	}
	if err := apply(vs.dense); err != nil {
		return err
	}
	return b.wal.markCommittedAt(off)
}

func (b *basisImpl) Vadd(vkey string, id int, vec []float64) error {
	return b.mutateDense(vkey, id, vec, walSet, func(d *denseStore) error { return d.set(id, vec) })
}

func (b *basisImpl) Vset(vkey string, id int, vec []float64) error {
	return b.mutateDense(vkey, id, vec, walSet, func(d *denseStore) error { return d.set(id, vec) })
}

func (b *basisImpl) Vacc(vkey string, id int, vec []float64) error {
	return b.mutateDense(vkey, id, vec, walAcc, func(d *denseStore) error { return d.acc(id, vec) })
}

func (b *basisImpl) Vrem(vkey string, id int) error {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return err
	}
	off, err := b.wal.offset()
	if err != nil {
		return err
	}
	if err := b.wal.append(walRecord{op: walDel, vkey: vkey, id: id}); err != nil {
		return err
	}
	if err := vs.dense.remove(id); err != nil {
		return err
	}
	vs.sparse.remove(id)
	return b.wal.markCommittedAt(off)
}

func (b *basisImpl) Iget(vkey string, id int) ([]int, error) {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return nil, err
	}
	if idxs, ok := vs.sparse.get(id); ok {
		return idxs, nil
	}
	vec, ok := vs.dense.get(id)
	if !ok {
		return nil, fmt.Errorf("vector %d not found in %q", id, vkey)
	}
	return denseToIndices(vec), nil
}

func (b *basisImpl) mutateSparse(vkey string, id int, pairs []int, op walOp, apply func(*denseStore, []float64) error) error {
	vs, err := b.vectorSet(vkey)
	if err != nil {
		return err
	}
	vec := pairsToDense(b.dim(), pairs)
	off, err := b.wal.offset()
	if err != nil {
		return err
	}
	if err := b.wal.append(walRecord{op: op, vkey: vkey, id: id, vec: vec}); err != nil {
		return err
	}
	if err := apply(vs.dense, vec); err != nil {
		return err
	}
	vs.sparse.record(id, pairs)
	return b.wal.markCommittedAt(off)
}

func (b *basisImpl) Iadd(vkey string, id int, pairs []int) error {
	return b.mutateSparse(vkey, id, pairs, walSet, func(d *denseStore, vec []float64) error { return d.set(id, vec) })
}

func (b *basisImpl) Iset(vkey string, id int, pairs []int) error {
	return b.mutateSparse(vkey, id, pairs, walSet, func(d *denseStore, vec []float64) error { return d.set(id, vec) })
}

func (b *basisImpl) Iacc(vkey string, id int, pairs []int) error {
	return b.mutateSparse(vkey, id, pairs, walAcc, func(d *denseStore, vec []float64) error { return d.acc(id, vec) })
}

func (b *basisImpl) Rmk(src, tgt, funcscore string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sets[src]; !ok {
		return fmt.Errorf("vector set %q does not exist", src)
	}
	if _, ok := b.sets[tgt]; !ok {
		return fmt.Errorf("vector set %q does not exist", tgt)
	}
	rk := rkey(src, tgt)
	if _, exists := b.recs[rk]; exists {
		return fmt.Errorf("recommendation %q already exists", rk)
	}
	b.recs[rk] = newRecommendation(src, tgt, funcscore)
	b.notifyRecAdded(src, tgt)
	return nil
}

func (b *basisImpl) Rdel(rk string) error {
	b.mu.Lock()
	r, ok := b.recs[rk]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("recommendation %q does not exist", rk)
	}
	delete(b.recs, rk)
	b.mu.Unlock()
	b.notifyRecDeleted(r.src, r.tgt)
	return nil
}

func (b *basisImpl) Rget(src string, id int, tgt string) ([]string, error) {
	scored, err := b.recommend(src, id, tgt)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = fmt.Sprintf("%d:%f", s.ID, s.Score)
	}
	return out, nil
}

func (b *basisImpl) Rrec(src string, id int, tgt string) ([]int, error) {
	scored, err := b.recommend(src, id, tgt)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scored))
	for i, s := range scored {
		out[i] = s.ID
	}
	return out, nil
}

func (b *basisImpl) recommend(src string, id int, tgt string) ([]Scored, error) {
	b.mu.RLock()
	r, ok := b.recs[rkey(src, tgt)]
	srcSet, srcOK := b.sets[src]
	tgtSet, tgtOK := b.sets[tgt]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("recommendation %q does not exist", rkey(src, tgt))
	}
	if !srcOK || !tgtOK {
		return nil, fmt.Errorf("recommendation %q has a missing endpoint", rkey(src, tgt))
	}
	srcVec, ok := srcSet.dense.get(id)
	if !ok {
		return nil, fmt.Errorf("vector %d not found in %q", id, src)
	}
	return r.topK(srcVec, tgtSet.dense)
}

func (b *basisImpl) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *basisImpl) notifyVecSetAdded(vkey string) {
	for _, l := range b.listeners {
		l.OnVecSetAdded(b.name, vkey)
	}
}

func (b *basisImpl) notifyVecSetDeleted(vkey string) {
	for _, l := range b.listeners {
		l.OnVecSetDeleted(b.name, vkey)
	}
}

func (b *basisImpl) notifyRecAdded(src, tgt string) {
	for _, l := range b.listeners {
		l.OnRecAdded(b.name, src, tgt)
	}
}

func (b *basisImpl) notifyRecDeleted(src, tgt string) {
	for _, l := range b.listeners {
		l.OnRecDeleted(b.name, src, tgt)
	}
}

func (b *basisImpl) Bsave(path string) error {
	b.mu.RLock()
	env := dumpEnvelope{CoordNames: append([]string{}, b.coordNames...)}
	setNames := make([]string, 0, len(b.sets))
	for name := range b.sets {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)
	for _, name := range setNames {
		vs := b.sets[name]
		ids := vs.dense.ids()
		dv := dumpVectorSet{Name: name, IDs: ids}
		for _, id := range ids {
			vec, _ := vs.dense.get(id)
			dv.Vectors = append(dv.Vectors, encodeVec(vec))
			idxs, _ := vs.sparse.get(id)
			dv.Sparse = append(dv.Sparse, idxs)
		}
		env.VectorSets = append(env.VectorSets, dv)
	}
	recKeys := make([]string, 0, len(b.recs))
	for rk := range b.recs {
		recKeys = append(recKeys, rk)
	}
	sort.Strings(recKeys)
	for _, rk := range recKeys {
		r := b.recs[rk]
		env.Recommendations = append(env.Recommendations, dumpRecommended{Src: r.src, Tgt: r.tgt, FuncScore: r.funcscore})
	}
	b.mu.RUnlock()

	if err := writeDump(path, env); err != nil {
		return fmt.Errorf("bsave %s: %w", b.name, err)
	}
	return b.wal.clear()
}

func (b *basisImpl) Bload(path string) error {
	env, err := readDump(path)
	if err != nil {
		return fmt.Errorf("bload %s: %w", b.name, err)
	}

	b.mu.Lock()
	b.coordNames = env.CoordNames
	b.sets = make(map[string]*vectorSet)
	b.recs = make(map[string]*recommendation)
	b.mu.Unlock()

	for _, dv := range env.VectorSets {
		if err := b.Vmk(dv.Name); err != nil {
			return err
		}
		vs, _ := b.vectorSet(dv.Name)
		for i, id := range dv.IDs {
			vec := decodeVec(dv.Vectors[i])
			if err := vs.dense.set(id, vec); err != nil {
				return err
			}
			if i < len(dv.Sparse) && len(dv.Sparse[i]) > 0 {
				vs.sparse.indices[id] = dv.Sparse[i]
			}
		}
	}
	for _, dr := range env.Recommendations {
		if err := b.Rmk(dr.Src, dr.Tgt, dr.FuncScore); err != nil {
			return err
		}
	}

	records, err := b.wal.replay()
	if err != nil {
		return fmt.Errorf("replay kernel WAL for %s: %w", b.name, err)
	}
	for _, rec := range records {
		vs, err := b.vectorSet(rec.vkey)
		if err != nil {
			continue
		}
		switch rec.op {
		case walSet:
			_ = vs.dense.set(rec.id, rec.vec)
		case walAcc:
			_ = vs.dense.acc(rec.id, rec.vec)
		case walDel:
			_ = vs.dense.remove(rec.id)
		}
	}
	return b.wal.clear()
}

func (b *basisImpl) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, vs := range b.sets {
		vs.dense.close()
	}
	return b.wal.close()
}
