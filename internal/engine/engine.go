// Package engine implements the Dispatcher, Listener Bridge, Cron and
// Lifecycle Manager described in SPEC_FULL.md §4.3–§4.6: the public
// operation surface that validates, routes work to the correct
// executor, and keeps the Key Catalog in sync with kernel-driven
// events.
package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/executor"
	"github.com/Podcopic-Labs/simbase/internal/simconfig"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
	"github.com/Podcopic-Labs/simbase/internal/simkernel"
	"github.com/Podcopic-Labs/simbase/internal/validator"
)

const (
	// MinReaderWorkers and MaxReaderWorkers bound the reader pool size
	// per SPEC_FULL.md §5.
	MinReaderWorkers = 53
	MaxReaderWorkers = 83
	// ReaderQueueCap is the reader pool's fixed queue capacity.
	ReaderQueueCap = 100
	// mgmtQueueCap is unbounded-in-spirit but must be a finite Go
	// channel; generous enough that Submit never blocks in practice.
	mgmtQueueCap = 1024
	writerQueueCap = 256
)

// Engine is the concrete Dispatcher. It owns the Key Catalog, the
// management executor, one writer executor per live basis, the reader
// pool, and the kernel Basis instances themselves.
type Engine struct {
	mu      sync.RWMutex
	cat     *catalog.Catalog
	mgmt    *executor.Single
	readers *executor.ReaderPool
	writers map[string]*executor.Single
	bases   map[string]simkernel.Basis
	cfg     *simconfig.Config

	saveRunning int32 // CAS flag mirroring vector_storage.go's flushRunning, guards Cron overlap
	cronStop    chan struct{}
	cronDone    chan struct{}
}

// New builds an Engine with readerWorkers reader-pool workers.
// readerWorkers must be in [MinReaderWorkers, MaxReaderWorkers].
func New(cfg *simconfig.Config, readerWorkers int) (*Engine, error) {
	if readerWorkers < MinReaderWorkers || readerWorkers > MaxReaderWorkers {
		return nil, fmt.Errorf("reader pool size %d outside [%d,%d]", readerWorkers, MinReaderWorkers, MaxReaderWorkers)
	}
	if err := os.MkdirAll(cfg.SavePath, 0755); err != nil {
		return nil, fmt.Errorf("create save path %q: %w", cfg.SavePath, err)
	}
	return &Engine{
		cat:     catalog.New(),
		mgmt:    executor.NewSingle(mgmtQueueCap),
		readers: executor.NewReaderPool(readerWorkers, ReaderQueueCap),
		writers: make(map[string]*executor.Single),
		bases:   make(map[string]simkernel.Basis),
		cfg:     cfg,
	}, nil
}

func (e *Engine) dumpPath(bkey string) string {
	return filepath.Join(e.cfg.SavePath, bkey+".dmp")
}

func (e *Engine) walPath(bkey string) string {
	return filepath.Join(e.cfg.SavePath, bkey+".wal")
}

// Close stops Cron and tears down every executor: reader pool, then
// each writer (closing its kernel Basis), then management.
func (e *Engine) Close() {
	e.StopCron()
	e.readers.Close()
	e.mu.Lock()
	for bkey, w := range e.writers {
		w.Close()
		if b, ok := e.bases[bkey]; ok {
			_ = b.Close()
		}
	}
	e.writers = make(map[string]*executor.Single)
	e.bases = make(map[string]simkernel.Basis)
	e.mu.Unlock()
	e.mgmt.Close()
}

type mgmtResult struct {
	val interface{}
	err *simerrors.Error
}

// runMgmt submits fn to the management executor and blocks the
// caller's goroutine until it completes, the "mgmt, reply" column in
// spec.md §4.3's operation table.
func (e *Engine) runMgmt(fn func() (interface{}, *simerrors.Error)) (interface{}, *simerrors.Error) {
	ch := make(chan mgmtResult, 1)
	e.mgmt.Submit(func() {
		v, err := fn()
		ch <- mgmtResult{v, err}
	})
	r := <-ch
	return r.val, r.err
}

// writerFor returns the writer executor for bkey, or nil if no such
// basis is live.
func (e *Engine) writerFor(bkey string) *executor.Single {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.writers[bkey]
}

func (e *Engine) basisFor(bkey string) (simkernel.Basis, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bases[bkey]
	return b, ok
}

// runWriter submits fn to bkey's writer executor and blocks for the
// reply. Returns UnknownEntry if bkey has no writer executor.
func (e *Engine) runWriter(op, bkey string, fn func() (interface{}, *simerrors.Error)) (interface{}, *simerrors.Error) {
	w := e.writerFor(bkey)
	if w == nil {
		return nil, simerrors.New(simerrors.UnknownEntry, op, "basis %q has no writer executor", bkey)
	}
	ch := make(chan mgmtResult, 1)
	w.Submit(func() {
		v, err := fn()
		ch <- mgmtResult{v, err}
	})
	r := <-ch
	return r.val, r.err
}

// submitWriterAsync enqueues fn on bkey's writer executor without
// waiting, for fire-and-forget writes (vadd/vset/vacc/vrem etc.).
// Returns UnknownEntry synchronously if the writer does not exist.
func (e *Engine) submitWriterAsync(op, bkey string, fn func()) *simerrors.Error {
	w := e.writerFor(bkey)
	if w == nil {
		return simerrors.New(simerrors.UnknownEntry, op, "basis %q has no writer executor", bkey)
	}
	w.Submit(fn)
	return nil
}

// runReader submits fn to the reader pool and blocks for the reply,
// replying Rejected immediately if the pool is saturated rather than
// leaving the caller dangling (SPEC_FULL.md §9's fix).
func (e *Engine) runReader(op string, fn func() (interface{}, *simerrors.Error)) (interface{}, *simerrors.Error) {
	ch := make(chan mgmtResult, 1)
	ok := e.readers.TrySubmit(func() {
		v, err := fn()
		ch <- mgmtResult{v, err}
	})
	if !ok {
		return nil, simerrors.New(simerrors.Rejected, op, "reader pool saturated")
	}
	r := <-ch
	return r.val, r.err
}

func (e *Engine) view() validator.CatalogView { return e.cat }

// bumpWriteCounter increments vkey's write counter and logs a progress
// line every cfg.ByCount writes, per spec.md §3/§154's "progress-log
// granularity for bulk vector writes".
func (e *Engine) bumpWriteCounter(op, vkey string) {
	n := e.cat.BumpCounter(vkey)
	if e.cfg.ByCount > 0 && n%e.cfg.ByCount == 0 {
		log.Printf("%s: vector set %q reached %d writes", op, vkey, n)
	}
}

func dimOf(b simkernel.Basis) int { return len(b.Bget()) }

func rkeyParts(rkey string) (src, tgt string, ok bool) {
	i := strings.IndexByte(rkey, '_')
	if i < 0 {
		return "", "", false
	}
	return rkey[:i], rkey[i+1:], true
}
