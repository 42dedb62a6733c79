// cron.go implements the periodic snapshot scheduler (SPEC_FULL.md
// §4.5): a timer that fires every saveinterval, starting after an
// initial delay of saveinterval, and enqueues a catalog-wide Save. A
// still-running save is never overlapped, mirroring
// internal/storage/vector_storage.go's flushRunning CAS flag.
package engine

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/Podcopic-Labs/simbase/internal/simdiag"
)

// StartCron begins the periodic save timer. Calling it twice without
// an intervening StopCron is a no-op.
func (e *Engine) StartCron() {
	if e.cronStop != nil {
		return
	}
	e.cronStop = make(chan struct{})
	e.cronDone = make(chan struct{})
	interval := time.Duration(e.cfg.SaveInterval) * time.Millisecond

	go func() {
		defer close(e.cronDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.fireSnapshot()
			case <-e.cronStop:
				return
			}
		}
	}()
}

func (e *Engine) fireSnapshot() {
	if !atomic.CompareAndSwapInt32(&e.saveRunning, 0, 1) {
		log.Printf("cron: previous save cycle still in flight, skipping this tick")
		return
	}
	defer atomic.StoreInt32(&e.saveRunning, 0)

	if err := e.Save(); err != nil {
		log.Printf("cron: save failed: %v", err)
	}
	snap := simdiag.Sample()
	log.Printf("cron: snapshot complete goroutines=%d heap_alloc_mb=%.2f num_gc=%d",
		snap.Goroutines, snap.HeapAllocMB, snap.NumGC)
}

// StopCron stops the periodic save timer and waits for any in-flight
// tick to return. Safe to call when Cron was never started.
func (e *Engine) StopCron() {
	if e.cronStop == nil {
		return
	}
	close(e.cronStop)
	<-e.cronDone
	e.cronStop = nil
	e.cronDone = nil
}
