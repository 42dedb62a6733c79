// Package simdiag provides the periodic health sample Cron logs
// alongside each snapshot cycle, adapted from
// cmd/server/system_monitor.go's GetMemoryInfo/GetSystemInfo. The
// /proc/stat CPU-percentage machinery is dropped: nothing in
// SPEC_FULL.md needs a CPU percentage, only a goroutine count and heap
// figures alongside each save.
package simdiag

import "runtime"

// Snapshot is one point-in-time health sample.
type Snapshot struct {
	Goroutines   int
	HeapAllocMB  float64
	HeapInUseMB  float64
	NumGC        uint32
}

// Sample reads the current runtime stats.
func Sample() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Snapshot{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
		HeapInUseMB: float64(mem.HeapInuse) / 1024 / 1024,
		NumGC:       mem.NumGC,
	}
}
