package simdiag

import "testing"

func TestSampleReturnsPlausibleValues(t *testing.T) {
	snap := Sample()
	if snap.Goroutines <= 0 {
		t.Fatalf("Sample: expected at least one goroutine, got %d", snap.Goroutines)
	}
	if snap.HeapAllocMB < 0 || snap.HeapInUseMB < 0 {
		t.Fatalf("Sample: expected non-negative heap figures, got alloc=%v inuse=%v", snap.HeapAllocMB, snap.HeapInUseMB)
	}
}
