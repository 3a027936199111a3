package overlay

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{MinInterval: 10 * time.Millisecond, BatchSize: 4, MaxQueueDepth: 8}
}

func TestMarkDirtyDedupes(t *testing.T) {
	e := New(testConfig(), func([]string) {}, nil)
	e.MarkDirty("X-PA")
	e.MarkDirty("x-pa")
	e.MarkDirty("X-PA")
	if e.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", e.Pending())
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueDepth = 2
	e := New(cfg, func([]string) {}, nil)

	e.MarkDirty("A-PA")
	e.MarkDirty("B-PB")
	e.MarkDirty("C-PC")

	if e.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", e.Pending())
	}
	if e.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", e.Dropped())
	}

	batch := e.take()
	if len(batch) != 2 || batch[0] != "B-PB" || batch[1] != "C-PC" {
		t.Errorf("batch = %v, want oldest dropped", batch)
	}

	// The dropped symbol can be marked dirty again.
	e.MarkDirty("A-PA")
	if e.Pending() != 1 {
		t.Errorf("Pending = %d after re-marking dropped symbol", e.Pending())
	}
}

func TestTakeHonorsBatchSize(t *testing.T) {
	e := New(testConfig(), func([]string) {}, nil)
	for _, sym := range []string{"A-PA", "B-PB", "C-PC", "D-PD", "E-PE"} {
		e.MarkDirty(sym)
	}

	first := e.take()
	if len(first) != 4 {
		t.Fatalf("batch = %v, want 4 symbols", first)
	}
	second := e.take()
	if len(second) != 1 || second[0] != "E-PE" {
		t.Errorf("second batch = %v, want the remainder", second)
	}
}

func TestRunDeliversBatches(t *testing.T) {
	var mu sync.Mutex
	var got []string
	e := New(testConfig(), func(batch []string) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	}, nil)

	e.MarkDirty("A-PA")
	e.MarkDirty("B-PB")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	go e.Run(ctx)

	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("drained %v, want both symbols", got)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending = %d after drain", e.Pending())
	}
}
