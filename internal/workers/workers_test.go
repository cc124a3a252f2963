package workers

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

const testEnv = "GLITZHIT_TEST_WORKERS"

func TestCount(t *testing.T) {
	t.Setenv(testEnv, "")
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound task (1.0x multiplier)", 1.0, 0, 1, availableCPU},
		{"Mixed task (1.5x multiplier)", 1.5, 0, 1, int(float64(availableCPU) * 1.5)},
		{"With limit lower than calculated", 2.0, 2, 1, 2},
		{"Tiny multiplier still yields one worker", 0.001, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(testEnv, tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountEnvironmentOverride(t *testing.T) {
	tests := []struct {
		name  string
		value string
		limit int
		want  int
	}{
		{"Valid override", "7", 0, 7},
		{"Override capped by limit", "7", 3, 3},
		{"Zero ignored", "0", 0, runtime.GOMAXPROCS(0)},
		{"Negative ignored", "-2", 0, runtime.GOMAXPROCS(0)},
		{"Garbage ignored", "many", 0, runtime.GOMAXPROCS(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testEnv, tt.value)
			if got := Count(testEnv, 1.0, tt.limit); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Setenv(testEnv, "")

	if got := ForCPU(testEnv, 1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if got := ForMixed(testEnv, 0); got < ForCPU(testEnv, 0) {
		t.Errorf("ForMixed = %d should not be below ForCPU", got)
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	p := NewPool("synth", 2)
	if p.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", p.Size())
	}

	ctx := context.Background()
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if !p.TryAcquire() {
		t.Fatal("second slot should be free")
	}
	if p.TryAcquire() {
		t.Fatal("pool should be full")
	}
	if p.InUse() != 2 {
		t.Errorf("InUse() = %d, want 2", p.InUse())
	}

	p.Release()
	if !p.TryAcquire() {
		t.Error("slot should be free after Release")
	}
	p.Release()
	p.Release()
	if p.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", p.InUse())
	}
}

func TestPoolAcquireHonoursContext(t *testing.T) {
	p := NewPool("preview", 1)
	if !p.TryAcquire() {
		t.Fatal("TryAcquire on empty pool failed")
	}
	defer p.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire on full pool = %v, want deadline exceeded", err)
	}
}

func TestPoolAcquireWaitsForRelease(t *testing.T) {
	p := NewPool("synth", 1)
	if !p.TryAcquire() {
		t.Fatal("TryAcquire on empty pool failed")
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- p.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the pool was full")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("Acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}
	p.Release()
}

func TestNewPoolMinimumSize(t *testing.T) {
	if got := NewPool("synth", 0).Size(); got != 1 {
		t.Errorf("NewPool(0).Size() = %d, want 1", got)
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Release on an empty pool to panic")
		}
	}()
	NewPool("synth", 1).Release()
}
