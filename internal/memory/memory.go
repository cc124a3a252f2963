package memory

import (
	"errors"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
)

// ErrMemoryPressure is returned by Admit while heap usage is above the
// critical water mark.
var ErrMemoryPressure = errors.New("server is under memory pressure")

// Config holds memory monitoring configuration
type Config struct {
	// MemoryLimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	MemoryLimitBytes int64

	// HighWaterMark is the usage ratio below which new jobs are admitted again (0.0-1.0)
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which new jobs are refused (0.0-1.0)
	CriticalWaterMark float64

	// CheckInterval is how often to sample memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and refuses new work while it is critical.
// Running encoders are never affected; they live in their own processes.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64

	stopOnce sync.Once
	stopChan chan struct{}

	mu       sync.RWMutex
	current  uint64
	pressure bool
}

// NewMonitor creates a monitor. Without an explicit limit it uses GOMEMLIMIT;
// with neither, Admit always succeeds.
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %s", FormatBytes(limit))
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, admission control disabled")
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		stopChan:  make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	m.check()
	go m.monitorLoop()
}

// Stop ends sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

// check samples the heap and updates the pressure flag with hysteresis:
// pressure starts at the critical mark and ends below the high mark.
func (m *Monitor) check() {
	alloc := m.readAlloc()

	m.mu.Lock()
	m.current = alloc
	usage := float64(alloc) / float64(m.limit)
	changed := false
	switch {
	case !m.pressure && usage >= m.config.CriticalWaterMark:
		m.pressure = true
		changed = true
	case m.pressure && usage < m.config.HighWaterMark:
		m.pressure = false
		changed = true
	}
	pressure := m.pressure
	m.mu.Unlock()

	metrics.MemoryUsageRatio.Set(usage)
	if !changed {
		return
	}
	if pressure {
		metrics.MemoryPressure.Set(1)
		logging.Warn("Memory critical (%.1f%% of limit), refusing new jobs", usage*100)
		go runtime.GC()
	} else {
		metrics.MemoryPressure.Set(0)
		logging.Info("Memory recovered (%.1f%% of limit), accepting new jobs", usage*100)
	}
}

// Admit returns ErrMemoryPressure while new work should be refused.
// A nil monitor admits everything.
func (m *Monitor) Admit() error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pressure {
		return ErrMemoryPressure
	}
	return nil
}

// Usage returns the last sampled heap usage as a ratio of the limit,
// or 0 if no limit is configured.
func (m *Monitor) Usage() float64 {
	if m == nil || m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
