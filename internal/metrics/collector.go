package metrics

import (
	"time"

	"glitzhit/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	Stats() Stats
}

// Stats is a point-in-time view of the job table and its artifacts.
type Stats struct {
	// JobsByState counts job records keyed by state name.
	JobsByState map[string]int
	InputBytes  int64
	OutputBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

var trackedStates = []string{"created", "running", "succeeded", "failed", "cancelled"}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	for _, state := range trackedStates {
		JobsTracked.WithLabelValues(state).Set(float64(stats.JobsByState[state]))
	}
	ArtifactBytes.WithLabelValues("input").Set(float64(stats.InputBytes))
	ArtifactBytes.WithLabelValues("output").Set(float64(stats.OutputBytes))

	logging.Debug("Metrics collected: jobs=%v, input=%d bytes, output=%d bytes",
		stats.JobsByState, stats.InputBytes, stats.OutputBytes)
}
