// Package memory configures the Go heap limit for containers and refuses new
// jobs while the heap is close to it.
//
// # Configuration
//
// Call [ConfigureFromEnv] first in main, before significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// Environment variables:
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//     over all other configuration. Accepts values like "400MiB" or "1GiB".
//
//   - MEMORY_LIMIT: Container memory limit in bytes, typically passed with the
//     Kubernetes Downward API:
//
//     env:
//     - name: MEMORY_LIMIT
//     valueFrom:
//     resourceFieldRef:
//     resource: limits.memory
//
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap, between 0.0 and
//     1.0. The default of 0.5 leaves the other half to ffmpeg, which runs in
//     the same container and buffers whole raw frames.
//
// GOMEMLIMIT is a soft limit. It only affects Go heap allocations and makes
// the collector work harder as the heap approaches it; child processes are
// not covered.
//
// # Admission Control
//
// Upload parsing, synthesis and previews allocate in the server process. A
// [Monitor] samples the heap and, once usage crosses the critical water mark,
// makes [Monitor.Admit] return [ErrMemoryPressure] until usage falls below
// the high water mark again:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if err := monitor.Admit(); err != nil {
//	    // respond 503
//	}
//
// Encoders that are already running are never stopped by the monitor.
package memory
