/*
Package workers sizes and enforces concurrency limits for the CPU-heavy
request steps: waveform synthesis and frame previews.

# Sizing

Count uses runtime.GOMAXPROCS(0), which Go sets from the container CPU
limit, rather than runtime.NumCPU(), which reports the host:

	// Kubernetes pod limited to 2 CPUs on a 64-core node
	workers.ForCPU("SYNTH_WORKERS", 4)     // 2
	workers.ForMixed("PREVIEW_WORKERS", 8) // 3

A positive integer in the named environment variable overrides the
computed value; the limit still applies.

# Pools

A Pool is a counting semaphore. Handlers acquire a slot with the request
context, so a client that gives up while queued releases nothing and
costs nothing:

	if err := pool.Acquire(ctx); err != nil {
	    return err
	}
	defer pool.Release()

Slots held are exported as glitzhit_worker_slots_in_use{pool}.
*/
package workers
