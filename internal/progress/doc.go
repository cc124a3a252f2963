// Package progress carries encoder progress from the job worker to the one
// client watching it.
//
// An Emitter is a bounded single-producer, single-consumer channel. The
// worker blocks when the buffer is full and never drops the terminal event
// while a subscriber is attached. When the subscriber goes away it calls
// Detach, after which the worker keeps running and further percentage
// events are discarded.
//
// FrameParser extracts the running frame counter from encoder diagnostic
// lines and ScanLines splits those lines on either CR or LF.
package progress
