// Package logging provides a simple leveled logging interface for the
// glitzhit conversion service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information, including every encoder progress line
//   - INFO: Job lifecycle messages (created, started, finished, swept)
//   - WARN: Recoverable problems such as failed artifact removal
//   - ERROR: Encoder failures and internal invariant violations
//   - FATAL: Startup errors that terminate the process
//
// The log level is configured via the LOG_LEVEL environment variable, or forced
// to debug with DEBUG=true. ForJob returns a logger that tags each line with
// the job identifier so interleaved jobs remain readable.
package logging
