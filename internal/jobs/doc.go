// Package jobs holds the conversion job table.
//
// A Store owns every job record behind a single mutex and hands out Job
// snapshots. Creating a job supersedes all others, so at most one encoder
// runs at any time. Records move through
//
//	created -> running -> succeeded | failed | cancelled
//
// and the terminal states are final. The Sweeper deletes a job's input and
// output files; removal failures are logged and counted, never returned.
package jobs
