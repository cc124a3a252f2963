// Package database keeps the conversion history in SQLite.
//
// Every job that reaches a terminal state is appended to the conversions
// table together with its parameters, exit code and encode duration. The
// live job table is not stored here; it stays in memory and is lost on
// restart.
//
// The database uses WAL mode and creates its schema on open.
package database
