// Package state persists what docrestyle knows between runs: the content hash
// of every page it last wrote or verified, and a summary of each run.
//
// The SQLite implementation uses the pure-Go modernc.org/sqlite driver, so
// ":memory:" works for tests and single-shot runs without touching disk.
package state
