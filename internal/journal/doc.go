// Package journal provides an SQLite-backed audit log of applied canvas
// writes.
//
// Every pixel write that passed the edit gate and was applied to the canvas
// is appended as one row: who, where, what color, and when. The journal is
// write-only from the server's point of view; it is never read back to
// rebuild canvas state.
//
// # Ordering
//
// Rows are ordered by seq, an INTEGER PRIMARY KEY assigned on insert. Reads
// always ORDER BY seq so results are stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Entry ids are UUIDv7 strings by default, so they sort by creation time.
package journal
