// Package store runs compiled statements against SQLite or Postgres and
// keeps an append-only audit log of compilation outcomes.
//
// # Audit log
//
// Every record carries the request fingerprint, the policy fingerprint, the
// compiled SQL text with its parameter count, or the rejection code and
// reason. Bound parameter values are never stored.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Statements are compiled with `?` placeholders and rebound to the
// driver's native style before execution.
package store
