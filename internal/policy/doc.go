// Package policy holds the whitelist that decides which queries, tables,
// select items, join connections, and columns a request may reference.
//
// A Policy is built once with New and never mutated afterwards; every
// accessor only reads. This makes a single Policy safe to share across any
// number of concurrent compilations.
//
// Configuration can come from:
//   - Go code (Config literal)
//   - YAML or JSON files (LoadFile)
//   - CUE files (LoadCUE)
//   - A live database schema (ConfigFromSchema, fed by store.Introspect)
package policy
