// Package querysql compiles whitelisted query requests into parameterized SQL.
//
// Compilation runs in two phases:
//
//	[request JSON] → Decode → [queryir.Request] → Compile → [Statement]
//
// Decode checks structure only: required fields, field types, one key per
// operator object, logic depth. Compile checks every identifier against the
// policy and renders SQL text with `?` placeholders, collecting literal
// values into Statement.Params in textual order.
//
// Invariants of every successful compilation:
//   - strings.Count(SQL, "?") == len(Params)
//   - no literal value appears in SQL; only policy identifiers and keywords do
//
// Failures are *CompileError values carrying an ErrorCode. The first failure
// aborts compilation and no partial SQL is returned with it.
package querysql
