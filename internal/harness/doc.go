// Package harness runs conformance scenarios for the query compiler.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	policy:                      # inline policy, or
//	  queries: [SELECT]
//	  items: ["*"]
//	  tables: [images]
//	  connections: [WHERE]
//	  columns: { creature: string, userID: integer }
//	policy_file: ../policies/images.yaml   # relative to the scenario file
//	fixture:                     # optional SQL run against an in-memory database
//	  - CREATE TABLE images (creature TEXT, userID INTEGER)
//	cases:
//	  - name: nested_logic
//	    request: { query: SELECT, items: ["*"], table: images }
//	    expect:
//	      ok: true
//	      sql: "SELECT * FROM images"
//	      params: []
//	      rows: 3                # requires a fixture
//	  - name: drop
//	    request_json: '{"query": "DROP", "items": ["*"], "table": "images"}'
//	    expect:
//	      ok: false
//	      code: DISALLOWED_QUERY
//	      reason_contains: DROP
//
// # Invariants
//
// Every accepted case is also checked for:
//   - placeholder count equal to parameter count
//   - no quote characters in the SQL text
//   - no bound parameter appearing as a token of the SQL text
//
// # Deterministic Testing
//
// Each scenario runs in a fresh in-memory SQLite database. Every case is
// written to the audit log with sequential ids (testutil.SequentialIDs),
// so repeated runs produce identical results for golden comparison.
package harness
