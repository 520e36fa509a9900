// Package ir provides the JSON value model shared by every jsonsql package.
//
// Requests arrive as JSON (or YAML decoded into Go maps) and are converted
// into the sealed IRValue family before the decoder sees them. Keeping the
// integer/float distinction explicit here is what lets the policy match a
// literal against a column's declared kind without guessing.
//
// Key design constraints:
//   - Integers decode to IRInt, numbers with a fraction or exponent to IRFloat
//   - Object key order never carries meaning (use SortedKeys for iteration)
//   - This package imports nothing internal
package ir
