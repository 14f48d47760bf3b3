// Package matching decides whether a live HTTP request corresponds to a
// recorded archive entry.
//
// Matching is a pure predicate evaluated in a fixed order, stopping at the
// first failing step:
//
//   - Method: exact string equality
//   - Origin: scheme, host and effective port of the URLs
//   - Path: escaped path of the URLs; fragments and, apart from allow-listed
//     keys, query strings are ignored
//   - Content-Type: a recorded content-type header must equal the live one
//   - Headers: allow-listed headers recorded on the entry must equal the live values
//   - Query: allow-listed query parameters must be equal (absent on both sides is equal)
//   - Body: when a live body is supplied it must equal the recorded one, compared
//     structurally if both sides are JSON
//
// There is no scoring: Find returns the first entry in archive order that
// passes every step. NearestMiss reports the candidate that got furthest,
// which makes no-match failures much easier to diagnose.
package matching
