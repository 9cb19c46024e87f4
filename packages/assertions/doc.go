// Package assertions decides whether upstream payloads honor the API contract.
//
// Supported checks:
//   - Top stories list (shape, 0 < n <= 500, integer ids, positive ids, uniqueness)
//   - Single item (id, acceptable kinds, by and title present)
//   - Comment (id, kind, parent, by and text present unless deleted)
//   - Null item (unknown or malformed ids must yield the JSON literal null)
//   - Item JSON Schema per kind
//
// Every validator is pure and returns a Verdict listing all violations it
// found, in check order. Contract violations are never returned as errors;
// only unparseable payloads surface as *item.DecodeError.
package assertions
