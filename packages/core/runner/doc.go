// Package runner executes contract scenarios against the upstream API.
//
// It provides functionality for:
//   - The default scenario catalog (top stories, items, edge cases, comments)
//   - Filtering scenarios by name pattern and tags
//   - Parallel execution with configurable concurrency
//   - Bail on first failure
//   - Latency collection for every upstream request
//
// Every violation of every scenario is kept; a failing check never hides the
// ones after it.
package runner
