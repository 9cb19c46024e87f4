// Package http provides the HTTP transport used to reach the upstream API.
//
// The client reads whole bodies, records request durations and can be
// throttled with a client-side rate limit. It never retries.
package http
