// Package server hosts the vidtube API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// audit, rate limiting, security headers, CORS, and auth so handlers all share
// common protections and instrumentation.
package server
