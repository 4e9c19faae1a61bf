// Package api implements the HTTP handlers for the vidtube backend: account
// signup and session lifecycle, the video catalog, comments and likes, watch
// history, and upload signing.
package api
