// Package batch provides helpers for MCP tools that act on several message
// IDs at once: parsing an ID-or-list argument, running the per-ID work with
// bounded concurrency and reporting partial failures in one JSON document.
package batch
