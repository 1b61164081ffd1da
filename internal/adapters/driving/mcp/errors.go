// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-site.
// It lets AI assistants ask grounded questions about the site and trigger reindexing.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")

// errNotConfigured is returned by tools whose port is absent.
var errNotConfigured = errors.New("mcp: service not configured")
