// Package driving is what the CLI, the HTTP API and the MCP server call:
// Indexer, Retriever, Answerer, AnswerCache and Scheduler. The services
// package implements them.
package driving
