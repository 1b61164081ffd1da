// Package services implements the driving port interfaces.
//
// The indexer owns the crawl queue and the crawl lease, the retriever ranks
// stored chunks against a question, the answer cache short-circuits repeated
// questions and the answerer composes all three. The scheduler runs crawl
// batches and periodic reindexing in the background.
//
// Services depend only on domain and the driven ports; every adapter is
// injected by the caller.
package services
