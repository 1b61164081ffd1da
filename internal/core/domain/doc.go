// Package domain holds the types every layer of sercha-site shares: pages
// and their chunks, the resumable crawl queue, cached answers, retrieval
// results, scheduled tasks and the settings that tune them. It also holds
// the pure helpers over those types, such as URL canonicalisation and
// cosine similarity.
//
// Only the standard library may be imported here.
package domain
