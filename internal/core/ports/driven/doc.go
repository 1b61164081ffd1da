// Package driven lists what the core needs from the outside world:
// storage, the network, models and configuration.
//
// Every service needs ChunkStore, CacheStore, KeyValueStore, Fetcher,
// ManifestReader, PageExtractor, TextSplitter, EmbeddingService and
// ConfigStore.
//
// The rest may be nil:
//
//   - AnswerGenerator: answers fall back to a fixed message
//   - BatchScheduler: crawl batches run only when requested
//   - Metrics: nothing is recorded
//   - PromptStore: built-in prompts are used
//
// This package imports domain and nothing else from the module.
package driven
