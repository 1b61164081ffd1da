// Package sqlite stores everything sercha-site persists in one SQLite file
// (default ~/.sercha-site/data/site.db), using the pure Go modernc driver.
//
// One Store serves four ports over a shared connection: ChunkStore (chunks,
// FTS5 index and vectors), CacheStore (answers), KeyValueStore (crawl queue
// state and lease) and SchedulerStore (tasks and run history).
//
// Schema changes are numbered files in migrations/, applied in order at
// Open and recorded in schema_migrations. The database runs in WAL mode.
package sqlite
