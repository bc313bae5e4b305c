// Package sqlite provides the SQLite-backed implementation of the
// cache store port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. A single
// database connection backs all five tables:
//
//   - documents: cached note metadata keyed by opaque id
//   - embeddings: packed little-endian float32 vectors per note
//   - pair_scores: canonical (id_1 < id_2) similarity and relevance
//   - link_ledger: links previously inserted by reconciliation
//   - failure_log: unresolved batch failures awaiting retry
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory and applied at open.
//
// # Data Location
//
// By default, the database is stored at ~/.relink/data/cache.db
//
// # Thread Safety
//
// All operations are thread-safe. SQLite runs in WAL mode; the derived
// in-memory score index is guarded by a read-write lock.
package sqlite
