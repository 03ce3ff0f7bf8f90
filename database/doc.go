// Package database owns the Bun connection lifecycle and the persistence
// session shared by repositories and units of work.
//
// A Session holds at most one open transaction and a queue of pending writes;
// SaveChanges flushes the queue. Around it the package provides connection
// management for MySQL, PostgreSQL (lib/pq or pgx) and SQLite, viper-backed
// configuration, query hooks (bundebug, colored output, slow queries,
// prometheus metrics), driver error classification, versioned migrations,
// YAML-configured foreign keys and SQL file seeding.
package database
