// Package repository defines the data access interface for Inventorium.
//
// This package provides the repository abstraction for persisting and
// retrieving inventory snapshots. The actual implementation is in the
// sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation stores snapshots relationally using SQLite
// with WAL mode for concurrency. It handles:
//
// - Host and group records with JSON-serialized variables
// - Membership and child edges with preserved ordering
// - The processed-source list
// - Transactional full-replace saves
//
// # Schema Migration
//
// The sqlite repository creates its schema on startup; creation is
// idempotent so reopening an existing database is safe.
//
// # Testing
//
// The sqlite repository is tested with in-memory databases.
package repository
