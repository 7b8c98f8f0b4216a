// Package service implements business logic for the Inventorium server.
//
// This package provides the service layer that coordinates between the HTTP
// handlers and the inventory store, implementing locking, persistence, and
// event publishing.
//
// # Services
//
// InventoryService serializes access to the inventory store behind a
// read-write mutex, loads YAML sources, reconciles after every batch of
// mutations, persists snapshots through the repository, and handles
// import/export via codec adapters.
//
// # Event System
//
// The service publishes events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE). Event types include host
// and group changes, variable writes, and inventory reloads.
//
// # Design Principles
//
// - Services own locking and coordination; the store owns graph semantics
// - Repository pattern for data access
// - Event-driven for real-time updates
// - Context-aware for cancellation and timeouts
package service
