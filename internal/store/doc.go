// Package store defines the persistence interfaces consumed by the
// orchestration core: credit balances and their ledger, subscriptions,
// tool cost configuration, messaging instances, and task audit records.
//
// Implementations live in internal/platform/postgres (production) and in
// this package's memory.go (tests and database-less local development).
package store
