// Package domain defines the core business entities and errors shared by the
// orchestration engine and its services: tasks, tool cost configuration,
// subscriptions, messaging instances, and the credit ledger.
package domain
