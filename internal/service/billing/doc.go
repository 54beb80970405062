// Package billing holds the cost resolver and the billing gate. The resolver
// turns tool cost configuration into per-task credit prices; the gate is the
// single chokepoint the executor crosses before any billable side effect.
package billing
