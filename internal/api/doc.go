// Package api implements the HTTP handlers for the orchestrator's produced
// interface: task submission and polling, subscription purchase and checks,
// system status, and instance selection and failure reporting.
package api
