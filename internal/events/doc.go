// Package events decouples task producers from the orchestration engine.
// Producers emit TaskRequestEvents through an EventEmitter; the engine
// registers as a handler and turns each event into a queued task. This keeps
// the API layer free of a direct dependency on engine internals.
package events
