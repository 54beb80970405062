// Package generation defines the boundary between the orchestration core and
// external AI/LLM services. Task handlers generate marketing copy through the
// Generator interface without coupling to a specific provider.
package generation
