// Package gemini implements the generation.Generator interface using the
// Google Gemini API. It owns prompt construction, transient-error retries,
// and mapping provider failures onto the generation package's error types.
package gemini
