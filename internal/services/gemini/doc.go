// Package gemini is the alternate text provider. It exposes the same Chat and
// GenerateStructured calls as the llm package, backed by the Gemini API with
// a JSON response schema instead of a forced tool call.
package gemini
