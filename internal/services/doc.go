// Package services defines shared utilities consumed by the pipeline stages
// and the provider integrations beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, scene indices, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Details/ExitCode for
//     turning failures into user-facing messages and process exit codes.
//
// Provider clients live in subpackages (llm, gemini, video, veo, byteplus).
package services
