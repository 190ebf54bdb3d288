// Package scenes defines the MindMovieSpec scene plan and the generator that
// produces it from questionnaire goals.
//
// Parse and FromMap apply defaults (title, closing affirmation), sort scenes
// by index, normalize scene names to snake_case tokens, and enforce the
// structural rules: 10-15 scenes with dense indices, first-person
// affirmations, detailed video prompts, and a known mood per scene. Every
// violation wraps both services.ErrValidation and ErrSchemaViolation.
//
// Generator sends a single structured-output request with JSONSchema and
// GenerationPrompt, unwraps an optional {"output": ...} envelope, and
// validates the result.
package scenes
