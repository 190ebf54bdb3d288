// Package compose assembles the finished mind movie with ffmpeg.
//
// A composition is a title card, every scene clip trimmed to the configured
// scene duration with its affirmation drawn near the lower third, and a
// closing card. Segments are joined with xfade/acrossfade transitions, scaled
// to the configured resolution and aspect ratio, and optionally mixed with a
// background music track. The movie is encoded H.264/AAC into a temporary
// file next to the destination and renamed into place once ffmpeg succeeds.
//
// Failures surface as errors matching ErrComposition so the CLI can tell the
// user which command recovers (usually `mindmovie render`).
package compose
