// Package assets generates the video clip for every scene that still needs
// one. Attempts run concurrently under a semaphore sized by
// video.max_concurrent and may be paced by a submission rate limit. Every
// status transition is persisted through the state store before the next
// one, so an interrupted render resumes with only the unfinished scenes.
//
// A failed attempt is recorded and left for the next render; this package
// never retries on its own. Transient transport faults are retried inside
// the video providers.
package assets
