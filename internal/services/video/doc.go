// Package video holds what the clip providers share: the Generator
// interface and Request type, the per-second price table, a transient-fault
// Retrier, and download helpers that refuse content filetype does not
// recognize as video.
package video
