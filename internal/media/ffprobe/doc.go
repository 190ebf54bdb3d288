// Package ffprobe runs ffprobe against generated clips and decodes its JSON
// report. Composition uses it to learn each clip's real duration and whether
// the provider rendered an audio track.
package ffprobe
