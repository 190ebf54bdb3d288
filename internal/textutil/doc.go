// Package textutil provides small text helpers shared by the CLI and pipeline:
// filename and token sanitizing, display title-casing, and rune-safe truncation.
package textutil
