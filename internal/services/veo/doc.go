// Package veo generates scene clips with Google's Veo models through the
// google.golang.org/genai SDK. A clip is one long-running operation that is
// submitted, polled until done, then written from inline bytes or downloaded
// from the returned URI.
package veo
