package assets

import (
	"fmt"
	"strings"
)

// Result is the outcome of one scene attempt.
type Result struct {
	SceneIndex int
	VideoPath  string
	Err        error
	// Message is the summary persisted on the scene asset when Err is set.
	Message string
}

// Success reports whether the clip was written.
func (r Result) Success() bool { return r.Err == nil }

// Summary aggregates the attempts of one GenerateAll call.
type Summary struct {
	Results []Result
}

// Total is the number of scenes attempted.
func (s Summary) Total() int { return len(s.Results) }

// Succeeded returns the successful attempts.
func (s Summary) Succeeded() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Success() {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the failed attempts.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Success() {
			out = append(out, r)
		}
	}
	return out
}

// AllSucceeded is true when no attempt failed. An empty summary succeeds.
func (s Summary) AllSucceeded() bool { return len(s.Failed()) == 0 }

// Format renders a short report for the terminal.
func (s Summary) Format() string {
	lines := []string{fmt.Sprintf("Generated %d/%d videos successfully.", len(s.Succeeded()), s.Total())}
	failed := s.Failed()
	if len(failed) > 0 {
		lines = append(lines, "Failed scenes:")
		for _, r := range failed {
			lines = append(lines, fmt.Sprintf("  Scene %d: %s", r.SceneIndex, r.Message))
		}
	}
	return strings.Join(lines, "\n")
}
