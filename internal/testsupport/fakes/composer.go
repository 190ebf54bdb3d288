package fakes

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"mindmovie/internal/compose"
	"mindmovie/internal/testsupport"
)

// Composer writes a placeholder movie at the requested path.
type Composer struct {
	Err error

	mu       sync.Mutex
	requests []compose.Request
}

// Compose records req and writes the output unless Err is set.
func (c *Composer) Compose(_ context.Context, req compose.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.Err != nil {
		return "", c.Err
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(req.OutputPath, testsupport.MP4Header(), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

// Requests returns a copy of every request received.
func (c *Composer) Requests() []compose.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]compose.Request(nil), c.requests...)
}
