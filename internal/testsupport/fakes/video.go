// Package fakes provides in-memory capability doubles for pipeline tests.
package fakes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mindmovie/internal/services/video"
	"mindmovie/internal/testsupport"
)

// Video is a video.Generator that writes a tiny MP4 per request.
type Video struct {
	// Fail maps scene indices to the error their attempt returns.
	Fail map[int]error
	// Delay holds each call open; a cancelled context ends it early.
	Delay time.Duration
	// CostPerSecond prices EstimateCost.
	CostPerSecond float64

	mu          sync.Mutex
	requests    []video.Request
	inFlight    int
	maxInFlight int
}

var _ video.Generator = (*Video)(nil)

// Generate records the request and writes the clip unless told to fail.
func (v *Video) Generate(ctx context.Context, req video.Request) (string, error) {
	v.mu.Lock()
	v.requests = append(v.requests, req)
	v.inFlight++
	v.maxInFlight = max(v.maxInFlight, v.inFlight)
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.inFlight--
		v.mu.Unlock()
	}()

	if v.Delay > 0 {
		timer := time.NewTimer(v.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if err, ok := v.Fail[SceneIndexFromPath(req.OutputPath)]; ok {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(req.OutputPath, testsupport.MP4Header(), 0o644); err != nil {
		return "", err
	}
	return req.OutputPath, nil
}

// EstimateCost prices durationSeconds at CostPerSecond.
func (v *Video) EstimateCost(durationSeconds int) float64 {
	return v.CostPerSecond * float64(durationSeconds)
}

// Calls is the number of Generate invocations.
func (v *Video) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.requests)
}

// Requests returns a copy of every request received.
func (v *Video) Requests() []video.Request {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]video.Request(nil), v.requests...)
}

// MaxInFlight is the highest number of simultaneous Generate calls seen.
func (v *Video) MaxInFlight() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxInFlight
}

// SceneIndexFromPath parses scene_NN.mp4; -1 when the name does not match.
func SceneIndexFromPath(path string) int {
	var idx int
	if _, err := fmt.Sscanf(filepath.Base(path), "scene_%d.mp4", &idx); err != nil {
		return -1
	}
	return idx
}
