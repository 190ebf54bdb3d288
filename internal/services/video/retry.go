package video

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"mindmovie/internal/services"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 4 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
)

// Retrier repeats a transport step while it fails with a transient fault.
// Provider application failures are returned on the first attempt.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Transient defaults to IsTransient.
	Transient func(error) bool
}

// NewRetrier returns a retrier using attempts (default 3) and the 4s-60s
// exponential backoff.
func NewRetrier(attempts int) Retrier {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	return Retrier{MaxAttempts: attempts, BaseDelay: defaultRetryBaseDelay, MaxDelay: defaultRetryMaxDelay}
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
func (r Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(r.MaxAttempts, 1)
	transient := r.Transient
	if transient == nil {
		transient = IsTransient
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !transient(err) || attempt == attempts || ctx.Err() != nil {
			return err
		}
		if sleepErr := r.sleep(ctx, r.delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func (r Retrier) delay(attempt int) time.Duration {
	delay := r.BaseDelay
	limit := r.MaxDelay
	if limit <= 0 {
		limit = defaultRetryMaxDelay
	}
	for i := 1; i < attempt && delay < limit; i++ {
		delay *= 2
	}
	return min(delay, limit)
}

func (r Retrier) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsTransient reports whether err is an infrastructure fault worth retrying:
// timeouts, dropped or refused connections, truncated bodies, or errors
// explicitly marked services.ErrTransient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrGenerationFailed) || errors.Is(err, ErrNotVideo) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
