package overlay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRefreshInterval is the location refresh period while recording.
const DefaultRefreshInterval = 10 * time.Second

// Refresher polls a LocationSource on a fixed interval and caches the
// last-known-good fix. Failures keep the previous fix and are only logged
// and counted; nothing on the compose path ever waits for a fetch.
type Refresher struct {
	source    LocationSource
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	onFailure func(error)

	last     atomic.Pointer[Position]
	failures atomic.Uint64
	fetches  atomic.Uint64
	warn     rate.Sometimes

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RefresherOption customises a Refresher.
type RefresherOption func(*Refresher)

// WithFailureHook is called after every failed fetch.
func WithFailureHook(fn func(error)) RefresherOption {
	return func(r *Refresher) { r.onFailure = fn }
}

// WithFetchTimeout bounds every individual fetch. Defaults to the interval.
func WithFetchTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.timeout = d }
}

func NewRefresher(source LocationSource, interval time.Duration, logger *slog.Logger, opts ...RefresherOption) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	r := &Refresher{
		source:   source,
		interval: interval,
		timeout:  interval,
		logger:   logger,
		warn:     rate.Sometimes{First: 1, Interval: time.Minute},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start launches the refresh goroutine; the first fetch is immediate.
// Calling Start on a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop cancels any in-flight fetch and waits for the goroutine to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the refresh goroutine is active.
func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.RefreshNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshNow(ctx)
		}
	}
}

// RefreshNow performs one bounded fetch and updates the cache on success.
func (r *Refresher) RefreshNow(ctx context.Context) (Position, error) {
	if r.source == nil {
		return Position{}, ErrLocationUnavailable
	}
	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	r.fetches.Add(1)
	pos, err := r.source.Locate(fctx)
	if err == nil && !pos.Valid() {
		err = ErrLocationUnavailable
	}
	if err != nil {
		if ctx.Err() != nil {
			return Position{}, err
		}
		n := r.failures.Add(1)
		if r.onFailure != nil {
			r.onFailure(err)
		}
		r.warn.Do(func() {
			if r.logger != nil {
				r.logger.Warn("location refresh failed; keeping last fix", "error", err, "failures", n)
			}
		})
		return Position{}, err
	}
	if pos.FixedAt.IsZero() {
		pos.FixedAt = time.Now()
	}
	r.last.Store(&pos)
	if r.logger != nil {
		r.logger.Debug("location.refresh", "lat", pos.Lat, "lon", pos.Lon)
	}
	return pos, nil
}

// Last returns the last-known-good fix without blocking.
func (r *Refresher) Last() (Position, bool) {
	p := r.last.Load()
	if p == nil {
		return Position{}, false
	}
	return *p, true
}

// Failures counts failed fetches since construction.
func (r *Refresher) Failures() uint64 { return r.failures.Load() }

// Fetches counts attempted fetches since construction.
func (r *Refresher) Fetches() uint64 { return r.fetches.Load() }
