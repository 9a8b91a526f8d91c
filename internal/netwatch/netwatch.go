// Package netwatch tracks whether the sync endpoint is reachable and reports
// offline to online transitions.
package netwatch

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor reports current connectivity.
type Monitor interface {
	Online() bool
}

// Notifier is a Monitor that also signals when connectivity comes back.
// The channel carries at most one undelivered signal.
type Notifier interface {
	Monitor
	Restored() <-chan struct{}
}

// Static is a Monitor whose state is set by hand. It backs --offline and tests.
type Static struct {
	online   atomic.Bool
	restored chan struct{}
}

// NewStatic returns a Static monitor in the given state.
func NewStatic(online bool) *Static {
	s := &Static{restored: make(chan struct{}, 1)}
	s.online.Store(online)
	return s
}

// Online reports the current state.
func (s *Static) Online() bool { return s.online.Load() }

// Restored signals each Set(true) that follows an offline period.
func (s *Static) Restored() <-chan struct{} { return s.restored }

// Set changes the state.
func (s *Static) Set(online bool) {
	if was := s.online.Swap(online); !was && online {
		notify(s.restored)
	}
}

const (
	// DefaultInterval is the time between probes.
	DefaultInterval = 15 * time.Second

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 3 * time.Second
)

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Prober decides connectivity by opening a TCP connection to the endpoint
// host. With no target it reports online.
type Prober struct {
	mu     sync.Mutex
	target string

	interval time.Duration
	timeout  time.Duration
	dial     DialFunc
	log      *slog.Logger

	online   atomic.Bool
	restored chan struct{}
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithInterval sets the time between probes.
func WithInterval(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout bounds a single probe.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDialer replaces the dial function.
func WithDialer(dial DialFunc) ProberOption {
	return func(p *Prober) { p.dial = dial }
}

// WithLogger sets the logger for transitions.
func WithLogger(l *slog.Logger) ProberOption {
	return func(p *Prober) { p.log = l }
}

// NewProber creates a Prober for a host:port target. It starts online.
func NewProber(target string, opts ...ProberOption) *Prober {
	var d net.Dialer
	p := &Prober{
		target:   target,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		dial:     d.DialContext,
		log:      slog.New(slog.DiscardHandler),
		restored: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.online.Store(true)
	return p
}

// Online reports the result of the latest probe.
func (p *Prober) Online() bool { return p.online.Load() }

// Restored signals offline to online transitions.
func (p *Prober) Restored() <-chan struct{} { return p.restored }

// SetTarget changes the probed address.
func (p *Prober) SetTarget(target string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = target
}

// Check probes once and records the result.
func (p *Prober) Check(ctx context.Context) bool {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()

	online := true
	if target != "" {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		conn, err := p.dial(ctx, "tcp", target)
		cancel()
		if err != nil {
			online = false
		} else {
			conn.Close()
		}
	}

	switch was := p.online.Swap(online); {
	case was && !online:
		p.log.Info("network offline", "target", target)
	case !was && online:
		p.log.Info("network restored", "target", target)
		notify(p.restored)
	}
	return online
}

// Run probes on every interval until ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// TargetFromURL returns the host:port to probe for an endpoint URL.
// Returns "" for URLs without a host.
func TargetFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
