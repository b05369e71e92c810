// Package proxy implements the accept loop and per-connection handler that
// ties backend selection, dialing and forwarding together: select a
// backend, dial it with a timeout, forward bytes bidirectionally, report
// the outcome to the health monitor, then close both sockets.
package proxy

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"l4lb/internal/admission"
	"l4lb/internal/backend"
	"l4lb/internal/forward"
	"l4lb/internal/metrics"
)

// Selector is the subset of *selector.RoundRobin the proxy depends on.
type Selector interface {
	SelectBackend() (*backend.Backend, bool)
}

// HealthMonitor is the subset of *health.Monitor the proxy depends on.
type HealthMonitor interface {
	RecordSuccess(b *backend.Backend)
	RecordFailure(b *backend.Backend)
}

// Config holds the proxy's own settings.
type Config struct {
	ListenAddress  string
	ListenPort     int
	ConnectTimeout time.Duration
	// MaxConcurrentConnections, when > 0, is enforced by an admission
	// semaphore at accept time.
	MaxConcurrentConnections int
}

// TCPProxy accepts client connections, selects a backend for each, dials it
// and forwards bytes bidirectionally until the session ends.
type TCPProxy struct {
	cfg      Config
	selector Selector
	monitor  HealthMonitor
	admitter *admission.Admitter
	logger   zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a TCPProxy. It does not bind a socket until Start is called.
func New(cfg Config, sel Selector, monitor HealthMonitor, logger zerolog.Logger) *TCPProxy {
	return &TCPProxy{
		cfg:      cfg,
		selector: sel,
		monitor:  monitor,
		admitter: admission.New(cfg.MaxConcurrentConnections),
		logger:   logger.With().Str("component", "proxy").Logger(),
	}
}

// Start binds the listener and spawns the accept loop. It returns once the
// listener is bound; the accept loop runs in the background.
func (p *TCPProxy) Start(ctx context.Context) error {
	addr := net.JoinHostPort(p.cfg.ListenAddress, strconv.Itoa(p.cfg.ListenPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.listener = ln
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info().Str("address", addr).Msg("listening")

	p.wg.Add(1)
	go p.acceptLoop(runCtx, ln)

	go func() {
		<-runCtx.Done()
		ln.Close()
	}()

	return nil
}

// Stop signals cancellation, closes the listener and waits for in-flight
// handlers and the accept loop to finish.
func (p *TCPProxy) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *TCPProxy) acceptLoop(ctx context.Context, ln net.Listener) {
	defer p.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			p.logger.Error().Err(err).Msg("accept failed")
			continue
		}

		release, admitErr := p.admitter.Acquire(ctx)
		if admitErr != nil {
			conn.Close()
			continue
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer release()
			p.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection selects a backend, dials it, forwards the session, and
// reports the outcome to the health monitor.
func (p *TCPProxy) handleConnection(ctx context.Context, client net.Conn) {
	defer client.Close()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	b, ok := p.selector.SelectBackend()
	if !ok {
		p.logger.Warn().Str("client", client.RemoteAddr().String()).Msg("no healthy backends available")
		metrics.ConnectionsTotal.WithLabelValues("no_backend").Inc()
		return
	}
	metrics.BackendSelectedTotal.WithLabelValues(b.Name).Inc()

	dialCtx, dialCancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer dialCancel()

	dialStart := time.Now()
	var dialer net.Dialer
	backendConn, err := dialer.DialContext(dialCtx, "tcp", b.Addr())
	metrics.BackendConnectDuration.WithLabelValues(b.Name).Observe(time.Since(dialStart).Seconds())
	if err != nil {
		p.logger.Error().Err(err).Str("backend", b.Name).Str("addr", b.Addr()).Msg("backend connect failed")
		p.monitor.RecordFailure(b)
		metrics.ConnectionsTotal.WithLabelValues("connect_error").Inc()
		return
	}
	defer backendConn.Close()

	p.logger.Debug().Str("client", client.RemoteAddr().String()).Str("backend", b.Name).Msg("forwarding session started")

	stats, ferr := forward.Forward(ctx, client, backendConn, p.logger)
	metrics.ForwardBytesTotal.WithLabelValues(b.Name, "client_to_backend").Add(float64(stats.ClientToBackendBytes))
	metrics.ForwardBytesTotal.WithLabelValues(b.Name, "backend_to_client").Add(float64(stats.BackendToClientBytes))

	if ferr != nil && !errors.Is(ferr, context.Canceled) && !errors.Is(ferr, context.DeadlineExceeded) {
		p.logger.Error().Err(ferr).Str("backend", b.Name).Msg("forwarding session failed")
		p.monitor.RecordFailure(b)
		metrics.ConnectionsTotal.WithLabelValues("forward_error").Inc()
		return
	}

	p.monitor.RecordSuccess(b)
	metrics.ConnectionsTotal.WithLabelValues("forwarded").Inc()
	p.logger.Debug().Str("client", client.RemoteAddr().String()).Str("backend", b.Name).Msg("forwarding session completed")
}
