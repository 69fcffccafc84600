package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure HealthMonitor implements the interface.
var _ driving.HealthMonitor = (*HealthMonitor)(nil)

// HealthMonitor tracks server reachability with adaptive polling.
// Consecutive failures double the polling delay up to MaxInterval and
// open the circuit after MaxFailures, suspending polling until
// connectivity is regained or a manual check succeeds.
type HealthMonitor struct {
	remote        driven.RemoteAPI
	conn          driven.ConnectivityObserver
	cfg           domain.HealthSettings
	privateServer bool
	now           func() time.Time
	bus           *broadcaster[domain.ServerStatus]
	wakeCh        chan struct{}

	mu         sync.RWMutex
	status     domain.ServerStatus
	failures   int
	foreground bool

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewHealthMonitor creates a monitor for the server at serverURL.
// Zero fields of cfg take their defaults.
func NewHealthMonitor(
	remote driven.RemoteAPI,
	conn driven.ConnectivityObserver,
	cfg domain.HealthSettings,
	serverURL string,
) *HealthMonitor {
	defaults := domain.DefaultSettings().Health
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}
	if cfg.ForegroundInterval <= 0 {
		cfg.ForegroundInterval = defaults.ForegroundInterval
	}
	if cfg.BackgroundInterval <= 0 {
		cfg.BackgroundInterval = defaults.BackgroundInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	return &HealthMonitor{
		remote:        remote,
		conn:          conn,
		cfg:           cfg,
		privateServer: IsPrivateServer(serverURL),
		now:           time.Now,
		bus:           newBroadcaster[domain.ServerStatus](),
		wakeCh:        make(chan struct{}, 1),
		status:        domain.UnknownStatus(),
	}
}

// CheckServerHealth probes the server once and records the result.
func (m *HealthMonitor) CheckServerHealth(ctx context.Context) domain.ServerStatus {
	if !m.conn.IsConnected() {
		status := domain.OfflineStatus(domain.ReasonNoInternet)
		m.record(status)
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	err := m.remote.Probe(probeCtx)
	if ctx.Err() != nil {
		return m.Status()
	}

	status := ClassifyProbe(err, m.privateServer, m.now())
	if err != nil && !status.IsOnline() {
		logger.Debug("Health probe failed: %v", err)
	}
	m.record(status)
	return status
}

// Status returns the last recorded status.
func (m *HealthMonitor) Status() domain.ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsReachable returns true when connected and the server is online.
func (m *HealthMonitor) IsReachable() bool {
	return m.conn.IsConnected() && m.Status().IsOnline()
}

// Failures returns the number of consecutive failed checks.
func (m *HealthMonitor) Failures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures
}

// CircuitOpen reports whether polling is suspended.
func (m *HealthMonitor) CircuitOpen() bool {
	return m.Failures() >= m.cfg.MaxFailures
}

// NextDelay returns base·2^failures capped at MaxInterval, where base
// depends on the foreground flag.
func (m *HealthMonitor) NextDelay() time.Duration {
	m.mu.RLock()
	base := m.cfg.BackgroundInterval
	if m.foreground {
		base = m.cfg.ForegroundInterval
	}
	failures := m.failures
	m.mu.RUnlock()

	delay := base
	for i := 0; i < failures && delay < m.cfg.MaxInterval; i++ {
		delay *= 2
	}
	if delay > m.cfg.MaxInterval {
		return m.cfg.MaxInterval
	}
	return delay
}

// SetForeground switches between foreground and background cadence.
func (m *HealthMonitor) SetForeground(foreground bool) {
	m.mu.Lock()
	changed := m.foreground != foreground
	m.foreground = foreground
	m.mu.Unlock()
	if changed {
		m.wake()
	}
}

// Subscribe delivers the current status and every change until ctx is done.
func (m *HealthMonitor) Subscribe(ctx context.Context) <-chan domain.ServerStatus {
	return m.bus.subscribe(ctx, m.Status())
}

// Start runs the polling loop. It blocks until ctx is cancelled or Stop
// is called.
func (m *HealthMonitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	stopCh, done := m.stopCh, m.done
	m.runMu.Unlock()

	defer func() {
		m.runMu.Lock()
		m.running = false
		m.runMu.Unlock()
		close(done)
	}()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	connCh := m.conn.Subscribe(connCtx)

	m.CheckServerHealth(ctx)

	for {
		var timer *time.Timer
		var timerC <-chan time.Time
		if m.conn.IsConnected() && !m.CircuitOpen() {
			timer = time.NewTimer(m.NextDelay())
			timerC = timer.C
		}

		var err error
		stop := false
		select {
		case <-ctx.Done():
			err, stop = ctx.Err(), true
		case <-stopCh:
			stop = true
		case connected, ok := <-connCh:
			if !ok {
				connCh = nil
				break
			}
			m.onConnectivity(ctx, connected)
		case <-m.wakeCh:
		case <-timerC:
			m.CheckServerHealth(ctx)
		}

		if timer != nil {
			timer.Stop()
		}
		if stop {
			return err
		}
	}
}

// Stop ends the polling loop and waits for it to exit.
func (m *HealthMonitor) Stop() error {
	m.runMu.Lock()
	if !m.running {
		m.runMu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	done := m.done
	m.runMu.Unlock()

	<-done
	return nil
}

// onConnectivity reacts to a connectivity transition. Losing the link
// marks the server offline without counting a failure; regaining it
// closes the circuit and probes at once.
func (m *HealthMonitor) onConnectivity(ctx context.Context, connected bool) {
	if !connected {
		logger.Info("Network connection lost")
		m.setStatus(domain.OfflineStatus(domain.ReasonNoInternet))
		return
	}
	logger.Info("Network connection regained")
	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()
	m.CheckServerHealth(ctx)
}

// record stores a check result and updates the failure count.
func (m *HealthMonitor) record(status domain.ServerStatus) {
	m.mu.Lock()
	recovered := false
	if status.IsOnline() {
		recovered = m.failures >= m.cfg.MaxFailures
		m.failures = 0
	} else {
		m.failures++
		if m.failures == m.cfg.MaxFailures {
			logger.Warn("Server unreachable after %d checks, pausing health polling", m.failures)
		}
	}
	m.mu.Unlock()
	m.setStatus(status)
	if recovered {
		logger.Info("Server reachable again, resuming health polling")
		m.wake()
	}
}

func (m *HealthMonitor) setStatus(status domain.ServerStatus) {
	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.Equal(status) {
		logger.Info("Server status: %s", status)
		m.bus.publish(status)
	}
}

func (m *HealthMonitor) wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}
