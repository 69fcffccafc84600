package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/adapters/driven/connectivity"
	"github.com/custodia-labs/docsync/internal/core/domain"
)

func dialError(errno syscall.Errno) error {
	return &url.Error{
		Op:  "Get",
		URL: "https://paperless.example.com/api/tags/",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", errno)},
	}
}

func TestClassifyProbe(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		err     error
		private bool
		want    domain.ServerStatus
	}{
		{"success", nil, false, domain.OnlineStatus(at)},
		{"http error proves reachability", &domain.APIError{StatusCode: http.StatusUnauthorized}, false, domain.OnlineStatus(at)},
		{"server error", fmt.Errorf("probe: %w", &domain.APIError{StatusCode: http.StatusBadGateway}), false, domain.OnlineStatus(at)},
		{"dns", &url.Error{Op: "Get", Err: &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "paperless.example.com"}}}, false, domain.OfflineStatus(domain.ReasonDNSFailure)},
		{"refused", dialError(syscall.ECONNREFUSED), false, domain.OfflineStatus(domain.ReasonConnectionRefused)},
		{"unknown authority", &url.Error{Op: "Get", Err: x509.UnknownAuthorityError{}}, false, domain.OfflineStatus(domain.ReasonSSLError)},
		{"verification", &tls.CertificateVerificationError{Err: x509.HostnameError{Host: "x"}}, false, domain.OfflineStatus(domain.ReasonSSLError)},
		{"host unreachable private", dialError(syscall.EHOSTUNREACH), true, domain.OfflineStatus(domain.ReasonVPNRequired)},
		{"network unreachable private", dialError(syscall.ENETUNREACH), true, domain.OfflineStatus(domain.ReasonVPNRequired)},
		{"network unreachable public", dialError(syscall.ENETUNREACH), false, domain.OfflineStatus(domain.ReasonNoInternet)},
		{"host unreachable public", dialError(syscall.EHOSTUNREACH), false, domain.OfflineStatus(domain.ReasonUnknown)},
		{"deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), false, domain.OfflineStatus(domain.ReasonTimeout)},
		{"missing token", domain.ErrAuthRequired, false, domain.OfflineStatus(domain.ReasonUnknown)},
		{"other", errors.New("boom"), false, domain.OfflineStatus(domain.ReasonUnknown)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyProbe(tt.err, tt.private, at)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPrivateServer(t *testing.T) {
	tests := map[string]bool{
		"https://192.168.1.20:8000":     true,
		"http://10.0.0.5":               true,
		"http://127.0.0.1:8000":         true,
		"http://paperless":              true,
		"https://paperless.local":       true,
		"https://docs.home.arpa":        true,
		"https://nas.lan/paperless":     true,
		"https://paperless.example.com": false,
		"https://203.0.113.10":          false,
		"http://bad\x7fhost":            false,
		"":                              false,
	}
	for raw, want := range tests {
		assert.Equal(t, want, IsPrivateServer(raw), raw)
	}
}

func newTestMonitor(remote *fakeRemote, conn *connectivity.Static) *HealthMonitor {
	return NewHealthMonitor(remote, conn, domain.HealthSettings{
		ProbeTimeout:       time.Second,
		ForegroundInterval: time.Second,
		BackgroundInterval: 4 * time.Second,
		MaxInterval:        30 * time.Second,
		MaxFailures:        3,
	}, "https://paperless.example.com")
}

func TestNewHealthMonitor_Defaults(t *testing.T) {
	m := NewHealthMonitor(newFakeRemote(), connectivity.NewStatic(true), domain.HealthSettings{}, "")

	assert.Equal(t, domain.DefaultSettings().Health, m.cfg)
	assert.True(t, m.Status().IsUnknown())
	assert.Equal(t, 5*time.Minute, m.NextDelay())
}

func TestHealthMonitor_CheckServerHealth(t *testing.T) {
	remote := newFakeRemote()
	m := newTestMonitor(remote, connectivity.NewStatic(true))

	status := m.CheckServerHealth(context.Background())

	assert.True(t, status.IsOnline())
	assert.True(t, m.IsReachable())
	assert.Equal(t, 1, remote.probeCount())

	remote.setProbeErr(dialError(syscall.ECONNREFUSED))
	status = m.CheckServerHealth(context.Background())

	assert.Equal(t, domain.OfflineStatus(domain.ReasonConnectionRefused), status)
	assert.False(t, m.IsReachable())
	assert.Equal(t, 1, m.Failures())
}

func TestHealthMonitor_NoConnectivitySkipsProbe(t *testing.T) {
	remote := newFakeRemote()
	m := newTestMonitor(remote, connectivity.NewStatic(false))

	status := m.CheckServerHealth(context.Background())

	assert.Equal(t, domain.OfflineStatus(domain.ReasonNoInternet), status)
	assert.Zero(t, remote.probeCount())
	assert.False(t, m.IsReachable())
}

func TestHealthMonitor_NextDelayBacksOff(t *testing.T) {
	remote := newFakeRemote()
	m := newTestMonitor(remote, connectivity.NewStatic(true))
	ctx := context.Background()

	assert.Equal(t, 4*time.Second, m.NextDelay())
	m.SetForeground(true)
	assert.Equal(t, time.Second, m.NextDelay())
	m.SetForeground(false)

	remote.setProbeErr(errors.New("boom"))
	var delays []time.Duration
	for i := 0; i < 4; i++ {
		m.CheckServerHealth(ctx)
		delays = append(delays, m.NextDelay())
	}
	assert.Equal(t, []time.Duration{8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}, delays)
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
	}

	remote.setProbeErr(nil)
	m.CheckServerHealth(ctx)
	assert.Equal(t, 4*time.Second, m.NextDelay())
}

func TestHealthMonitor_CircuitOpensAfterMaxFailures(t *testing.T) {
	remote := newFakeRemote()
	remote.setProbeErr(errors.New("boom"))
	m := newTestMonitor(remote, connectivity.NewStatic(true))

	for i := 0; i < 2; i++ {
		m.CheckServerHealth(context.Background())
	}
	assert.False(t, m.CircuitOpen())

	m.CheckServerHealth(context.Background())
	assert.True(t, m.CircuitOpen())

	remote.setProbeErr(nil)
	m.CheckServerHealth(context.Background())
	assert.False(t, m.CircuitOpen())
}

func TestHealthMonitor_SubscribePublishesChanges(t *testing.T) {
	remote := newFakeRemote()
	m := newTestMonitor(remote, connectivity.NewStatic(true))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := m.Subscribe(ctx)
	assert.True(t, (<-ch).IsUnknown())

	m.CheckServerHealth(ctx)
	assert.True(t, (<-ch).IsOnline())

	// Repeated online results are not republished.
	m.CheckServerHealth(ctx)
	select {
	case s := <-ch:
		t.Fatalf("unexpected status %v", s)
	default:
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestHealthMonitor_StartReactsToConnectivity(t *testing.T) {
	remote := newFakeRemote()
	conn := connectivity.NewStatic(true)
	m := newTestMonitor(remote, conn)

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background())
	}()

	require.Eventually(t, func() bool { return m.Status().IsOnline() }, time.Second, 5*time.Millisecond)

	conn.SetConnected(false)
	require.Eventually(t, func() bool {
		return m.Status() == domain.OfflineStatus(domain.ReasonNoInternet)
	}, time.Second, 5*time.Millisecond)
	assert.False(t, m.IsReachable())

	conn.SetConnected(true)
	require.Eventually(t, func() bool { return m.IsReachable() }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, remote.probeCount(), 2)

	require.NoError(t, m.Stop())
	assert.NoError(t, <-done)
	assert.NoError(t, m.Stop())
}

func TestHealthMonitor_StartStopsOnContextCancel(t *testing.T) {
	m := newTestMonitor(newFakeRemote(), connectivity.NewStatic(true))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Start(ctx)
	}()
	require.Eventually(t, func() bool { return m.Status().IsOnline() }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestHealthMonitor_ManualRecoveryResumesPolling(t *testing.T) {
	remote := newFakeRemote()
	remote.setProbeErr(errors.New("boom"))
	m := NewHealthMonitor(remote, connectivity.NewStatic(true), domain.HealthSettings{
		ProbeTimeout:       time.Second,
		ForegroundInterval: 20 * time.Millisecond,
		BackgroundInterval: 20 * time.Millisecond,
		MaxInterval:        40 * time.Millisecond,
		MaxFailures:        2,
	}, "https://paperless.example.com")

	done := make(chan error, 1)
	go func() {
		done <- m.Start(context.Background())
	}()
	require.Eventually(t, m.CircuitOpen, time.Second, 5*time.Millisecond)

	remote.setProbeErr(nil)
	assert.True(t, m.CheckServerHealth(context.Background()).IsOnline())
	recoveredAt := remote.probeCount()

	// The loop probes on its own again once the circuit closes.
	require.Eventually(t, func() bool {
		return remote.probeCount() >= recoveredAt+2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.NoError(t, <-done)
}
