package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/logger"
)

// DefaultPollInterval is how often interfaces are inspected.
const DefaultPollInterval = 5 * time.Second

// Ensure NetObserver implements the interface.
var _ driven.ConnectivityObserver = (*NetObserver)(nil)

// NetObserver considers the host connected when any interface is up,
// not loopback, and carries a routable address.
type NetObserver struct {
	mu        sync.RWMutex
	connected bool
	interval  time.Duration
	bus       *broadcaster
	check     func() bool
}

// NewNetObserver creates an observer and takes an initial reading.
// A non-positive interval uses DefaultPollInterval.
func NewNetObserver(interval time.Duration) *NetObserver {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	o := &NetObserver{
		interval: interval,
		bus:      newBroadcaster(),
		check:    hasRoutableInterface,
	}
	o.connected = o.check()
	return o
}

// IsConnected returns the last observed state.
func (o *NetObserver) IsConnected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.connected
}

// Subscribe delivers transitions until ctx is cancelled.
func (o *NetObserver) Subscribe(ctx context.Context) <-chan bool {
	return o.bus.subscribe(ctx)
}

// Run polls until ctx is cancelled. It always returns nil.
func (o *NetObserver) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.poll()
		}
	}
}

func (o *NetObserver) poll() {
	connected := o.check()

	o.mu.Lock()
	changed := connected != o.connected
	o.connected = connected
	o.mu.Unlock()

	if changed {
		logger.Info("connectivity changed: connected=%t", connected)
		o.bus.publish(connected)
	}
}

func hasRoutableInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		logger.Warn("list network interfaces: %v", err)
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if routable(addr) {
				return true
			}
		}
	}
	return false
}

func routable(addr net.Addr) bool {
	var ip net.IP
	switch a := addr.(type) {
	case *net.IPNet:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return false
	}
	return ip != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}
