package domain

import (
	"fmt"
	"time"
)

// ServerStatusKind discriminates the ServerStatus variant.
type ServerStatusKind string

const (
	StatusUnknown ServerStatusKind = "unknown"
	StatusOnline  ServerStatusKind = "online"
	StatusOffline ServerStatusKind = "offline"
)

// OfflineReason explains why the server is considered unreachable.
type OfflineReason string

const (
	ReasonNoInternet        OfflineReason = "no-internet"
	ReasonDNSFailure        OfflineReason = "dns-failure"
	ReasonConnectionRefused OfflineReason = "connection-refused"
	ReasonTimeout           OfflineReason = "timeout"
	ReasonSSLError          OfflineReason = "ssl-error"
	ReasonVPNRequired       OfflineReason = "vpn-required"
	ReasonUnknown           OfflineReason = "unknown"
)

// Description returns a human-readable explanation of the reason.
func (r OfflineReason) Description() string {
	switch r {
	case ReasonNoInternet:
		return "No network connection"
	case ReasonDNSFailure:
		return "Server name could not be resolved"
	case ReasonConnectionRefused:
		return "Server refused the connection"
	case ReasonTimeout:
		return "Server did not respond in time"
	case ReasonSSLError:
		return "TLS handshake or certificate error"
	case ReasonVPNRequired:
		return "Private network unreachable, a VPN may be required"
	case ReasonUnknown:
		return "Server unreachable"
	default:
		return "Server unreachable"
	}
}

// ServerStatus is the last known reachability of the server.
// Exactly one of the variants Unknown, Online or Offline is held;
// At is set for Online and Reason for Offline.
type ServerStatus struct {
	Kind   ServerStatusKind
	At     time.Time
	Reason OfflineReason
}

// UnknownStatus returns the initial status before any probe.
func UnknownStatus() ServerStatus {
	return ServerStatus{Kind: StatusUnknown}
}

// OnlineStatus returns an Online status confirmed at the given time.
func OnlineStatus(at time.Time) ServerStatus {
	return ServerStatus{Kind: StatusOnline, At: at}
}

// OfflineStatus returns an Offline status with the given reason.
func OfflineStatus(reason OfflineReason) ServerStatus {
	return ServerStatus{Kind: StatusOffline, Reason: reason}
}

// IsOnline returns true for the Online variant.
func (s ServerStatus) IsOnline() bool {
	return s.Kind == StatusOnline
}

// IsUnknown returns true before the first probe.
func (s ServerStatus) IsUnknown() bool {
	return s.Kind == StatusUnknown || s.Kind == ""
}

// Equal compares variants, ignoring the Online timestamp.
func (s ServerStatus) Equal(other ServerStatus) bool {
	if s.Kind != other.Kind {
		return false
	}
	return s.Kind != StatusOffline || s.Reason == other.Reason
}

// String returns a short representation.
func (s ServerStatus) String() string {
	switch s.Kind {
	case StatusOnline:
		return fmt.Sprintf("online (checked %s)", s.At.Format(time.RFC3339))
	case StatusOffline:
		return fmt.Sprintf("offline: %s", s.Reason)
	case StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}
