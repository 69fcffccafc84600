package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// ClassifyProbe maps a probe outcome to a server status. Any HTTP
// response, including an error status, proves the server is reachable.
func ClassifyProbe(err error, privateServer bool, at time.Time) domain.ServerStatus {
	if err == nil {
		return domain.OnlineStatus(at)
	}
	if _, ok := domain.AsAPIError(err); ok {
		return domain.OnlineStatus(at)
	}
	return domain.OfflineStatus(offlineReason(err, privateServer))
}

func offlineReason(err error, privateServer bool) domain.OfflineReason {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ReasonDNSFailure
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.ReasonConnectionRefused
	}
	if isTLSError(err) {
		return domain.ReasonSSLError
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		switch {
		case privateServer:
			return domain.ReasonVPNRequired
		case errors.Is(err, syscall.ENETUNREACH):
			return domain.ReasonNoInternet
		default:
			return domain.ReasonUnknown
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonUnknown
}

func isTLSError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}

// IsPrivateServer reports whether the server URL points into a private
// network: a private or loopback address, a single-label host or a
// local-only suffix.
func IsPrivateServer(serverURL string) bool {
	u, err := url.Parse(serverURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
	}
	if !strings.Contains(host, ".") {
		return true
	}
	for _, suffix := range []string{".local", ".lan", ".internal", ".home.arpa"} {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
