package core

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// IsNetworkError reports whether err comes from the network rather than from the launcher.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// NetworkErrorMessage returns a readable description of a network error
func NetworkErrorMessage(err error) string {
	if err == nil {
		return "Unknown network error"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("DNS error: cannot resolve hostname (%s)", dnsErr.Name)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network timeout: connection timed out"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			return "Network error: cannot connect to server"
		}
		return fmt.Sprintf("Network error: %s", opErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timeout: operation took too long"
	}

	return fmt.Sprintf("Network error: %s", err.Error())
}
