package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"v2ray-launcher/internal/debuglog"
)

var (
	// ErrListenerNotReady means the local engine listener refused or dropped the connection.
	ErrListenerNotReady = errors.New("local listener not ready")
	// ErrUpstreamUnreachable means the engine accepted the request but the upstream failed it.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)

// MeasureOptions configures how delay is measured through the test listener.
type MeasureOptions struct {
	URL       string
	ProxyAddr string
	Timeout   time.Duration
}

// Measurer issues timed requests through a local HTTP proxy listener.
type Measurer struct {
	url    string
	client *http.Client
}

func NewMeasurer(opts MeasureOptions) *Measurer {
	proxyURL := &url.URL{Scheme: "http", Host: opts.ProxyAddr}
	dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}

	// The proxy is the only host this transport dials, so every dial failure
	// is a local listener failure.
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrListenerNotReady, err)
		}
		return conn, nil
	}

	return &Measurer{
		url: opts.URL,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyURL(proxyURL),
				DialContext:         dial,
				DisableKeepAlives:   true,
				TLSHandshakeTimeout: opts.Timeout,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// MeasureDelay times one GET of the measurement URL. Errors wrap
// ErrListenerNotReady or ErrUpstreamUnreachable.
func (m *Measurer) MeasureDelay(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build measure request: %w", err)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrListenerNotReady) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}
	defer debuglog.RunAndLog("MeasureDelay: close response body", resp.Body.Close)

	// xray answers 5xx itself when it cannot reach the target.
	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, fmt.Errorf("%w: proxy returned status %d", ErrUpstreamUnreachable, resp.StatusCode)
	}
	return elapsed, nil
}

// WaitListening polls addr until it accepts TCP connections or timeout elapses.
func WaitListening(ctx context.Context, addr string, timeout time.Duration) error {
	const pollInterval = 50 * time.Millisecond

	deadline := time.Now().Add(timeout)
	var d net.Dialer
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, pollInterval*4)
		conn, err := d.DialContext(attemptCtx, "tcp", addr)
		cancel()
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %v: %v", ErrListenerNotReady, addr, timeout, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
