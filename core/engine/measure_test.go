package engine

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func proxyServer(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestMeasureDelay(t *testing.T) {
	tests := []struct {
		name    string
		addr    func(t *testing.T) string
		wantErr error
	}{
		{"no content", func(t *testing.T) string { return proxyServer(t, http.StatusNoContent) }, nil},
		{"redirect is not followed", func(t *testing.T) string { return proxyServer(t, http.StatusFound) }, nil},
		{"bad gateway", func(t *testing.T) string { return proxyServer(t, http.StatusBadGateway) }, ErrUpstreamUnreachable},
		{"listener down", closedAddr, ErrListenerNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeasurer(MeasureOptions{
				URL:       "http://probe.invalid/generate_204",
				ProxyAddr: tt.addr(t),
				Timeout:   2 * time.Second,
			})
			d, err := m.MeasureDelay(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("MeasureDelay returned error: %v", err)
				}
				if d <= 0 {
					t.Errorf("expected positive duration, got %v", d)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWaitListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	if err := WaitListening(context.Background(), ln.Addr().String(), time.Second); err != nil {
		t.Errorf("expected listener to be ready: %v", err)
	}

	start := time.Now()
	err = WaitListening(context.Background(), closedAddr(t), 200*time.Millisecond)
	if !errors.Is(err, ErrListenerNotReady) {
		t.Errorf("expected ErrListenerNotReady, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("WaitListening overran its timeout: %v", time.Since(start))
	}
}

func TestWaitListening_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitListening(ctx, closedAddr(t), time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
