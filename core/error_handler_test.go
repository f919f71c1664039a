package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"v2ray-launcher/core/engine"
	"v2ray-launcher/core/store"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", fmt.Errorf("endpoint 3: %w", store.ErrNotFound), "Not found"},
		{"exists", store.ErrProfileExists, "already exists"},
		{"unusable", fmt.Errorf("endpoint 3: %w", ErrEndpointUnusable), "Only vmess://"},
		{"not a link", fmt.Errorf("%q: %w", "hello", ErrNotALink), "Only vmess://"},
		{"listener", engine.ErrListenerNotReady, "local port"},
		{"cancelled", context.Canceled, "Cancelled"},
		{"dns", &net.DNSError{Name: "sub.example"}, "cannot resolve hostname (sub.example)"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, "cannot connect"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage(%v) = %q, want it to contain %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestShowError(t *testing.T) {
	var buf bytes.Buffer
	ShowError(&buf, "import", nil)
	if buf.Len() != 0 {
		t.Fatalf("nil error printed %q", buf.String())
	}

	ShowError(&buf, "import", fmt.Errorf("profile 2: %w", store.ErrNotFound))
	if got := buf.String(); !strings.HasPrefix(got, "import failed: Not found") {
		t.Errorf("unexpected message %q", got)
	}
}
