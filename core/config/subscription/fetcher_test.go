package subscription

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeSubscriptionContent(t *testing.T) {
	plain := "vless://id@h:443#a\ntrojan://p@h:443#b\n"
	tests := []struct {
		name      string
		content   []byte
		expected  string
		expectErr bool
	}{
		{"plain text", []byte(plain), plain, false},
		{"standard base64", []byte(base64.StdEncoding.EncodeToString([]byte(plain))), plain, false},
		{"url-safe unpadded", []byte(base64.RawURLEncoding.EncodeToString([]byte(plain))), plain, false},
		{"wrapped base64", []byte(wrap(base64.StdEncoding.EncodeToString([]byte(plain)), 16)), plain, false},
		{"json config", []byte(`{"outbounds":[]}`), "", true},
		{"garbage", []byte("not a subscription!"), "", true},
		{"empty", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSubscriptionContent(tt.content)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

func TestParseShareLine(t *testing.T) {
	tests := []struct {
		line     string
		wantURI  string
		wantName string
	}{
		{"vless://id@h:443#My%20Node", "vless://id@h:443", "My%20Node"},
		{"  trojan://p@h:443  ", "trojan://p@h:443", ""},
		{"ss://x#a#b", "ss://x", "a#b"},
		{"#only name", "", "only name"},
		{"", "", ""},
	}
	for _, tt := range tests {
		uri, name := ParseShareLine(tt.line)
		if uri != tt.wantURI || name != tt.wantName {
			t.Errorf("ParseShareLine(%q) = (%q, %q), want (%q, %q)", tt.line, uri, name, tt.wantURI, tt.wantName)
		}
	}
}

func TestParseSubscription(t *testing.T) {
	content := []byte("vless://id@h:443#one\r\n\n  \nbogus://x#two\ntrojan://p@h:443\n#comment\n")
	got := ParseSubscription(content)
	expected := []ShareLink{
		{URI: "vless://id@h:443", Name: "one"},
		{URI: "bogus://x", Name: "two"},
		{URI: "trojan://p@h:443", Name: ""},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("ParseSubscription = %+v, want %+v", got, expected)
	}
}

func TestFetchSubscription(t *testing.T) {
	plain := "vmess://abc#x\n"
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(base64.StdEncoding.EncodeToString([]byte(plain))))
		case "/empty":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	got, err := FetchSubscription(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("FetchSubscription returned error: %v", err)
	}
	if string(got) != plain {
		t.Errorf("Expected %q, got %q", plain, got)
	}
	if gotUA != SubscriptionUserAgent {
		t.Errorf("Expected User-Agent %q, got %q", SubscriptionUserAgent, gotUA)
	}

	if _, err := FetchSubscription(context.Background(), srv.URL+"/empty"); err == nil {
		t.Error("Expected error for empty body")
	}
	if _, err := FetchSubscription(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestFetchSubscription_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("vless://id@h:443"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FetchSubscription(ctx, srv.URL); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
