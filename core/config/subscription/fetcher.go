package subscription

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"v2ray-launcher/internal/constants"
	"v2ray-launcher/internal/debuglog"
)

// NetworkRequestTimeout defines the timeout for network requests
const NetworkRequestTimeout = 30 * time.Second

// MaxSubscriptionSize caps the downloaded subscription body.
const MaxSubscriptionSize = 10 * 1024 * 1024

// SubscriptionUserAgent is sent so that providers return a link list rather than a client-specific config.
var SubscriptionUserAgent = "v2ray-launcher/" + constants.AppVersion

// NetworkDialTimeout bounds the TCP connect to the subscription server.
const NetworkDialTimeout = 5 * time.Second

// HTTPClient is used by FetchSubscription.
var HTTPClient = CreateHTTPClient(NetworkRequestTimeout)

// CreateHTTPClient creates an HTTP client with dial, TLS and overall timeouts.
func CreateHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   NetworkDialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ShareLink is one line of a subscription: the link itself and its display name.
type ShareLink struct {
	URI  string
	Name string
}

// FetchSubscription fetches subscription content from URL and decodes it
// Returns decoded content and error if fetch or decode fails
func FetchSubscription(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, NetworkRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", SubscriptionUserAgent)

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	defer debuglog.RunAndLog("FetchSubscription: close response body", resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subscription server returned status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, MaxSubscriptionSize+1))
	if err != nil {
		return nil, fmt.Errorf("FetchSubscription: failed to read subscription content: %w", err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("FetchSubscription: subscription returned empty content")
	}
	if len(content) > MaxSubscriptionSize {
		return nil, fmt.Errorf("FetchSubscription: subscription content too large (exceeds %d bytes)", MaxSubscriptionSize)
	}

	debuglog.LogTextFragment("FetchSubscription", debuglog.LevelVerbose, debuglog.UseGlobal, "raw content", string(content), 200)

	decoded, err := DecodeSubscriptionContent(content)
	if err != nil {
		return nil, fmt.Errorf("FetchSubscription: failed to decode subscription content: %w", err)
	}
	return decoded, nil
}

// DecodeSubscriptionContent decodes a subscription body that is either base64
// or a plain list of links. Plain text is returned unchanged.
func DecodeSubscriptionContent(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("subscription content is empty")
	}

	contentStr := strings.TrimSpace(string(content))
	if contentStr == "" {
		return content, nil
	}

	// Providers often wrap base64 at 76 columns.
	compact := strings.Join(strings.Fields(contentStr), "")
	decoded, source, err := tryDecodeBase64(compact)
	if err == nil {
		if len(decoded) == 0 {
			return nil, fmt.Errorf("decoded content is empty")
		}
		if !utf8.Valid(decoded) {
			return nil, fmt.Errorf("decoded content contains invalid UTF-8 sequences")
		}
		debuglog.DebugLog("DecodeSubscriptionContent: %s: successfully decoded: %d line(s)", source, countLines(decoded))
		return decoded, nil
	}

	if strings.HasPrefix(contentStr, "{") || strings.HasPrefix(contentStr, "[") {
		return nil, fmt.Errorf("subscription URL returned JSON configuration instead of subscription list (base64 or plain text links)")
	}

	if strings.Contains(contentStr, "://") {
		debuglog.DebugLog("DecodeSubscriptionContent: Detected plain text subscription")
		return content, nil
	}

	return nil, fmt.Errorf("failed to decode base64 content: %w", err)
}

// ParseSubscription splits decoded subscription content into share links.
// Blank lines and lines without a link part are dropped; unsupported schemes
// are kept and only skipped when translated.
func ParseSubscription(content []byte) []ShareLink {
	var links []ShareLink
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxURILength*2)
	for scanner.Scan() {
		uri, name := ParseShareLine(scanner.Text())
		if uri == "" {
			continue
		}
		links = append(links, ShareLink{URI: uri, Name: name})
	}
	if err := scanner.Err(); err != nil {
		debuglog.WarnLog("ParseSubscription: stopped early: %v", err)
	}
	return links
}

// ParseShareLine splits "uri#name" at the first '#'. The name is returned as
// found (usually percent-encoded).
func ParseShareLine(line string) (uri, name string) {
	line = strings.TrimSpace(line)
	uri, name, _ = strings.Cut(line, "#")
	return strings.TrimSpace(uri), name
}

func tryDecodeBase64(s string) ([]byte, string, error) {
	if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s); err == nil {
		return decoded, "URL-safe base64", nil
	}
	if decoded, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(s); err == nil {
		return decoded, "Standard base64", nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(s); err == nil {
		return decoded, "URL-safe base64 (with padding)", nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, "Standard base64 (with padding)", nil
	}
	return nil, "", fmt.Errorf("failed to decode base64")
}

func countLines(b []byte) int {
	n := bytes.Count(b, []byte("\n"))
	if len(b) > 0 && b[len(b)-1] != '\n' {
		n++
	}
	return n
}
