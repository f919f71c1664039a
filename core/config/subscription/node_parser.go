// Package subscription turns proxy share links (vmess://, vless://, trojan://)
// into engine outbounds and fetches subscription lists of such links.
package subscription

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"v2ray-launcher/core/config"
	"v2ray-launcher/internal/debuglog"
)

// MaxURILength defines the maximum allowed length for a proxy URI
const MaxURILength = 8192

var (
	// ErrUnsupportedScheme is returned for links whose scheme has no translator.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	// ErrShadowsocksSkipped is returned for ss:// links, which callers skip silently.
	ErrShadowsocksSkipped = errors.New("shadowsocks links are not supported")
	// ErrMalformed wraps any decoding or parsing failure of a recognized scheme.
	ErrMalformed = errors.New("malformed link")
)

// vless transports that are routed as plain tcp at this layer.
var vlessTCPFallback = map[string]bool{
	"":            true,
	"grpc":        true,
	"httpupgrade": true,
	"xhttp":       true,
	"raw":         true,
}

// IsDirectLink checks if the input string is a direct proxy link (vless://, vmess://, etc.)
func IsDirectLink(input string) bool {
	trimmed := strings.TrimSpace(input)
	return strings.HasPrefix(trimmed, "vless://") ||
		strings.HasPrefix(trimmed, "vmess://") ||
		strings.HasPrefix(trimmed, "trojan://") ||
		strings.HasPrefix(trimmed, "ss://")
}

// Translate converts a share link into an outbound tagged for endpoint id.
// It never fails: unsupported or malformed input yields (nil, false) and a log
// line; ss:// links yield (nil, false) without logging.
func Translate(uri string, id int64) (*config.Outbound, bool) {
	ob, err := Parse(uri, id)
	switch {
	case err == nil:
		return ob, true
	case errors.Is(err, ErrShadowsocksSkipped):
	case errors.Is(err, ErrUnsupportedScheme):
		debuglog.WarnLog("Translator: Unsupported URI scheme: %s", preview(uri))
	default:
		debuglog.WarnLog("Translator: Skipping endpoint %d: %v", id, err)
	}
	return nil, false
}

// Parse is the error-returning form of Translate.
func Parse(uri string, id int64) (*config.Outbound, error) {
	uri = strings.TrimSpace(uri)
	if len(uri) > MaxURILength {
		return nil, fmt.Errorf("%w: URI length (%d) exceeds maximum (%d)", ErrMalformed, len(uri), MaxURILength)
	}

	tag := config.TagFor(id)

	switch {
	case strings.HasPrefix(uri, "vmess://"):
		return parseVMess(strings.TrimPrefix(uri, "vmess://"), tag)
	case strings.HasPrefix(uri, "vless://"):
		return parseVLESS(uri, tag)
	case strings.HasPrefix(uri, "trojan://"):
		return parseTrojan(uri, tag)
	case strings.HasPrefix(uri, "ss://"):
		return nil, ErrShadowsocksSkipped
	default:
		return nil, ErrUnsupportedScheme
	}
}

// flexString accepts both JSON strings and numbers; vmess generators disagree on port and aid.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(raw)
	return nil
}

// vmessLink is the JSON payload of a vmess:// link (v2rayN format).
type vmessLink struct {
	Add  string     `json:"add"`
	Port flexString `json:"port"`
	ID   string     `json:"id"`
	Aid  flexString `json:"aid"`
	Scy  string     `json:"scy"`
	Net  string     `json:"net"`
	TLS  string     `json:"tls"`
	Path string     `json:"path"`
	Host string     `json:"host"`
}

func parseVMess(payload, tag string) (*config.Outbound, error) {
	decoded, err := decodeBase64WithPadding(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode VMESS base64: %v", ErrMalformed, err)
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%w: VMESS decoded content is empty", ErrMalformed)
	}

	var link vmessLink
	if err := json.Unmarshal(decoded, &link); err != nil {
		return nil, fmt.Errorf("%w: failed to parse VMESS JSON: %v", ErrMalformed, err)
	}

	var missing []string
	if link.Add == "" {
		missing = append(missing, "add")
	}
	if link.ID == "" {
		missing = append(missing, "id")
	}
	port, portErr := parsePort(string(link.Port))
	if portErr != nil {
		missing = append(missing, "port ("+portErr.Error()+")")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: VMESS missing required fields: %v", ErrMalformed, missing)
	}

	alterID := 0
	if link.Aid != "" {
		if aid, err := strconv.Atoi(string(link.Aid)); err == nil {
			alterID = aid
		} else {
			debuglog.WarnLog("Translator: VMESS aid %q is not a number, using 0", link.Aid)
		}
	}

	security := link.Scy
	if security == "" {
		security = "auto"
	}

	network := link.Net
	if network == "" {
		network = "tcp"
	}

	stream := config.StreamSettings{
		Network:  network,
		Security: "none",
	}
	if link.TLS == "tls" {
		stream.Security = "tls"
	}
	if network == "ws" {
		stream.WSSettings = wsSettings(link.Path, link.Host)
	}

	return &config.Outbound{
		Tag:      tag,
		Protocol: config.ProtocolVMess,
		Settings: config.OutboundSettings{
			Vnext: []config.VNextServer{{
				Address: link.Add,
				Port:    port,
				Users: []config.User{{
					ID:       link.ID,
					AlterID:  &alterID,
					Security: security,
				}},
			}},
		},
		StreamSettings: stream,
	}, nil
}

func parseVLESS(uri, tag string) (*config.Outbound, error) {
	u, host, port, err := parseServerURL(uri, "vless")
	if err != nil {
		return nil, err
	}
	id := u.User.Username()
	if _, err := uuid.Parse(id); err != nil {
		debuglog.WarnLog("Translator: VLESS id %q is not a UUID, passing it through", id)
	}

	q := u.Query()
	network := q.Get("type")
	if vlessTCPFallback[network] {
		network = "tcp"
	}

	security := q.Get("security")
	if security == "" {
		security = "none"
	}

	stream := config.StreamSettings{
		Network:  network,
		Security: security,
	}
	if security != "none" {
		serverName := firstNonEmpty(q.Get("sni"), q.Get("host"), host)
		stream.TLSSettings = &config.TLSSettings{
			ServerName:    serverName,
			AllowInsecure: true,
		}
		debuglog.WarnLog("Translator: VLESS %s uses %s with certificate verification disabled", tag, security)
	}
	if network == "ws" {
		stream.WSSettings = wsSettings(q.Get("path"), q.Get("host"))
	}

	return &config.Outbound{
		Tag:      tag,
		Protocol: config.ProtocolVLESS,
		Settings: config.OutboundSettings{
			Vnext: []config.VNextServer{{
				Address: host,
				Port:    port,
				Users: []config.User{{
					ID:         id,
					Encryption: "none",
				}},
			}},
		},
		StreamSettings: stream,
	}, nil
}

func parseTrojan(uri, tag string) (*config.Outbound, error) {
	u, host, port, err := parseServerURL(uri, "trojan")
	if err != nil {
		return nil, err
	}
	return &config.Outbound{
		Tag:      tag,
		Protocol: config.ProtocolTrojan,
		Settings: config.OutboundSettings{
			Servers: []config.TrojanServer{{
				Address:  host,
				Port:     port,
				Password: u.User.Username(),
			}},
		},
		StreamSettings: config.StreamSettings{
			Network:  "tcp",
			Security: "tls",
		},
	}, nil
}

// parseServerURL parses <scheme>://<user>@host:port?query and validates the
// parts both vless and trojan require.
func parseServerURL(uri, scheme string) (*url.URL, string, int, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: failed to parse %s URI: %v", ErrMalformed, scheme, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, "", 0, fmt.Errorf("%w: invalid %s URI: missing userinfo", ErrMalformed, scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, "", 0, fmt.Errorf("%w: invalid %s URI: missing hostname", ErrMalformed, scheme)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return nil, "", 0, fmt.Errorf("%w: invalid %s URI: %v", ErrMalformed, scheme, err)
	}
	return u, host, port, nil
}

func parsePort(s string) (int, error) {
	if s == "" {
		return 0, errors.New("missing port")
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p <= 0 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}

func wsSettings(path, host string) *config.WSSettings {
	if path == "" {
		path = "/"
	}
	return &config.WSSettings{
		Path:    path,
		Headers: map[string]string{"Host": host},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// decodeBase64WithPadding tries URL-safe and standard alphabets, with and without padding.
func decodeBase64WithPadding(s string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(s); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.URLEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func preview(uri string) string {
	if len(uri) > 50 {
		return uri[:50] + "..."
	}
	return uri
}
