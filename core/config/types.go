package config

import "strconv"

// Outbound protocols produced by the share-link translator.
const (
	ProtocolVMess  = "vmess"
	ProtocolVLESS  = "vless"
	ProtocolTrojan = "trojan"
)

// TagPrefix is prepended to the endpoint id to build an outbound tag.
// Routing rules address outbounds by this tag only.
const TagPrefix = "proxy-"

// TagFor returns the outbound tag of the endpoint with the given id.
func TagFor(id int64) string {
	return TagPrefix + strconv.FormatInt(id, 10)
}

// Outbound is the engine-side descriptor of one upstream proxy server.
// Exactly one of Settings.Vnext (vmess, vless) or Settings.Servers (trojan) is set.
type Outbound struct {
	Tag            string           `json:"tag"`
	Protocol       string           `json:"protocol"`
	Settings       OutboundSettings `json:"settings"`
	StreamSettings StreamSettings   `json:"streamSettings"`
}

type OutboundSettings struct {
	Vnext   []VNextServer  `json:"vnext,omitempty"`
	Servers []TrojanServer `json:"servers,omitempty"`
}

type VNextServer struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Users   []User `json:"users"`
}

// User carries vmess (AlterID, Security) or vless (Encryption) credentials.
type User struct {
	ID         string `json:"id"`
	AlterID    *int   `json:"alterId,omitempty"`
	Security   string `json:"security,omitempty"`
	Encryption string `json:"encryption,omitempty"`
}

type TrojanServer struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Password string `json:"password"`
}

type StreamSettings struct {
	Network     string       `json:"network"`
	Security    string       `json:"security"`
	TLSSettings *TLSSettings `json:"tlsSettings,omitempty"`
	WSSettings  *WSSettings  `json:"wsSettings,omitempty"`
}

type TLSSettings struct {
	ServerName    string `json:"serverName"`
	AllowInsecure bool   `json:"allowInsecure"`
}

type WSSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

// ListenerProtocol is the protocol of the local inbound listener.
type ListenerProtocol string

const (
	ListenerSOCKS ListenerProtocol = "socks"
	ListenerHTTP  ListenerProtocol = "http"
)

// EngineConfig is a complete engine configuration: one inbound, the outbounds,
// and one routing rule binding the inbound to a single outbound tag.
type EngineConfig struct {
	Inbounds  []Inbound  `json:"inbounds"`
	Outbounds []Outbound `json:"outbounds"`
	Routing   Routing    `json:"routing"`
}

type Inbound struct {
	Tag      string           `json:"tag"`
	Port     int              `json:"port"`
	Listen   string           `json:"listen"`
	Protocol ListenerProtocol `json:"protocol"`
	Settings *InboundSettings `json:"settings,omitempty"`
}

type InboundSettings struct {
	Auth string `json:"auth"`
	UDP  bool   `json:"udp"`
}

type Routing struct {
	Rules []RoutingRule `json:"rules"`
}

type RoutingRule struct {
	Type        string   `json:"type"`
	InboundTag  []string `json:"inboundTag"`
	OutboundTag string   `json:"outboundTag"`
}
