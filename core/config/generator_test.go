package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleOutbounds() []Outbound {
	return []Outbound{
		{
			Tag:      TagFor(3),
			Protocol: ProtocolTrojan,
			Settings: OutboundSettings{Servers: []TrojanServer{{Address: "a.example", Port: 443, Password: "pw"}}},
			StreamSettings: StreamSettings{
				Network:  "tcp",
				Security: "tls",
			},
		},
		{
			Tag:      TagFor(4),
			Protocol: ProtocolTrojan,
			Settings: OutboundSettings{Servers: []TrojanServer{{Address: "b.example", Port: 443, Password: "pw"}}},
			StreamSettings: StreamSettings{
				Network:  "tcp",
				Security: "tls",
			},
		},
	}
}

// TestAssemble_SOCKS checks the main-shaped configuration.
func TestAssemble_SOCKS(t *testing.T) {
	cfg := Assemble(sampleOutbounds(), "proxy-3", 1080, ListenerSOCKS)

	if len(cfg.Inbounds) != 1 {
		t.Fatalf("Expected exactly one inbound, got %d", len(cfg.Inbounds))
	}
	in := cfg.Inbounds[0]
	if in.Port != 1080 || in.Listen != "127.0.0.1" || in.Protocol != ListenerSOCKS {
		t.Errorf("Unexpected inbound: %+v", in)
	}
	if in.Tag != "socks-proxy1" {
		t.Errorf("Expected inbound tag 'socks-proxy1', got %q", in.Tag)
	}
	if in.Settings == nil || in.Settings.Auth != "noauth" || !in.Settings.UDP {
		t.Errorf("Expected settings {noauth, udp}, got %+v", in.Settings)
	}

	if len(cfg.Routing.Rules) != 1 {
		t.Fatalf("Expected exactly one routing rule, got %d", len(cfg.Routing.Rules))
	}
	rule := cfg.Routing.Rules[0]
	if rule.OutboundTag != "proxy-3" {
		t.Errorf("Expected outboundTag 'proxy-3', got %q", rule.OutboundTag)
	}
	if rule.Type != "field" || len(rule.InboundTag) != 1 || rule.InboundTag[0] != in.Tag {
		t.Errorf("Rule does not bind the inbound: %+v", rule)
	}
	if len(cfg.Outbounds) != 2 {
		t.Errorf("Expected outbounds to be passed through, got %d", len(cfg.Outbounds))
	}
}

func TestAssemble_HTTPHasNoSettings(t *testing.T) {
	cfg := Assemble(nil, "proxy-1", 1081, ListenerHTTP)
	in := cfg.Inbounds[0]
	if in.Settings != nil {
		t.Errorf("HTTP inbound must carry no settings, got %+v", in.Settings)
	}
	if in.Tag != "http-proxy1" {
		t.Errorf("Expected inbound tag 'http-proxy1', got %q", in.Tag)
	}

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), `"settings": null`) {
		t.Errorf("settings must be omitted for http inbound:\n%s", data)
	}
	if !strings.Contains(string(data), `"outbounds": []`) {
		t.Errorf("nil outbounds should serialize as an empty array:\n%s", data)
	}
}

func TestMainAndTestConfig(t *testing.T) {
	obs := sampleOutbounds()

	main := MainConfig(obs, obs[1].Tag, 0)
	if main.Inbounds[0].Port != 1080 || main.Inbounds[0].Protocol != ListenerSOCKS {
		t.Errorf("Main config should default to socks:1080, got %+v", main.Inbounds[0])
	}

	test := TestConfig(obs[0], 0)
	if test.Inbounds[0].Port != 1081 || test.Inbounds[0].Protocol != ListenerHTTP {
		t.Errorf("Test config should default to http:1081, got %+v", test.Inbounds[0])
	}
	if len(test.Outbounds) != 1 || test.Routing.Rules[0].OutboundTag != obs[0].Tag {
		t.Errorf("Test config should route to the single candidate, got %+v", test)
	}
}

func TestMarshal_TwoSpaceIndent(t *testing.T) {
	data, err := Marshal(Assemble(sampleOutbounds()[:1], "proxy-3", 1080, ListenerSOCKS))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "{\n  \"inbounds\": [\n    {") {
		t.Errorf("Unexpected indentation:\n%s", data)
	}

	var back EngineConfig
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
}

func TestWriteConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := MainConfig(sampleOutbounds(), "proxy-4", 1080)
	if err := WriteConfigFile(path, cfg); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	got, err := ReadEngineConfig(path)
	if err != nil {
		t.Fatalf("ReadEngineConfig failed: %v", err)
	}
	if got.Routing.Rules[0].OutboundTag != "proxy-4" {
		t.Errorf("Round trip lost routing target: %+v", got.Routing)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the config file, found %d entries (temp file left behind?)", len(entries))
	}
}

func TestTagFor(t *testing.T) {
	if got := TagFor(42); got != "proxy-42" {
		t.Errorf("TagFor(42) = %q", got)
	}
}
