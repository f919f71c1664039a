package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"v2ray-launcher/internal/constants"
)

// Assemble builds an engine configuration with a single inbound listening on
// 127.0.0.1:port and a single rule sending all of its traffic to targetTag.
//
// targetTag is not checked against outbounds: callers derive it from the same
// endpoint id as the outbound they route to (see TagFor).
func Assemble(outbounds []Outbound, targetTag string, port int, protocol ListenerProtocol) EngineConfig {
	inbound := Inbound{
		Tag:      string(protocol) + "-proxy1",
		Port:     port,
		Listen:   constants.ListenHost,
		Protocol: protocol,
	}
	if protocol == ListenerSOCKS {
		inbound.Settings = &InboundSettings{Auth: "noauth", UDP: true}
	}

	if outbounds == nil {
		outbounds = []Outbound{}
	}

	return EngineConfig{
		Inbounds:  []Inbound{inbound},
		Outbounds: outbounds,
		Routing: Routing{
			Rules: []RoutingRule{{
				Type:        "field",
				InboundTag:  []string{inbound.Tag},
				OutboundTag: targetTag,
			}},
		},
	}
}

// MainConfig is the live-traffic configuration: a socks listener routed to targetTag.
func MainConfig(outbounds []Outbound, targetTag string, port int) EngineConfig {
	if port <= 0 {
		port = constants.DefaultMainPort
	}
	return Assemble(outbounds, targetTag, port, ListenerSOCKS)
}

// TestConfig is the probe configuration: an http listener routed to the single candidate.
func TestConfig(candidate Outbound, port int) EngineConfig {
	if port <= 0 {
		port = constants.DefaultTestPort
	}
	return Assemble([]Outbound{candidate}, candidate.Tag, port, ListenerHTTP)
}

// Marshal serializes cfg as two-space indented JSON.
func Marshal(cfg EngineConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal engine config: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteConfigFile persists cfg to path. The file is written to a temporary
// sibling first and renamed, so the engine never reads a half-written config.
func WriteConfigFile(path string, cfg EngineConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config %s: %w", path, err)
	}
	return nil
}
