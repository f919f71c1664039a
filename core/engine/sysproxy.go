package engine

import "v2ray-launcher/internal/debuglog"

// SystemProxy points the operating system proxy settings at a local listener.
type SystemProxy interface {
	Enable(host string, port int) error
	Disable() error
}

// NoopSystemProxy only logs; the launcher does not change OS settings itself.
type NoopSystemProxy struct{}

func (NoopSystemProxy) Enable(host string, port int) error {
	debuglog.InfoLog("SystemProxy: point your system SOCKS proxy at %s:%d", host, port)
	return nil
}

func (NoopSystemProxy) Disable() error {
	debuglog.InfoLog("SystemProxy: system proxy left unchanged")
	return nil
}
