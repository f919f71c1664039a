package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"v2ray-launcher/core/config/subscription"
	"v2ray-launcher/core/engine"
	"v2ray-launcher/core/store"
	"v2ray-launcher/internal/debuglog"
)

// UserMessage turns an operation error into a short message for the terminal.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNotFound):
		return fmt.Sprintf("Not found: %v", err)
	case errors.Is(err, store.ErrProfileExists):
		return "A profile with this name already exists."
	case errors.Is(err, ErrEndpointUnusable), errors.Is(err, ErrNotALink),
		errors.Is(err, subscription.ErrUnsupportedScheme), errors.Is(err, subscription.ErrShadowsocksSkipped):
		return fmt.Sprintf("%v\n\nOnly vmess://, vless:// and trojan:// links can be used.", err)
	case errors.Is(err, engine.ErrListenerNotReady):
		return fmt.Sprintf("%v\n\nThe engine did not open its local port. Check the engine log.", err)
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case IsNetworkError(err):
		return NetworkErrorMessage(err)
	default:
		return err.Error()
	}
}

// ShowError prints a user-facing message for a failed command to w and logs
// the underlying error.
func ShowError(w io.Writer, op string, err error) {
	if err == nil {
		return
	}
	debuglog.ErrorLog("%s: %v", op, err)
	fmt.Fprintf(w, "%s failed: %s\n", op, UserMessage(err))
}

// ShowStartupError shows an error when the engine fails to start
func (ac *AppController) ShowStartupError(err error) {
	message := fmt.Sprintf("Failed to start the engine:\n\n%s\n\nPlease check:\n1. engine_path points to a v2ray/xray binary (%s)\n2. config.json is valid\n3. Check logs for details",
		err.Error(), ac.Settings.EnginePath)
	debuglog.ErrorLog("StartupError: %v", err)
	if ac.Stderr != nil {
		fmt.Fprintln(ac.Stderr, message)
	}
}

// ShowConfigError shows an error when launcher.json cannot be used
func ShowConfigError(w io.Writer, path string, err error) {
	debuglog.ErrorLog("ConfigError: %s: %v", path, err)
	fmt.Fprintf(w, "Configuration Error in %s:\n\n%s\n\nPlease check launcher.json syntax and required fields.\n", path, err)
}
