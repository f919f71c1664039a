// Package netcheck holds network diagnostics used by the launcher CLI.
package netcheck

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pion/stun"
)

// DefaultSTUNTimeout bounds a single binding request.
const DefaultSTUNTimeout = 5 * time.Second

// CheckSTUN performs a STUN binding request to determine the external address
// seen by serverAddr. Useful to confirm which egress is in use after connect.
func CheckSTUN(ctx context.Context, serverAddr string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSTUNTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", serverAddr)
	if err != nil {
		return "", fmt.Errorf("failed to dial STUN server: %w", err)
	}
	defer conn.Close()

	c, err := stun.NewClient(conn)
	if err != nil {
		return "", fmt.Errorf("failed to create STUN client: %w", err)
	}
	defer c.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	type result struct {
		addr stun.XORMappedAddress
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var res result
		doErr := c.Do(message, func(ev stun.Event) {
			if ev.Error != nil {
				res.err = ev.Error
				return
			}
			if err := res.addr.GetFrom(ev.Message); err != nil {
				res.err = err
			}
		})
		if doErr != nil && res.err == nil {
			res.err = doErr
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("STUN request failed: %w", res.err)
		}
		return res.addr.IP.String(), nil
	case <-ctx.Done():
		return "", fmt.Errorf("STUN request timed out: %w", ctx.Err())
	}
}
