package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/txthinking/socks5"

	"v2ray-launcher/internal/debuglog"
	"v2ray-launcher/internal/platform"
	"v2ray-launcher/internal/process"
)

// socksTimeoutSec is the tcp/udp timeout handed to the SOCKS client, in seconds.
const socksTimeoutSec = 5

// CheckSOCKS opens a CONNECT to target through the SOCKS5 listener at addr.
func CheckSOCKS(ctx context.Context, addr, target string) error {
	client, err := socks5.NewClient(addr, "", "", socksTimeoutSec, socksTimeoutSec)
	if err != nil {
		return fmt.Errorf("socks client: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		conn, err := client.Dial("tcp", target)
		if err != nil {
			errCh <- err
			return
		}
		errCh <- conn.Close()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("socks connect %s via %s: %w", target, addr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FindStray lists engine processes that are running but not owned by c.
func (c *Controller) FindStray() ([]process.ProcessInfo, error) {
	procs, err := process.FindByName(platform.GetProcessNameForCheck())
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	owned := map[int]bool{}
	for _, inst := range []*Instance{c.Main, c.Test} {
		if pid := inst.PID(); pid != 0 {
			owned[pid] = true
		}
	}

	var stray []process.ProcessInfo
	for _, p := range procs {
		if !owned[p.PID] {
			stray = append(stray, p)
		}
	}
	return stray, nil
}

// KillStray kills every process returned by FindStray and reports how many were killed.
func (c *Controller) KillStray() (int, error) {
	stray, err := c.FindStray()
	if err != nil {
		return 0, err
	}
	killed := 0
	for _, p := range stray {
		if err := platform.KillProcessByPID(p.PID); err != nil {
			debuglog.WarnLog("KillStray: failed to kill PID %d (%s): %v", p.PID, p.Name, err)
			continue
		}
		killed++
	}
	if killed > 0 {
		// let the OS release the listening ports
		time.Sleep(200 * time.Millisecond)
	}
	return killed, nil
}
