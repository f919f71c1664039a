// Package latency probes endpoints through the test engine instance and
// ranks them by delay.
package latency

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"v2ray-launcher/core/config"
	"v2ray-launcher/core/config/subscription"
	"v2ray-launcher/core/engine"
	"v2ray-launcher/core/store"
	"v2ray-launcher/internal/constants"
	"v2ray-launcher/internal/debuglog"
)

// TestEngine is the part of the engine controller a probe drives.
type TestEngine interface {
	StopTest() engine.Status
	StartTest(configPath string) (engine.Status, error)
	TestRunning() bool
	CheckTestPortFree() error
	WaitTestListening(ctx context.Context, timeout time.Duration) error
	MeasureDelay(ctx context.Context) (time.Duration, error)
}

// ProberOptions configures the probe sequence. LockPath names the lock file
// shared by every launcher process; it is held for a whole probe. An empty
// LockPath disables it.
type ProberOptions struct {
	TestConfigPath string
	LockPath       string
	TestPort       int
	Settle         time.Duration
	ReadyTimeout   time.Duration
	MeasureRetries int
}

// Prober measures one endpoint at a time through the test instance.
type Prober struct {
	engine      TestEngine
	opts        ProberOptions
	writeConfig func(path string, cfg config.EngineConfig) error
	sleep       func(time.Duration)
	lock        locker

	mu sync.Mutex
}

type locker interface {
	Lock() error
	Unlock() error
}

func NewProber(eng TestEngine, opts ProberOptions) *Prober {
	if opts.TestPort == 0 {
		opts.TestPort = constants.DefaultTestPort
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}
	p := &Prober{
		engine:      eng,
		opts:        opts,
		writeConfig: config.WriteConfigFile,
		sleep:       time.Sleep,
	}
	if opts.LockPath != "" {
		p.lock = flock.New(opts.LockPath)
	}
	return p
}

// Probe runs the full sequence for ep: write the test config, restart the
// test instance, wait for its listener and measure. It never fails; the
// outcome is the returned Delay. Cancelling ctx does not interrupt a probe
// that has started. Probes of other launcher processes are excluded through
// the lock file; the test instance is stopped before the lock is released.
func (p *Prober) Probe(ctx context.Context, ep *store.Endpoint) store.Delay {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	d := p.lockedProbe(ctx, ep)
	probeDuration.Observe(time.Since(start).Seconds())
	probesTotal.WithLabelValues(outcomeLabel(d)).Inc()
	log := debuglog.WithComponent("latency")
	log.Debug().Int64("endpoint", ep.ID).Str("name", ep.DisplayName()).Str("delay", d.String()).Msg("probe finished")
	return d
}

func (p *Prober) lockedProbe(ctx context.Context, ep *store.Endpoint) store.Delay {
	if p.lock == nil {
		return p.probe(ctx, ep)
	}
	if err := p.lock.Lock(); err != nil {
		debuglog.WarnLog("Probe: endpoint %d: lock %s: %v", ep.ID, p.opts.LockPath, err)
		return store.DelayErrored
	}
	defer debuglog.RunAndLog("Probe: unlock "+p.opts.LockPath, p.lock.Unlock)
	return p.probe(ctx, ep)
}

func (p *Prober) probe(ctx context.Context, ep *store.Endpoint) store.Delay {
	outbound, ok := subscription.Translate(ep.URI, ep.ID)
	if !ok {
		return store.DelayErrored
	}

	cfg := config.TestConfig(*outbound, p.opts.TestPort)
	if err := p.writeConfig(p.opts.TestConfigPath, cfg); err != nil {
		debuglog.WarnLog("Probe: endpoint %d: write test config: %v", ep.ID, err)
		return store.DelayErrored
	}

	p.engine.StopTest()
	p.sleep(p.opts.Settle)

	// a listener left by someone else would answer for our engine
	if err := p.engine.CheckTestPortFree(); err != nil {
		debuglog.WarnLog("Probe: endpoint %d: %v", ep.ID, err)
		return store.DelayErrored
	}

	status, err := p.engine.StartTest(p.opts.TestConfigPath)
	if err != nil || status == engine.StatusFailed {
		debuglog.WarnLog("Probe: endpoint %d: start test engine: %s %v", ep.ID, status, err)
		return store.DelayErrored
	}
	defer p.engine.StopTest()

	p.sleep(p.opts.Settle)
	if err := p.engine.WaitTestListening(ctx, p.opts.ReadyTimeout); err != nil {
		debuglog.WarnLog("Probe: endpoint %d: %v", ep.ID, err)
		return store.DelayErrored
	}
	if !p.engine.TestRunning() {
		debuglog.WarnLog("Probe: endpoint %d: test engine exited before measuring", ep.ID)
		return store.DelayErrored
	}

	for attempt := 0; ; attempt++ {
		elapsed, err := p.engine.MeasureDelay(ctx)
		if err == nil {
			return store.MeasuredDelay(elapsed.Milliseconds())
		}
		if !errors.Is(err, engine.ErrListenerNotReady) {
			debuglog.DebugLog("Probe: endpoint %d: %v", ep.ID, err)
			return store.DelayUnreachable
		}
		if attempt >= p.opts.MeasureRetries {
			debuglog.WarnLog("Probe: endpoint %d: listener still not ready after %d retries: %v", ep.ID, attempt, err)
			return store.DelayErrored
		}
		p.sleep(p.opts.Settle)
	}
}
