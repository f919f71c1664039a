package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"v2ray-launcher/internal/constants"
)

// ErrTestPortBusy means another process listens on the test address.
var ErrTestPortBusy = errors.New("test port in use by another process")

// Options configures a Controller.
type Options struct {
	EnginePath     string
	TestPort       int
	MeasureURL     string
	MeasureTimeout time.Duration
	MainLog        io.Writer
	TestLog        io.Writer
}

// Controller holds the main and test engine instances. They are independent:
// probing never touches the main instance.
type Controller struct {
	Main *Instance
	Test *Instance

	testAddr string
	measurer *Measurer
}

func NewController(opts Options) *Controller {
	if opts.TestPort == 0 {
		opts.TestPort = constants.DefaultTestPort
	}
	if opts.MeasureURL == "" {
		opts.MeasureURL = constants.DefaultMeasureURL
	}
	if opts.MeasureTimeout <= 0 {
		opts.MeasureTimeout = 5 * time.Second
	}
	testAddr := net.JoinHostPort(constants.ListenHost, strconv.Itoa(opts.TestPort))

	return &Controller{
		Main:     NewInstance("main", opts.EnginePath, opts.MainLog),
		Test:     NewInstance("test", opts.EnginePath, opts.TestLog),
		testAddr: testAddr,
		measurer: NewMeasurer(MeasureOptions{
			URL:       opts.MeasureURL,
			ProxyAddr: testAddr,
			Timeout:   opts.MeasureTimeout,
		}),
	}
}

// TestAddr is the host:port of the test instance HTTP listener.
func (c *Controller) TestAddr() string { return c.testAddr }

func (c *Controller) StartTest(configPath string) (Status, error) { return c.Test.Start(configPath) }

func (c *Controller) StopTest() Status { return c.Test.Stop() }

// TestRunning reports whether the test instance started by c is still alive.
func (c *Controller) TestRunning() bool { return c.Test.Running() }

// CheckTestPortFree fails with ErrTestPortBusy when the test address cannot be
// bound, e.g. because an engine not started by c holds it.
func (c *Controller) CheckTestPortFree() error {
	ln, err := net.Listen("tcp", c.testAddr)
	if err == nil {
		return ln.Close()
	}
	detail := err.Error()
	if stray, serr := c.FindStray(); serr == nil && len(stray) > 0 {
		detail += fmt.Sprintf("; engine PID %d was not started by this launcher", stray[0].PID)
	}
	return fmt.Errorf("%w: %s: %s", ErrTestPortBusy, c.testAddr, detail)
}

// MeasureDelay measures through the test listener.
func (c *Controller) MeasureDelay(ctx context.Context) (time.Duration, error) {
	return c.measurer.MeasureDelay(ctx)
}

// WaitTestListening waits for the test listener to accept connections.
func (c *Controller) WaitTestListening(ctx context.Context, timeout time.Duration) error {
	return WaitListening(ctx, c.testAddr, timeout)
}

// Shutdown stops both instances.
func (c *Controller) Shutdown() {
	c.Test.Stop()
	c.Main.Stop()
}
