package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"v2ray-launcher/core"
	"v2ray-launcher/core/config"
	"v2ray-launcher/core/engine"
	"v2ray-launcher/core/latency"
	"v2ray-launcher/core/services"
	"v2ray-launcher/core/store"
	"v2ray-launcher/internal/constants"
	"v2ray-launcher/internal/debuglog"
	"v2ray-launcher/internal/netcheck"
)

const usage = `Usage: v2ray-launcher [flags] <command> [args]

Commands:
  profiles                       list profiles
  create-profile <name>          create an empty profile
  import <name> <url>            import a subscription URL as a new profile
  import-file <name> <path>      import a subscription file as a new profile
  refresh <profile-id>           download a profile's subscription again
  delete-profile <profile-id>    delete a profile and its endpoints
  add <profile-id> <uri#name>    add one share link to a profile
  list <profile-id>              list endpoints ranked by delay
  test <profile-id>              probe every endpoint of a profile
  test-failed <profile-id>       probe endpoints without a measured delay
  test-one <endpoint-id>         probe one endpoint
  connect <endpoint-id>          route the main listener to an endpoint until interrupted
  disconnect                     kill engine processes left running
  show-config                    print the current main engine config
  stun                           show the public address seen by the STUN server
  version                        print the launcher and engine versions

Flags:
`

type cli struct {
	settings config.Settings
	fs       *services.FileService
	out      io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("v2ray-launcher", flag.ContinueOnError)
	home := flags.String("home", "", "application directory (default: user config dir, or $V2L_HOME)")
	logLevel := flags.String("log-level", "", "log level: off, error, warn, info, debug, trace")
	metricsAddr := flags.String("metrics", "", "serve Prometheus metrics on this address")
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	fs, err := services.NewFileService(*home)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	settings, err := config.LoadSettings(fs.SettingsPath)
	if err != nil {
		core.ShowConfigError(os.Stderr, fs.SettingsPath, err)
		return 1
	}
	if *logLevel != "" {
		settings.LogLevel = *logLevel
	}
	if *metricsAddr != "" {
		settings.MetricsAddr = *metricsAddr
	}

	if err := fs.OpenLogFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer fs.CloseLogFiles()
	debuglog.Init(io.MultiWriter(os.Stderr, fs.MainLogFile), settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.MetricsAddr != "" {
		shutdown := serveMetrics(settings.MetricsAddr)
		defer shutdown()
	}

	c := &cli{settings: settings, fs: fs, out: os.Stdout}
	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if err := c.dispatch(ctx, cmd, cmdArgs); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
			return 2
		}
		core.ShowError(os.Stderr, cmd, err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Fprintf(c.out, "v2ray-launcher %s\n", constants.AppVersion)
		if v, err := engine.InstalledVersion(c.settings.EnginePath); err != nil {
			fmt.Fprintf(c.out, "engine: %v\n", err)
		} else {
			fmt.Fprintf(c.out, "engine %s: %s\n", c.settings.EnginePath, v)
		}
		return nil
	case "show-config":
		return c.showConfig()
	case "stun":
		return c.stun(ctx)
	case "disconnect":
		return c.disconnect()
	}

	need := map[string]int{
		"profiles": 0, "create-profile": 1, "import": 2, "import-file": 2, "refresh": 1, "delete-profile": 1,
		"add": 2, "list": 1, "test": 1, "test-failed": 1, "test-one": 1, "connect": 1,
	}
	n, ok := need[cmd]
	if !ok || len(args) != n {
		return errUsage
	}

	ac, err := core.NewAppController(ctx, c.settings, c.fs)
	if err != nil {
		return err
	}
	ac.OnProgress = c.printProgress
	stopMain := cmd == "connect"
	defer ac.Close(stopMain)

	switch cmd {
	case "profiles":
		profiles, err := ac.Profiles(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSOURCE")
		for _, p := range profiles {
			src := "-"
			if p.URI != nil {
				src = *p.URI
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, src)
		}
		return tw.Flush()

	case "create-profile":
		p, err := ac.CreateProfile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "created profile %d\n", p.ID)
		return nil

	case "import":
		p, n, err := ac.ImportProfile(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "imported %d endpoint(s) into profile %d\n", n, p.ID)
		return nil

	case "import-file":
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		p, n, err := ac.ImportContent(ctx, args[0], data)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "imported %d endpoint(s) into profile %d\n", n, p.ID)
		return nil

	case "refresh":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		n, err := ac.RefreshProfile(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "profile %d now has %d endpoint(s)\n", id, n)
		return nil

	case "delete-profile":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return ac.DeleteProfile(ctx, id)

	case "add":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ep, err := ac.AddEndpoint(ctx, id, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "added endpoint %d\n", ep.ID)
		return nil

	case "list":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		eps, err := ac.ListEndpoints(ctx, id)
		if err != nil {
			return err
		}
		c.printRanking(eps)
		return nil

	case "test", "test-failed":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "probing through http://%s\n", ac.Engine.TestAddr())
		var res latency.Result
		if cmd == "test" {
			res, err = ac.TestAll(ctx, id)
		} else {
			res, err = ac.TestFailed(ctx, id)
		}
		if err != nil {
			return err
		}
		c.printRanking(res.Ranked)
		fmt.Fprintf(c.out, "tested %d: %d ok, %d failed", res.Tested, res.Success, res.Failure)
		if res.Cancelled {
			fmt.Fprint(c.out, " (cancelled)")
		}
		fmt.Fprintln(c.out)
		return nil

	case "test-one":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "probing through http://%s\n", ac.Engine.TestAddr())
		d, err := ac.TestOne(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "endpoint %d: %s\n", id, d)
		return nil

	case "connect":
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := ac.Connect(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "connected: socks5://%s:%d (Ctrl+C to disconnect)\n", constants.ListenHost, c.settings.MainPort)
		<-ctx.Done()
		ac.Disconnect()
		return nil
	}
	return errUsage
}

func (c *cli) printProgress(p latency.Progress) {
	fmt.Fprintf(c.out, "[%d/%d] %d %s: %s\n", p.Tested, p.Total, p.Endpoint.ID, p.Endpoint.DisplayName(), p.Endpoint.Delay)
}

func (c *cli) printRanking(eps []*store.Endpoint) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDELAY\tNAME")
	for _, ep := range eps {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", ep.ID, ep.Delay, ep.DisplayName())
	}
	_ = tw.Flush()
}

func (c *cli) showConfig() error {
	cfg, err := config.ReadEngineConfig(c.fs.ConfigPath)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = c.out.Write(data)
	return err
}

func (c *cli) stun(ctx context.Context) error {
	ip, err := netcheck.CheckSTUN(ctx, c.settings.STUNServer)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Your External IP: %s\n(determined via [UDP]%s)\n", ip, c.settings.STUNServer)
	return nil
}

func (c *cli) disconnect() error {
	eng := engine.NewController(engine.Options{EnginePath: c.settings.EnginePath, TestPort: c.settings.TestPort})
	killed, err := eng.KillStray()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "stopped %d engine process(es)\n", killed)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func serveMetrics(addr string) func() {
	latency.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", latency.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debuglog.WarnLog("metrics: %v", err)
		}
	}()
	debuglog.InfoLog("metrics: serving on http://%s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
