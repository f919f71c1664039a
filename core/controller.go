// Package core wires the store, the engine instances and the latency prober
// into the operations exposed by the launcher command line.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"v2ray-launcher/core/config"
	"v2ray-launcher/core/config/subscription"
	"v2ray-launcher/core/engine"
	"v2ray-launcher/core/latency"
	"v2ray-launcher/core/services"
	"v2ray-launcher/core/store"
	"v2ray-launcher/internal/constants"
	"v2ray-launcher/internal/debuglog"
)

// healthTarget is dialed through the main listener after connect.
const healthTarget = "www.google.com:443"

// ErrEndpointUnusable is returned by Connect when the chosen endpoint does not translate.
var ErrEndpointUnusable = errors.New("endpoint link cannot be used")

// ErrNotALink is returned by AddEndpoint for input that is not a share link.
var ErrNotALink = errors.New("not a share link")

type profileStore interface {
	Create(ctx context.Context, name string, uri *string) (store.Profile, error)
	Get(ctx context.Context, id int64) (store.Profile, error)
	GetByName(ctx context.Context, name string) (store.Profile, error)
	List(ctx context.Context) ([]store.Profile, error)
	Delete(ctx context.Context, id int64) error
}

type endpointStore interface {
	Insert(ctx context.Context, profileID int64, name, uri string) (*store.Endpoint, error)
	Get(ctx context.Context, id int64) (*store.Endpoint, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*store.Endpoint, error)
	UpdateDelay(ctx context.Context, id int64, d store.Delay) error
	DeleteByProfile(ctx context.Context, profileID int64) (int64, error)
}

type mainEngine interface {
	Restart(configPath string) (engine.Status, error)
	Stop() engine.Status
}

// AppController - the main structure encapsulating application state and logic.
type AppController struct {
	Settings    config.Settings
	FileService *services.FileService
	Engine      *engine.Controller
	SystemProxy engine.SystemProxy

	// OnProgress, when set, receives batch progress.
	OnProgress func(latency.Progress)
	// Stderr receives user-facing error messages.
	Stderr io.Writer

	profiles  profileStore
	endpoints endpointStore
	main      mainEngine
	prober    latency.Probe
	db        *store.PgxDB

	connectCheck func(ctx context.Context) error
}

// NewAppController opens the database, ensures the schema and prepares both
// engine instances. Log files are opened under the app config dir.
func NewAppController(ctx context.Context, settings config.Settings, fs *services.FileService) (*AppController, error) {
	db, err := store.Open(ctx, settings.DatabaseURL, settings.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("NewAppController: %w", err)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewAppController: %w", err)
	}

	var mainLog, testLog io.Writer
	if fs.MainEngineLogFile != nil {
		mainLog = fs.MainEngineLogFile
	}
	if fs.TestEngineLogFile != nil {
		testLog = fs.TestEngineLogFile
	}

	eng := engine.NewController(engine.Options{
		EnginePath:     settings.EnginePath,
		TestPort:       settings.TestPort,
		MeasureURL:     settings.MeasureURL,
		MeasureTimeout: settings.MeasureTimeout(),
		MainLog:        mainLog,
		TestLog:        testLog,
	})

	ac := &AppController{
		Settings:    settings,
		FileService: fs,
		Engine:      eng,
		SystemProxy: engine.NoopSystemProxy{},
		Stderr:      os.Stderr,
		profiles:    store.NewProfiles(db),
		endpoints:   store.NewEndpoints(db),
		main:        eng.Main,
		db:          db,
		prober: latency.NewProber(eng, latency.ProberOptions{
			TestConfigPath: fs.TestConfigPath,
			LockPath:       fs.TestLockPath,
			TestPort:       settings.TestPort,
			Settle:         settings.Settle(),
			ReadyTimeout:   settings.ReadyTimeout(),
			MeasureRetries: settings.MeasureRetries,
		}),
	}
	ac.connectCheck = ac.checkMainListener
	return ac, nil
}

// CreateProfile adds an empty profile for manually added links.
func (ac *AppController) CreateProfile(ctx context.Context, name string) (store.Profile, error) {
	return ac.profiles.Create(ctx, name, nil)
}

// Profiles lists all profiles.
func (ac *AppController) Profiles(ctx context.Context) ([]store.Profile, error) {
	return ac.profiles.List(ctx)
}

// DeleteProfile removes a profile with its endpoints.
func (ac *AppController) DeleteProfile(ctx context.Context, profileID int64) error {
	return ac.profiles.Delete(ctx, profileID)
}

// ImportProfile downloads a subscription and stores it as a new profile.
// Every non-empty line becomes an endpoint, supported or not.
func (ac *AppController) ImportProfile(ctx context.Context, name, subscriptionURL string) (store.Profile, int, error) {
	content, err := subscription.FetchSubscription(ctx, subscriptionURL)
	if err != nil {
		return store.Profile{}, 0, err
	}
	return ac.importContent(ctx, name, &subscriptionURL, content)
}

// ImportContent stores already decoded subscription content as a new profile.
func (ac *AppController) ImportContent(ctx context.Context, name string, content []byte) (store.Profile, int, error) {
	decoded, err := subscription.DecodeSubscriptionContent(content)
	if err != nil {
		return store.Profile{}, 0, err
	}
	return ac.importContent(ctx, name, nil, decoded)
}

func (ac *AppController) importContent(ctx context.Context, name string, uri *string, content []byte) (store.Profile, int, error) {
	links := subscription.ParseSubscription(content)
	if len(links) == 0 {
		return store.Profile{}, 0, errSubscriptionEmpty
	}

	profile, err := ac.profiles.Create(ctx, name, uri)
	if err != nil {
		return store.Profile{}, 0, err
	}

	added, err := ac.insertLinks(ctx, profile.ID, links)
	if err != nil {
		return profile, added, err
	}
	debuglog.InfoLog("ImportProfile: profile %q (id %d): %d endpoint(s)", profile.Name, profile.ID, added)
	return profile, added, nil
}

var errSubscriptionEmpty = errors.New("subscription contains no links")

func (ac *AppController) insertLinks(ctx context.Context, profileID int64, links []subscription.ShareLink) (int, error) {
	added := 0
	for _, l := range links {
		if _, err := ac.endpoints.Insert(ctx, profileID, l.Name, l.URI); err != nil {
			return added, fmt.Errorf("store endpoint %d of %d: %w", added+1, len(links), err)
		}
		added++
	}
	return added, nil
}

// RefreshProfile downloads the subscription a profile was imported from again
// and replaces its endpoints. Measured delays are dropped with them.
func (ac *AppController) RefreshProfile(ctx context.Context, profileID int64) (int, error) {
	profile, err := ac.profiles.Get(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("profile %d: %w", profileID, err)
	}
	if profile.URI == nil {
		return 0, fmt.Errorf("profile %d was not imported from a subscription", profileID)
	}

	content, err := subscription.FetchSubscription(ctx, *profile.URI)
	if err != nil {
		return 0, err
	}
	links := subscription.ParseSubscription(content)
	if len(links) == 0 {
		return 0, errSubscriptionEmpty
	}

	removed, err := ac.endpoints.DeleteByProfile(ctx, profileID)
	if err != nil {
		return 0, err
	}
	added, err := ac.insertLinks(ctx, profileID, links)
	if err != nil {
		return added, err
	}
	debuglog.InfoLog("RefreshProfile: profile %q (id %d): %d endpoint(s) replaced by %d", profile.Name, profile.ID, removed, added)
	return added, nil
}

// AddEndpoint stores one "uri#name" line in an existing profile.
func (ac *AppController) AddEndpoint(ctx context.Context, profileID int64, line string) (*store.Endpoint, error) {
	uri, name := subscription.ParseShareLine(line)
	if uri == "" {
		return nil, errors.New("empty link")
	}
	if !subscription.IsDirectLink(uri) {
		return nil, fmt.Errorf("%.40q: %w", uri, ErrNotALink)
	}
	if _, err := ac.profiles.Get(ctx, profileID); err != nil {
		return nil, fmt.Errorf("profile %d: %w", profileID, err)
	}
	return ac.endpoints.Insert(ctx, profileID, name, uri)
}

// ListEndpoints returns the endpoints of a profile ranked by delay.
func (ac *AppController) ListEndpoints(ctx context.Context, profileID int64) ([]*store.Endpoint, error) {
	eps, err := ac.endpoints.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	latency.SortByDelay(eps)
	return eps, nil
}

// Connect writes the main config with every usable outbound of the endpoint's
// profile, routes the main listener to the endpoint and restarts the main engine.
func (ac *AppController) Connect(ctx context.Context, endpointID int64) error {
	target, err := ac.endpoints.Get(ctx, endpointID)
	if err != nil {
		return fmt.Errorf("endpoint %d: %w", endpointID, err)
	}
	if _, ok := subscription.Translate(target.URI, target.ID); !ok {
		return fmt.Errorf("endpoint %d: %w", endpointID, ErrEndpointUnusable)
	}

	eps, err := ac.endpoints.ListByProfile(ctx, target.ProfileID)
	if err != nil {
		return err
	}
	outbounds := make([]config.Outbound, 0, len(eps))
	for _, ep := range eps {
		if ob, ok := subscription.Translate(ep.URI, ep.ID); ok {
			outbounds = append(outbounds, *ob)
		}
	}

	cfg := config.MainConfig(outbounds, config.TagFor(target.ID), ac.Settings.MainPort)
	if err := config.WriteConfigFile(ac.FileService.ConfigPath, cfg); err != nil {
		return err
	}

	if ac.Engine != nil {
		if stray, err := ac.Engine.FindStray(); err != nil {
			debuglog.WarnLog("Connect: %v", err)
		} else if len(stray) > 0 {
			debuglog.WarnLog("Connect: %d engine process(es) not started by the launcher are running (first PID %d)", len(stray), stray[0].PID)
		}
	}

	status, err := ac.main.Restart(ac.FileService.ConfigPath)
	if err != nil {
		ac.ShowStartupError(err)
		return err
	}
	debuglog.InfoLog("Connect: main engine %s, routing to %s (%s)", status, config.TagFor(target.ID), target.DisplayName())

	if err := ac.SystemProxy.Enable(constants.ListenHost, ac.Settings.MainPort); err != nil {
		debuglog.WarnLog("Connect: system proxy: %v", err)
	}

	if ac.connectCheck != nil {
		if err := ac.connectCheck(ctx); err != nil {
			debuglog.WarnLog("Connect: health check failed: %v", err)
		}
	}
	return nil
}

func (ac *AppController) mainAddr() string {
	return net.JoinHostPort(constants.ListenHost, strconv.Itoa(ac.Settings.MainPort))
}

func (ac *AppController) checkMainListener(ctx context.Context) error {
	if err := engine.WaitListening(ctx, ac.mainAddr(), ac.Settings.ReadyTimeout()); err != nil {
		return err
	}
	return engine.CheckSOCKS(ctx, ac.mainAddr(), healthTarget)
}

// Disconnect stops the main engine.
func (ac *AppController) Disconnect() engine.Status {
	status := ac.main.Stop()
	if err := ac.SystemProxy.Disable(); err != nil {
		debuglog.WarnLog("Disconnect: system proxy: %v", err)
	}
	return status
}

// TestAll probes every endpoint of a profile.
func (ac *AppController) TestAll(ctx context.Context, profileID int64) (latency.Result, error) {
	return ac.test(ctx, profileID, latency.SelectAll)
}

// TestFailed probes the endpoints of a profile that have no measured delay.
func (ac *AppController) TestFailed(ctx context.Context, profileID int64) (latency.Result, error) {
	return ac.test(ctx, profileID, latency.SelectFailed)
}

func (ac *AppController) test(ctx context.Context, profileID int64, selectFn func([]*store.Endpoint) []*store.Endpoint) (latency.Result, error) {
	eps, err := ac.endpoints.ListByProfile(ctx, profileID)
	if err != nil {
		return latency.Result{}, err
	}
	return latency.RunBatch(ctx, selectFn(eps), latency.BatchOptions{
		Prober:     ac.prober,
		Writer:     ac.endpoints,
		OnProgress: ac.OnProgress,
		WorkingSet: eps,
	}), nil
}

// TestOne probes a single endpoint and stores the result.
func (ac *AppController) TestOne(ctx context.Context, endpointID int64) (store.Delay, error) {
	ep, err := ac.endpoints.Get(ctx, endpointID)
	if err != nil {
		return store.DelayUntested, fmt.Errorf("endpoint %d: %w", endpointID, err)
	}
	d := ac.prober.Probe(ctx, ep)
	if err := ac.endpoints.UpdateDelay(context.WithoutCancel(ctx), ep.ID, d); err != nil {
		return d, err
	}
	return d, nil
}

// Close stops the test engine, closes the database and the log files. The main
// engine keeps running unless stopMain is set.
func (ac *AppController) Close(stopMain bool) {
	if ac.Engine != nil {
		ac.Engine.StopTest()
		if stopMain {
			ac.Engine.Main.Stop()
		}
	}
	if ac.db != nil {
		ac.db.Close()
	}
	if ac.FileService != nil {
		ac.FileService.CloseLogFiles()
	}
}
