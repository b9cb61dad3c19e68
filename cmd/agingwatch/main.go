package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-aging-risk-dashboard/internal/aging"
	"go-aging-risk-dashboard/internal/apiclient"
	"go-aging-risk-dashboard/internal/config"
	"go-aging-risk-dashboard/internal/export"
	"go-aging-risk-dashboard/internal/livesync"
	"go-aging-risk-dashboard/internal/tui"
)

var version = "dev"

type options struct {
	profilePath string
	seedPath    string
	metricsAddr string
	exportKind  string
	exportDir   string
	logFile     string
	plain       bool
	altScreen   bool
}

func main() {
	cfg := config.FromEnv()

	var opts options
	versionFlag := flag.Bool("version", false, "Print version information and exit")
	flag.StringVar(&opts.profilePath, "profile", cfg.WatchProfilePath, "YAML watch profile (api, sync, filter, live)")
	flag.StringVar(&opts.seedPath, "seed", "", "JSON store summary to show before the first fetch")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve controller metrics on this address (e.g. :9108)")
	flag.StringVar(&opts.exportKind, "export", "", "Export once and exit: stores, inventory or all")
	flag.StringVar(&opts.exportDir, "export-dir", cfg.ExportDir, "Directory for CSV exports when no S3 bucket is configured")
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to this file (default: stderr in plain mode, discarded in the terminal UI)")
	flag.BoolVar(&opts.plain, "plain", false, "Log one line per view change instead of the terminal UI")
	flag.BoolVar(&opts.altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("agingwatch %s\n", version)
		return
	}

	if err := run(cfg, opts); err != nil {
		fmt.Fprintln(os.Stderr, "agingwatch:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, opts options) error {
	var profile *config.WatchProfile
	if opts.profilePath != "" {
		p, err := config.LoadWatchProfile(opts.profilePath)
		if err != nil {
			return err
		}
		p.Apply(&cfg)
		profile = p
	}
	cfg.ExportDir = opts.exportDir

	logger, closeLog, err := newLogger(cfg, opts)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *livesync.Metrics
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = livesync.NewMetrics(reg)
		stopMetrics := serveMetrics(opts.metricsAddr, reg, logger)
		defer stopMetrics()
	}

	sink, err := export.NewSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("export sink: %w", err)
	}
	exporter := export.NewExporter(sink)

	client := apiclient.NewClient(cfg.WatchAPIBaseURL, cfg.WatchAPIToken, cfg.WatchFetchTimeout)
	session := &sessionRelay{}
	ctrlOpts := livesync.Options{
		Logger:         logger,
		Metrics:        metrics,
		Session:        session,
		Debounce:       cfg.WatchDebounce,
		FetchTimeout:   cfg.WatchFetchTimeout,
		PollInterval:   cfg.WatchPollInterval,
		InventoryLimit: cfg.WatchInventoryLimit,
	}
	logger.Info("starting watch console", "version", version, "api", client.BaseURL(), "live", profile.LiveEnabled())

	switch {
	case opts.exportKind != "":
		ctrl := livesync.New(client, nil, ctrlOpts)
		defer ctrl.Close()
		session.set(stop)
		return exportOnce(ctx, ctrl, exporter, profile, opts)
	case opts.plain:
		renderer := livesync.RendererFunc(func(v livesync.View) {
			logger.Info("view", "summary", tui.Summary(v))
		})
		ctrl := livesync.New(client, renderer, ctrlOpts)
		defer ctrl.Close()
		session.set(func() {
			logger.Error("session expired, stopping")
			stop()
		})
		if err := seed(ctrl, opts.seedPath); err != nil {
			return err
		}
		go start(ctx, ctrl, profile, opts.seedPath != "")
		<-ctx.Done()
		return nil
	default:
		renderer := tui.NewRenderer()
		ctrl := livesync.New(client, renderer, ctrlOpts)
		defer ctrl.Close()
		if err := seed(ctrl, opts.seedPath); err != nil {
			return err
		}

		model := tui.NewModel(ctx, ctrl, exporter, renderer)
		progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
		if opts.altScreen {
			progOpts = append(progOpts, tea.WithAltScreen())
		}
		prog := tea.NewProgram(model, progOpts...)
		// Send blocks until the program reads it, and the controller may be
		// mid-shutdown, so never send inline.
		session.set(func() { go prog.Send(tui.SessionExpired()) })

		go start(ctx, ctrl, profile, opts.seedPath != "")
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		if model.Expired() {
			return errors.New("session expired")
		}
		return nil
	}
}

// start loads the first snapshot and applies the profile.
func start(ctx context.Context, ctrl *livesync.Controller, profile *config.WatchProfile, seeded bool) {
	if !seeded {
		_ = ctrl.Refresh(ctx, false)
	}
	if profile != nil {
		if profile.Filter.AlertOnly {
			ctrl.ToggleAlertOnly()
		}
		if tags := profileTags(profile); profile.Filter.Query != "" || len(tags) > 0 {
			ctrl.SetFilter(ctx, profile.Filter.Query, tags...)
		}
	}
	if ctx.Err() == nil {
		ctrl.SetLive(ctx, profile.LiveEnabled())
	}
	if !profile.LiveEnabled() {
		_ = ctrl.RefreshHealth(ctx, false)
	}
}

func exportOnce(ctx context.Context, ctrl *livesync.Controller, exporter *export.Exporter, profile *config.WatchProfile, opts options) error {
	if err := ctrl.Refresh(ctx, false); err != nil {
		return err
	}
	if profile != nil {
		if profile.Filter.AlertOnly {
			ctrl.ToggleAlertOnly()
		}
		if tags := profileTags(profile); profile.Filter.Query != "" || len(tags) > 0 {
			ctrl.SetFilter(ctx, profile.Filter.Query, tags...)
		}
	}

	var jobs []func() (string, error)
	switch opts.exportKind {
	case "stores":
		jobs = append(jobs, func() (string, error) { return exporter.Stores(ctx, ctrl.VisibleStores()) })
	case "inventory":
		jobs = append(jobs, func() (string, error) { return exporter.Inventory(ctx, ctrl.InventoryResults()) })
	case "all":
		jobs = append(jobs,
			func() (string, error) { return exporter.Stores(ctx, ctrl.VisibleStores()) },
			func() (string, error) { return exporter.Inventory(ctx, ctrl.InventoryResults()) },
		)
	default:
		return fmt.Errorf("unknown -export %q, expected stores, inventory or all", opts.exportKind)
	}
	for _, job := range jobs {
		loc, err := job()
		if errors.Is(err, export.ErrNothingToExport) {
			fmt.Fprintln(os.Stderr, "nothing to export")
			continue
		}
		if err != nil {
			return err
		}
		fmt.Println(loc)
	}
	return nil
}

// sessionRelay lets the session handler be installed after the controller
// exists, since the bubbletea program needs the controller first.
type sessionRelay struct {
	mu sync.Mutex
	fn func()
}

func (r *sessionRelay) set(fn func()) {
	r.mu.Lock()
	r.fn = fn
	r.mu.Unlock()
}

func (r *sessionRelay) Unauthorized() {
	r.mu.Lock()
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func profileTags(p *config.WatchProfile) []aging.Status {
	var tags []aging.Status
	for _, raw := range p.Filter.Statuses {
		s, err := aging.ParseStatus(raw)
		if err != nil {
			continue
		}
		tags = append(tags, s)
	}
	return tags
}

func seed(ctrl *livesync.Controller, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var p apiclient.SummaryPayload
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}
	ctrl.Seed(&p)
	return nil
}

func newLogger(cfg config.Config, opts options) (*slog.Logger, func(), error) {
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return cfg.NewLogger(f), func() { _ = f.Close() }, nil
	}
	var w io.Writer = io.Discard
	if opts.plain || opts.exportKind != "" {
		w = os.Stderr
	}
	return cfg.NewLogger(w), func() {}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &nethttp.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
