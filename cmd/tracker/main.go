package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tnicklin/leetcode_tracker/clock"
	"github.com/tnicklin/leetcode_tracker/config"
	"github.com/tnicklin/leetcode_tracker/discord"
	"github.com/tnicklin/leetcode_tracker/input"
	"github.com/tnicklin/leetcode_tracker/leetcode"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/poller"
	"github.com/tnicklin/leetcode_tracker/store"
	"github.com/tnicklin/leetcode_tracker/telemetry"
)

type flags struct {
	configFiles string
	users       string
	usersFile   string
	format      string
	out         string
	top         int
	chart       bool
	publish     bool
	serve       bool
	history     int
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	fs.StringVar(&f.configFiles, "config", strings.Join(config.DefaultFiles, ","), "comma separated config files, later files override earlier ones")
	fs.StringVar(&f.users, "users", "", "comma separated LeetCode usernames")
	fs.StringVar(&f.usersFile, "users-file", "", "file with one username per line")
	fs.StringVar(&f.format, "format", "", "export format: csv, json or yaml")
	fs.StringVar(&f.out, "out", "", "export file name without extension")
	fs.IntVar(&f.top, "top", 0, "entries per ranking")
	fs.BoolVar(&f.chart, "chart", false, "draw a bar chart of rating and problems solved")
	fs.BoolVar(&f.publish, "publish", false, "post the summary to the Discord report channel")
	fs.BoolVar(&f.serve, "serve", false, "run the Discord bot until interrupted")
	fs.IntVar(&f.history, "history", 0, "print the last N stored runs and exit")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func main() {
	params, err := build(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if err = run(params); err != nil {
		log.Fatal(err)
	}
}

type runParams struct {
	Flags   flags
	Config  *config.AppConfig
	Logger  logger.Logger
	Metrics *metrics.Manager
	Clock   clock.Clock
	Tracker *leetcode.Tracker
	Store   *store.SQLiteStore
	Discord discord.Discord
}

func build(args []string) (runParams, error) {
	f, err := parseFlags(args)
	if err != nil {
		return runParams{}, err
	}

	cfg, err := config.LoadWithDefaults(input.ParseList(f.configFiles)...)
	if err != nil {
		return runParams{}, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, f)

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return runParams{}, fmt.Errorf("initialize logger: %w", err)
	}

	clk := clock.System()
	m := metrics.NewManager(metrics.WithNamespace(cfg.Metrics.Namespace))

	tracker := leetcode.New(leetcode.Params{
		Config:  cfg.LeetCode,
		Logger:  appLogger,
		Metrics: m,
		Clock:   clk,
	})

	st := store.NewSQLiteStore(store.Params{
		Config: cfg.Store,
		Logger: appLogger,
		Clock:  clk,
	})

	var discordClient discord.Discord
	if f.serve || f.publish {
		if !cfg.Discord.Enabled() {
			return runParams{}, errors.New("DISCORD_TOKEN environment variable or discord.token config required")
		}
		discordClient, err = discord.New(discord.Params{
			Config: cfg.Discord,
			Runner: tracker,
			Store:  st,
			Clock:  clk,
			Logger: appLogger,
		})
		if err != nil {
			return runParams{}, err
		}
	}

	return runParams{
		Flags:   f,
		Config:  cfg,
		Logger:  appLogger,
		Metrics: m,
		Clock:   clk,
		Tracker: tracker,
		Store:   st,
		Discord: discordClient,
	}, nil
}

func applyFlags(cfg *config.AppConfig, f flags) {
	if f.format != "" {
		cfg.Export.Format = f.format
	}
	if f.out != "" {
		cfg.Export.Name = f.out
	}
	if f.top > 0 {
		cfg.Report.TopN = f.top
	}
	if f.chart {
		cfg.Report.Chart = true
	}
}

// run starts all components and runs the application until it is done or
// interrupted.
func run(p runParams) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer p.Logger.Sync()

	shutdownTracing, err := telemetry.Setup(ctx, p.Config.Telemetry)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			p.Logger.WarnW("shutdown tracing", "error", err)
		}
	}()

	if err := p.Store.Open(ctx); err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := p.Store.Shutdown(shutdownCtx); err != nil {
			p.Logger.ErrorW("shutdown run history", "error", err)
		}
	}()

	if err := p.Store.RestoreFromDisk(ctx, p.Config.Store.Path); err != nil {
		p.Logger.WarnW("restore from disk", "error", err)
	}

	switch {
	case p.Flags.history > 0:
		return printHistory(ctx, os.Stdout, p.Store, p.Flags.history)
	case p.Flags.serve:
		return serve(ctx, p)
	default:
		return runOnce(ctx, p)
	}
}

func runOnce(ctx context.Context, p runParams) error {
	names, invalid, err := collectNames(p.Flags, p.Config)
	if err != nil {
		return err
	}

	b := batch{
		Runner:    p.Tracker,
		Store:     p.Store,
		Publisher: p.Discord,
		Metrics:   p.Metrics,
		Clock:     p.Clock,
		Logger:    p.Logger,
		Config:    p.Config,
		Publish:   p.Flags.publish,
		Out:       os.Stdout,
	}
	return b.execute(ctx, names, invalid)
}

// serve runs the Discord bot and, when configured, the scheduled batch and
// a /metrics endpoint until ctx is cancelled.
func serve(ctx context.Context, p runParams) error {
	if err := p.Discord.Start(ctx); err != nil {
		return fmt.Errorf("start discord client: %w", err)
	}

	var pl *poller.DefaultPoller
	if p.Config.Poller.Enabled() {
		names, invalid := p.Config.Names()
		for _, f := range invalid {
			p.Logger.WarnW("skipping configured username", "username", f.Identity, "reason", f.Reason)
		}
		pl = poller.New(poller.Params{
			Config: p.Config.Poller,
			Runner: p.Tracker,
			Store:  p.Store,
			Sink:   p.Discord,
			Names:  names,
			Clock:  p.Clock,
			Logger: p.Logger,
		})
		if err := pl.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
	}

	var srv *http.Server
	if addr := p.Config.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", p.Metrics.Handler())
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.Logger.ErrorW("metrics server stopped", "addr", addr, "error", err)
			}
		}()
		p.Logger.InfoW("serving metrics", "addr", addr)
	}

	<-ctx.Done()
	p.Logger.InfoW("shutting down")

	if pl != nil {
		pl.Stop()
	}

	if err := p.Discord.Stop(); err != nil {
		p.Logger.ErrorW("stop discord client", "error", err)
	}
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.Logger.ErrorW("stop metrics server", "error", err)
		}
	}
	return nil
}
