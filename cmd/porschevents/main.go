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
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/robfig/cron/v3"

	"porschevents/internal/config"
	"porschevents/internal/ics"
	appLog "porschevents/internal/log"
	"porschevents/internal/session"
	"porschevents/internal/source"
	"porschevents/internal/store"
	"porschevents/internal/token"
	"porschevents/internal/web"
)

const version = "0.1.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	pretty     bool
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("porschevents failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	appLog.SetOutput(os.Stderr, flags.pretty)

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLog.Info("porschevents starting",
		"version", version,
		"listen", conf.Listen,
		"source", conf.Source.Kind,
		"session", conf.Session.Kind,
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := buildSource(ctx, conf)
	if err != nil {
		return err
	}
	defer closeSource()

	events := store.NewEventStore(src, store.EventOptions{
		PreserveFiltersOnRefresh: conf.Events.PreserveFiltersOnRefresh,
	})

	if flags.once {
		return runOnce(ctx, events, os.Stdout)
	}

	sessions, closeSessions, err := buildSessions(ctx, conf)
	if err != nil {
		return err
	}
	defer closeSessions()

	issuer, err := token.NewIssuer(conf.Auth.JWTSecret, conf.Auth.TokenTTL.Std())
	if err != nil {
		return err
	}
	auth := store.NewAuthStore(ctx, src, sessions, issuer)

	if err := events.FetchEvents(ctx); err != nil {
		// The server still starts; clients see the failure in state and
		// the next scheduled refresh retries.
		appLog.Warn("initial fetch failed", "err", err.Error())
	}

	scheduler, err := startRefresh(ctx, conf, events)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { <-scheduler.Stop().Done() }()
	}

	srv := web.NewServer(conf, events, auth)
	if err := srv.ListenAndServe(ctx, 10*time.Second); err != nil {
		return err
	}
	appLog.Info("porschevents exiting")
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./porschevents.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Fetch events once, print the filtered view as JSON and exit")
	flag.BoolVar(&cfg.pretty, "pretty", false, "Human-readable console logs")

	flag.Parse()

	return cfg
}

// buildSource returns the configured events+users source and a func
// that releases it.
func buildSource(ctx context.Context, conf *config.Config) (source.Source, func(), error) {
	noop := func() {}

	fx, err := source.NewFixture()
	if err != nil {
		return nil, noop, fmt.Errorf("fixture: %w", err)
	}
	fx.ListLatency = conf.Source.Latency.Std()
	fx.UserLatency = conf.Source.Latency.Std()

	switch conf.Source.Kind {
	case config.SourceSQL:
		db, err := source.OpenSQL(ctx, conf.Source.Driver, conf.Source.DSN)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		if conf.Source.Seed {
			if err := db.Seed(ctx, fx); err != nil {
				db.Close()
				return nil, noop, err
			}
		}
		return db, func() {
			if err := db.Close(); err != nil {
				appLog.Warn("close database", "err", err.Error())
			}
		}, nil

	case config.SourceICS:
		fetcher := ics.NewFetcher(conf.Source.CacheDir, &http.Client{Timeout: 30 * time.Second})
		lister := ics.NewLister(fetcher, conf.Source.ICS, ics.ListerOptions{
			Horizon: time.Duration(conf.Source.HorizonDays) * 24 * time.Hour,
		})
		// Feeds carry no members; accounts stay in the in-process fixture.
		return source.Combine(lister, fx), noop, nil

	default:
		return fx, noop, nil
	}
}

func buildSessions(ctx context.Context, conf *config.Config) (session.Store, func(), error) {
	noop := func() {}
	switch conf.Session.Kind {
	case config.SessionRedis:
		rs, err := session.NewRedisStore(ctx, conf.Session.RedisURL, conf.Session.Key, conf.Auth.TokenTTL.Std())
		if err != nil {
			return nil, noop, err
		}
		return rs, func() { _ = rs.Close() }, nil
	case config.SessionMemory:
		return session.NewMemoryStore(), noop, nil
	default:
		fs, err := session.NewFileStore(conf.Session.Path)
		if err != nil {
			return nil, noop, err
		}
		return fs, noop, nil
	}
}

// startRefresh schedules a filter-keeping Refresh on the configured cron
// spec. It returns nil when the schedule is disabled with "-".
func startRefresh(ctx context.Context, conf *config.Config, events *store.EventStore) (*cron.Cron, error) {
	if conf.RefreshCron == "-" {
		return nil, nil
	}
	c := cron.New(cron.WithLocation(conf.Location()))
	_, err := c.AddFunc(conf.RefreshCron, func() {
		if ctx.Err() != nil {
			return
		}
		if err := events.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLog.Warn("scheduled refresh failed", "err", err.Error())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	return c, nil
}

// runOnce fetches once and writes the filtered view to w.
func runOnce(ctx context.Context, events *store.EventStore, w io.Writer) error {
	if err := events.FetchEvents(ctx); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events.State().FilteredEvents)
}
