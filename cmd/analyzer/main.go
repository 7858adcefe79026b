package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/paulmach/osm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"train-route-analyzer/internal/analysis"
	"train-route-analyzer/internal/api"
	"train-route-analyzer/internal/config"
	"train-route-analyzer/internal/db"
	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/metrics"
	"train-route-analyzer/internal/overpass"
	"train-route-analyzer/internal/publisher"
	"train-route-analyzer/internal/runner"
)

func main() {
	if os.Getenv("LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if os.Getenv("DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:  "analyzer",
		Usage: "Computes speed profiles and travel times of OpenStreetMap rail routes",
		Commands: []*cli.Command{
			analyzeCommand(),
			batchCommand(),
			serveCommand(),
			trainsCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

var trainFlag = &cli.StringFlag{
	Name:  "train",
	Usage: "vehicle `REF` from the train catalog, see the trains command",
}

var refreshFlag = &cli.BoolFlag{
	Name:  "refresh",
	Usage: "bypass the document cache",
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "analyze one route relation",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Usage: "OSM relation id", Required: true},
			&cli.StringFlag{Name: "file", Usage: "read the OSM XML document from a file instead of Overpass"},
			&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
			trainFlag,
			refreshFlag,
		},
		Action: func(c *cli.Context) error {
			if c.Int64("id") <= 0 {
				return cli.Exit("invalid relation id", 2)
			}
			env, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer env.close()

			job := runner.Job{
				ID:      osm.RelationID(c.Int64("id")),
				Train:   firstNonEmpty(c.String("train"), env.cfg.DefaultTrain),
				Refresh: c.Bool("refresh"),
			}
			var out runner.Outcome
			if path := c.String("file"); path != "" {
				doc, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				out = env.mgr.AnalyzeDocument(c.Context, job, doc)
			} else {
				out = env.mgr.Analyze(c.Context, job)
			}

			if c.Bool("json") {
				err = writeJSON(c.App.Writer, out.Result)
			} else {
				err = writeReport(c.App.Writer, out.Result)
			}
			if err != nil {
				return err
			}
			if out.Result.Status == analysis.Failure {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "analyze many route relations concurrently",
		ArgsUsage: "[relation ids...]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "stale", Usage: "also re-analyze stored routes older than this (needs a database)"},
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "maximum number of stale routes"},
			trainFlag,
			refreshFlag,
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer env.close()

			var ids []int64
			for _, a := range c.Args().Slice() {
				id, err := strconv.ParseInt(a, 10, 64)
				if err != nil || id <= 0 {
					return cli.Exit(fmt.Sprintf("invalid relation id %q", a), 2)
				}
				ids = append(ids, id)
			}
			if stale := c.Duration("stale"); stale > 0 {
				if env.store == nil {
					return cli.Exit("--stale needs DATABASE_URL or PGDATABASE", 2)
				}
				more, err := env.store.Stale(c.Context, time.Now().Add(-stale), c.Int("limit"))
				if err != nil {
					return err
				}
				ids = append(ids, more...)
			}
			if len(ids) == 0 {
				return cli.Exit("no relation ids given", 2)
			}

			train := firstNonEmpty(c.String("train"), env.cfg.DefaultTrain)
			jobs := make([]runner.Job, 0, len(ids))
			for _, id := range ids {
				jobs = append(jobs, runner.Job{ID: osm.RelationID(id), Train: train, Refresh: c.Bool("refresh")})
			}

			start := time.Now()
			counts := map[analysis.Status]int{}
			for _, out := range env.mgr.Run(c.Context, jobs) {
				counts[out.Result.Status]++
			}
			log.Info().
				Int("routes", len(jobs)).
				Int("success", counts[analysis.Success]).
				Int("partial", counts[analysis.Partial]).
				Int("failure", counts[analysis.Failure]).
				Dur("took", time.Since(start)).
				Msg("batch finished")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve route analyses over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (default HTTP_ADDR)"},
		},
		Action: func(c *cli.Context) error {
			env, err := setup(c.Context)
			if err != nil {
				return err
			}
			defer env.close()

			var details api.DetailsStore
			if env.store != nil {
				details = env.store
			}
			app := api.NewApp(env.mgr, details, env.catalog, env.cfg.DefaultTrain)
			addr := firstNonEmpty(c.String("addr"), env.cfg.HTTPAddr)

			go func() {
				<-c.Context.Done()
				_ = app.ShutdownWithTimeout(5 * time.Second)
			}()
			log.Info().Str("addr", addr).Msg("http listening")
			return app.Listen(addr)
		},
	}
}

func trainsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trains",
		Usage: "list the vehicle catalog",
		Action: func(c *cli.Context) error {
			return writeTrains(c.App.Writer, kinematics.DefaultCatalog().All())
		},
	}
}

type environment struct {
	cfg     *config.Config
	mgr     *runner.Manager
	catalog *kinematics.Catalog
	store   *db.Store
	closers []func()
}

func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// setup wires the adapters enabled by the configuration.
func setup(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("config error: %v", err), 2)
	}
	env := &environment{cfg: cfg}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.Workers)
		srv := mcol.Serve(cfg.MetricsAddr)
		env.closers = append(env.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	var store runner.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("db open: %w", err)
		}
		env.closers = append(env.closers, pool.Close)
		env.store = db.NewStore(pool)
		if err := env.store.EnsureSchema(ctx); err != nil {
			env.close()
			return nil, err
		}
		store = env.store
	} else {
		log.Info().Msg("no database configured, results are not stored")
	}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, document cache disabled")
			_ = rdb.Close()
			rdb = nil
		} else {
			env.closers = append(env.closers, func() { _ = rdb.Close() })
		}
	}
	fetch := overpass.NewClient(cfg.OverpassURL, cfg.FetchTimeout, cfg.FetchRetries, rdb, cfg.CacheTTL)

	var pub runner.Publisher
	if cfg.NATSURL != "" {
		np, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			env.close()
			return nil, fmt.Errorf("nats error: %w", err)
		}
		env.closers = append(env.closers, np.Close)
		pub = np
	}

	catalog := kinematics.DefaultCatalog()
	if cfg.DefaultTrain != "" {
		if _, ok := catalog.Lookup(cfg.DefaultTrain); !ok {
			env.close()
			return nil, cli.Exit(fmt.Sprintf("unknown DEFAULT_TRAIN %q", cfg.DefaultTrain), 2)
		}
	}

	env.catalog = catalog
	env.mgr = runner.NewManager(fetch, store, pub, catalog, cfg.Workers, cfg.Passengers, mcol)
	return env, nil
}

// wrapPublisherMetrics avoids handing a typed nil to the publisher.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
