package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/tenantq/pkg/config"
	"github.com/dmitrymomot/tenantq/pkg/environment"
	"github.com/dmitrymomot/tenantq/pkg/logger"
	"github.com/dmitrymomot/tenantq/pkg/monitor"
	"github.com/dmitrymomot/tenantq/pkg/pg"
	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/redis"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

const (
	brokerMemory = "memory"
	brokerRedis  = "redis"
)

var errUnknownBroker = errors.New("unknown queue broker")

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Broker   string `env:"QUEUE_BROKER" envDefault:"memory"`
	Database string `env:"PG_CONN_URL"`
}

// app is everything a cluster process needs, built from the environment.
type app struct {
	cfg     appConfig
	env     environment.Environment
	queue   queue.Config
	monitor monitor.Config
	logger  *slog.Logger
	cluster *queue.Cluster
	checks  map[string]monitor.Check
	closers []func()
}

func loadConfig() (appConfig, queue.Config, monitor.Config, logger.Config, error) {
	var (
		appCfg appConfig
		qCfg   queue.Config
		mCfg   monitor.Config
		lCfg   logger.Config
	)
	if err := config.Load(&appCfg); err != nil {
		return appCfg, qCfg, mCfg, lCfg, err
	}
	if err := config.Load(&qCfg); err != nil {
		return appCfg, qCfg, mCfg, lCfg, err
	}
	if err := config.Load(&mCfg); err != nil {
		return appCfg, qCfg, mCfg, lCfg, err
	}
	if err := config.Load(&lCfg); err != nil {
		return appCfg, qCfg, mCfg, lCfg, err
	}
	return appCfg, qCfg, mCfg, lCfg, nil
}

func newApp(ctx context.Context, logOutput io.Writer, handlers ...queue.Handler) (*app, error) {
	appCfg, qCfg, mCfg, lCfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(
		logger.FromConfig(lCfg),
		logger.WithOutput(logOutput),
		logger.WithContextExtractors(
			tenant.LoggerExtractor(),
			environment.LoggerExtractor(),
			monitor.RequestIDExtractor(),
		),
	)

	a := &app{
		cfg:     appCfg,
		env:     environment.Parse(appCfg.Env),
		queue:   qCfg,
		monitor: mCfg,
		logger:  log,
		checks:  make(map[string]monitor.Check),
	}

	broker, err := a.broker(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	opts := []queue.ClusterOption{
		queue.WithConfig(qCfg),
		queue.WithLogger(log),
	}
	if appCfg.Database != "" {
		dbOpts, err := a.database(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, dbOpts...)
	}

	cluster, err := queue.NewCluster(broker, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	if len(handlers) > 0 {
		if err := cluster.Register(handlers...); err != nil {
			a.close()
			return nil, err
		}
	}
	a.cluster = cluster
	return a, nil
}

func (a *app) broker(ctx context.Context) (queue.Broker, error) {
	switch a.cfg.Broker {
	case brokerMemory, "":
		return queue.NewMemoryBroker(a.queue.Name), nil
	case brokerRedis:
		var rCfg redis.Config
		if err := config.Load(&rCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rCfg)
		if err != nil {
			return nil, err
		}
		a.checks["redis"] = monitor.Check(redis.Healthcheck(client))
		a.closers = append(a.closers, closeRedis(client, a.logger))
		return redis.NewBrokerWithConfig(client, a.queue.Name, rCfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBroker, a.cfg.Broker)
	}
}

// database connects to Postgres, migrates the tenant registry and wires
// the schema switcher, the stores and the tenant lister into the cluster.
func (a *app) database(ctx context.Context) ([]queue.ClusterOption, error) {
	var pCfg pg.Config
	if err := config.Load(&pCfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, pCfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closePool(pool))
	a.checks["postgres"] = monitor.Check(pg.Healthcheck(pool))

	if err := pg.Migrate(ctx, pool, pCfg, a.logger); err != nil {
		return nil, err
	}

	return []queue.ClusterOption{
		queue.WithSchemaContext(pg.NewSchemaSwitcher(pool)),
		queue.WithResultStore(pg.NewResultStore(pool)),
		queue.WithScheduleStore(pg.NewScheduleStore(pool)),
		queue.WithSchemaLister(pg.NewTenantStore(pool, pCfg, a.logger)),
	}, nil
}

func (a *app) monitorHandler() http.Handler {
	opts := []monitor.Option{
		monitor.WithEnvironment(a.env),
		monitor.WithLogger(a.logger),
	}
	for name, check := range a.checks {
		opts = append(opts, monitor.WithCheck(name, check))
	}
	return monitor.NewRouter(a.cluster.Stat, opts...)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeRedis(client *goredis.Client, log *slog.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis client", logger.Error(err))
		}
	}
}

func closePool(pool *pgxpool.Pool) func() {
	return func() { pool.Close() }
}
