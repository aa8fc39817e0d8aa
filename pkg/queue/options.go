package queue

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// ClusterOption is a functional option for configuring a cluster
type ClusterOption func(*clusterOptions)

type clusterOptions struct {
	name              string
	secret            string
	signer            *Signer
	results           ResultStore
	schedules         ScheduleStore
	schemas           tenant.SchemaContext
	lister            tenant.SchemaLister
	workers           int
	pollInterval      time.Duration
	timeout           time.Duration
	cacheTTL          time.Duration
	schedulerInterval time.Duration
	shutdownTimeout   time.Duration
	saveResults       bool
	logger            *slog.Logger
}

func defaultClusterOptions() *clusterOptions {
	return &clusterOptions{
		name:              "tenantq",
		schemas:           tenant.ContextSchemas{},
		workers:           4,
		pollInterval:      time.Second,
		timeout:           5 * time.Minute,
		schedulerInterval: 30 * time.Second,
		shutdownTimeout:   30 * time.Second,
		saveResults:       true,
		logger:            slog.Default(),
	}
}

// WithConfig applies every field of cfg. Zero durations and counts keep the defaults.
func WithConfig(cfg Config) ClusterOption {
	return func(o *clusterOptions) {
		if cfg.Name != "" {
			o.name = cfg.Name
		}
		if cfg.SecretKey != "" {
			o.secret = cfg.SecretKey
		}
		if cfg.Workers > 0 {
			o.workers = cfg.Workers
		}
		if cfg.PollInterval > 0 {
			o.pollInterval = cfg.PollInterval
		}
		if cfg.Timeout > 0 {
			o.timeout = cfg.Timeout
		}
		if cfg.CacheTTL > 0 {
			o.cacheTTL = cfg.CacheTTL
		}
		if cfg.SchedulerInterval > 0 {
			o.schedulerInterval = cfg.SchedulerInterval
		}
		if cfg.ShutdownTimeout > 0 {
			o.shutdownTimeout = cfg.ShutdownTimeout
		}
		o.saveResults = cfg.SaveResults
	}
}

// WithName sets the cluster name used in logs and stats
func WithName(name string) ClusterOption {
	return func(o *clusterOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSecret sets the key used to sign task packages
func WithSecret(secret string) ClusterOption {
	return func(o *clusterOptions) {
		o.secret = secret
	}
}

// WithSigner sets a ready signer. It takes precedence over WithSecret.
func WithSigner(s *Signer) ClusterOption {
	return func(o *clusterOptions) {
		if s != nil {
			o.signer = s
		}
	}
}

// WithResultStore sets where non-cached results are saved
func WithResultStore(s ResultStore) ClusterOption {
	return func(o *clusterOptions) {
		if s != nil {
			o.results = s
		}
	}
}

// WithScheduleStore enables Schedule and the scheduler loop
func WithScheduleStore(s ScheduleStore) ClusterOption {
	return func(o *clusterOptions) {
		if s != nil {
			o.schedules = s
		}
	}
}

// WithSchemaContext sets how workers enter a task's schema
func WithSchemaContext(sc tenant.SchemaContext) ClusterOption {
	return func(o *clusterOptions) {
		if sc != nil {
			o.schemas = sc
		}
	}
}

// WithSchemaLister sets the schemas the scheduler walks on every check
func WithSchemaLister(l tenant.SchemaLister) ClusterOption {
	return func(o *clusterOptions) {
		if l != nil {
			o.lister = l
		}
	}
}

// WithWorkers sets the number of concurrent workers
func WithWorkers(n int) ClusterOption {
	return func(o *clusterOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithPollInterval sets how long a worker blocks on the broker per attempt
func WithPollInterval(d time.Duration) ClusterOption {
	return func(o *clusterOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithTimeout sets the maximum run time of a single task
func WithTimeout(d time.Duration) ClusterOption {
	return func(o *clusterOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCacheTTL sets the expiration of cached results. Zero keeps them until deleted.
func WithCacheTTL(d time.Duration) ClusterOption {
	return func(o *clusterOptions) {
		if d >= 0 {
			o.cacheTTL = d
		}
	}
}

// WithSchedulerInterval sets how often the scheduler checks for due entries
func WithSchedulerInterval(d time.Duration) ClusterOption {
	return func(o *clusterOptions) {
		if d > 0 {
			o.schedulerInterval = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for running tasks
func WithShutdownTimeout(d time.Duration) ClusterOption {
	return func(o *clusterOptions) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithSaveResults toggles storing successful results cluster-wide. Failures are always stored.
func WithSaveResults(save bool) ClusterOption {
	return func(o *clusterOptions) {
		o.saveResults = save
	}
}

// WithLogger sets the cluster logger
func WithLogger(logger *slog.Logger) ClusterOption {
	return func(o *clusterOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
