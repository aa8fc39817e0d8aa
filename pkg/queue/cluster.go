package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantq/pkg/logger"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// Cluster ties a broker, a signer and the result and schedule stores together.
// It enqueues signed task packages, runs them on a pool of workers inside the
// schema each package names, and collects their results.
type Cluster struct {
	id        uuid.UUID
	name      string
	broker    Broker
	signer    *Signer
	results   ResultStore
	schedules ScheduleStore
	schemas   tenant.SchemaContext
	lister    tenant.SchemaLister

	handlers map[string]Handler
	hooks    map[string]HookFunc
	mu       sync.RWMutex

	// Configuration
	workers           int
	pollInterval      time.Duration
	timeout           time.Duration
	cacheTTL          time.Duration
	schedulerInterval time.Duration
	shutdownTimeout   time.Duration
	saveResults       bool
	logger            *slog.Logger

	// State management
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
	inflight  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// NewCluster creates a cluster on top of broker.
// A signing secret is required, through WithSecret, WithSigner or WithConfig.
func NewCluster(broker Broker, opts ...ClusterOption) (*Cluster, error) {
	if broker == nil {
		return nil, ErrBrokerNil
	}

	options := defaultClusterOptions()
	for _, opt := range opts {
		opt(options)
	}

	signer := options.signer
	if signer == nil {
		s, err := NewSigner(options.secret)
		if err != nil {
			return nil, err
		}
		signer = s
	}

	results := options.results
	if results == nil {
		results = NewMemoryResultStore()
	}

	return &Cluster{
		id:                uuid.New(),
		name:              options.name,
		broker:            broker,
		signer:            signer,
		results:           results,
		schedules:         options.schedules,
		schemas:           options.schemas,
		lister:            options.lister,
		handlers:          make(map[string]Handler),
		hooks:             make(map[string]HookFunc),
		workers:           options.workers,
		pollInterval:      options.pollInterval,
		timeout:           options.timeout,
		cacheTTL:          options.cacheTTL,
		schedulerInterval: options.schedulerInterval,
		shutdownTimeout:   options.shutdownTimeout,
		saveResults:       options.saveResults,
		logger:            options.logger,
	}, nil
}

// Broker returns the cluster's default broker.
func (c *Cluster) Broker() Broker {
	return c.broker
}

// Signer returns the signer used for task packages.
func (c *Cluster) Signer() *Signer {
	return c.signer
}

// CacheTTL is the expiration applied to cached results and group bookkeeping.
func (c *Cluster) CacheTTL() time.Duration {
	return c.cacheTTL
}

// Register adds task handlers. Names must be unique.
func (c *Cluster) Register(handlers ...Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		if _, exists := c.handlers[h.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrHandlerAlreadyRegistered, h.Name())
		}
		c.handlers[h.Name()] = h
	}
	return nil
}

// RegisterFunc is a shorthand for Register(NewHandler(name, fn)).
func (c *Cluster) RegisterFunc(name string, fn HandlerFunc) error {
	return c.Register(NewHandler(name, fn))
}

// RegisterHook adds a named result hook.
func (c *Cluster) RegisterHook(name string, fn HookFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.hooks[name]; exists {
		return fmt.Errorf("%w: hook %s", ErrHandlerAlreadyRegistered, name)
	}
	c.hooks[name] = fn
	return nil
}

func (c *Cluster) handler(name string) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[name]
	return h, ok
}

func (c *Cluster) hook(name string) (HookFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.hooks[name]
	return h, ok
}

// Start launches the workers and, when a schedule store is configured, the scheduler.
func (c *Cluster) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return ErrClusterRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.startedAt = time.Now()
	c.mu.Unlock()

	for i := range c.workers {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.work(runCtx, fmt.Sprintf("%s-%d", c.id.String()[:8], i))
		}()
	}

	if c.schedules != nil && c.lister != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runScheduler(runCtx)
		}()
	}

	c.logger.InfoContext(ctx, "cluster started",
		slog.String("cluster", c.name),
		slog.String("cluster_id", c.id.String()),
		slog.Int("workers", c.workers))

	return nil
}

// Stop cancels the workers and waits up to the shutdown timeout for running tasks.
func (c *Cluster) Stop() error {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return ErrClusterNotRunning
	}
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()

	c.logger.Info("cluster stopping, waiting for active tasks to complete",
		slog.String("cluster", c.name),
		slog.Int64("in_flight", c.inflight.Load()))

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.shutdownTimeout):
		return fmt.Errorf("cluster %s: shutdown timed out after %s", c.name, c.shutdownTimeout)
	}

	c.logger.Info("cluster stopped", slog.String("cluster", c.name))
	return nil
}

// Run starts the cluster and returns a function suitable for errgroup
func (c *Cluster) Run(ctx context.Context) func() error {
	return func() error {
		if err := c.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return c.Stop()
	}
}

// Drain blocks until the broker queue is empty and no task is running.
func (c *Cluster) Drain(ctx context.Context) error {
	c.mu.RLock()
	running := c.cancel != nil
	c.mu.RUnlock()
	if !running {
		return ErrClusterNotRunning
	}

	ticker := time.NewTicker(pollStep)
	defer ticker.Stop()

	// Two consecutive idle observations, so a package popped but not yet
	// counted as in flight is not missed.
	idle := 0
	for idle < 2 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		size, err := c.broker.QueueSize(ctx)
		if err != nil {
			return fmt.Errorf("failed to read queue size: %w", err)
		}
		if size == 0 && c.inflight.Load() == 0 {
			idle++
		} else {
			idle = 0
		}
	}
	return nil
}

// Stat is a point in time view of the cluster.
type Stat struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Host      string        `json:"host"`
	PID       int           `json:"pid"`
	Running   bool          `json:"running"`
	Workers   int           `json:"workers"`
	QueueSize int           `json:"queue_size"`
	InFlight  int64         `json:"in_flight"`
	Processed int64         `json:"processed"`
	Failed    int64         `json:"failed"`
	Uptime    time.Duration `json:"uptime"`
}

// Stat reports the cluster state and the broker queue size.
func (c *Cluster) Stat(ctx context.Context) (Stat, error) {
	c.mu.RLock()
	running := c.cancel != nil
	startedAt := c.startedAt
	c.mu.RUnlock()

	host, _ := os.Hostname()
	s := Stat{
		ID:        c.id.String(),
		Name:      c.name,
		Host:      host,
		PID:       os.Getpid(),
		Running:   running,
		Workers:   c.workers,
		InFlight:  c.inflight.Load(),
		Processed: c.processed.Load(),
		Failed:    c.failed.Load(),
	}
	if running {
		s.Uptime = time.Since(startedAt)
	}

	size, err := c.broker.QueueSize(ctx)
	if err != nil {
		return s, fmt.Errorf("failed to read queue size: %w", err)
	}
	s.QueueSize = size
	return s, nil
}

func (c *Cluster) log(ctx context.Context, level slog.Level, msg string, t *Task, attrs ...slog.Attr) {
	attrs = append(attrs,
		logger.TaskID(t.ID),
		logger.Func(t.Func),
		logger.TaskGroup(t.Group),
		logger.Schema(t.Schema()),
	)
	c.logger.LogAttrs(ctx, level, msg, attrs...)
}
