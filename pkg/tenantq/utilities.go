package tenantq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantq/pkg/logger"
	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

// Utilities wraps every cluster primitive with the tenant schema it needs.
//
// Writes carry the schema inside the task package: a task enqueued without a
// schema_name kwarg gets the caller's schema attached, and the worker enters
// it before the task runs. Reads enter the caller's schema, never the one the
// task ran in, so a result is only visible from the tenant that produced it.
type Utilities struct {
	cluster       *queue.Cluster
	schemas       tenant.SchemaContext
	defaultSchema string
	logger        *slog.Logger
}

// New creates Utilities on top of cluster. A nil schema context only records
// the schema in the context.
func New(cluster *queue.Cluster, sc tenant.SchemaContext, opts ...Option) (*Utilities, error) {
	if cluster == nil {
		return nil, ErrClusterNil
	}
	if sc == nil {
		sc = tenant.ContextSchemas{}
	}

	u := &Utilities{
		cluster:       cluster,
		schemas:       sc,
		defaultSchema: tenant.PublicSchema,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Cluster returns the wrapped cluster.
func (u *Utilities) Cluster() *queue.Cluster {
	return u.cluster
}

// CurrentSchema returns the caller's schema: the one active in ctx, or the
// default schema.
func (u *Utilities) CurrentSchema(ctx context.Context) string {
	if schema, ok := tenant.SchemaFromContext(ctx); ok {
		return schema
	}
	return u.defaultSchema
}

// schemaFor resolves the schema of a write: an explicit schema_name kwarg
// first, then the caller's schema.
func (u *Utilities) schemaFor(ctx context.Context, kwargs map[string]any) string {
	if schema, ok := kwargs[queue.SchemaKwarg].(string); ok && schema != "" {
		return schema
	}
	return u.CurrentSchema(ctx)
}

// withSchema returns a copy of kwargs that names the schema of the write.
// A schema that is not a valid name is rejected before anything is enqueued.
func (u *Utilities) withSchema(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
	if schema, ok := kwargs[queue.SchemaKwarg].(string); ok && schema != "" {
		if err := tenant.CheckSchemaName(schema); err != nil {
			return nil, err
		}
		return kwargs, nil
	}
	schema := u.CurrentSchema(ctx)
	if schema == "" {
		return kwargs, nil
	}
	if err := tenant.CheckSchemaName(schema); err != nil {
		return nil, err
	}
	out := maps.Clone(kwargs)
	if out == nil {
		out = make(map[string]any, 1)
	}
	out[queue.SchemaKwarg] = schema
	return out, nil
}

// inCallerSchema runs fn inside the caller's schema. Without one fn runs on ctx as is.
func inCallerSchema[T any](ctx context.Context, u *Utilities, fn func(ctx context.Context) (T, error)) (T, error) {
	schema := u.CurrentSchema(ctx)
	if schema == "" {
		return fn(ctx)
	}
	return tenant.Within(ctx, u.schemas, schema, fn)
}

// AddAsyncTask enqueues fn in the caller's schema unless kwargs name one.
func (u *Utilities) AddAsyncTask(ctx context.Context, fn string, args []any, kwargs map[string]any, opts ...queue.TaskOption) (string, error) {
	kwargs, err := u.withSchema(ctx, kwargs)
	if err != nil {
		return "", err
	}
	return u.cluster.AsyncTask(ctx, fn, args, kwargs, opts...)
}

// CreateSchedule stores a schedule entry inside the schema named by kwargs or
// the caller's schema. When no schema can be resolved the problem is logged
// and nil is returned without an error.
func (u *Utilities) CreateSchedule(ctx context.Context, fn string, args []any, kwargs map[string]any, opts ...queue.ScheduleOption) (*queue.ScheduleEntry, error) {
	schema := u.schemaFor(ctx, kwargs)
	if schema == "" {
		u.logger.ErrorContext(ctx, tenant.ErrNoSchema.Error(), logger.Func(fn))
		return nil, nil
	}

	kwargs = maps.Clone(kwargs)
	if kwargs == nil {
		kwargs = make(map[string]any, 1)
	}
	kwargs[queue.SchemaKwarg] = schema

	return tenant.Within(ctx, u.schemas, schema, func(ctx context.Context) (*queue.ScheduleEntry, error) {
		return u.cluster.Schedule(ctx, fn, args, kwargs, opts...)
	})
}

// GetResult returns a task's value, read in the caller's schema.
func (u *Utilities) GetResult(ctx context.Context, id string, opts ...queue.ReadOption) (json.RawMessage, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) (json.RawMessage, error) {
		return u.cluster.Result(ctx, id, opts...)
	})
}

// FetchTask returns a task's full result record, read in the caller's schema.
func (u *Utilities) FetchTask(ctx context.Context, id string, opts ...queue.ReadOption) (*queue.Result, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) (*queue.Result, error) {
		return u.cluster.Fetch(ctx, id, opts...)
	})
}

// GetResultGroup returns the values of a group, read in the caller's schema.
func (u *Utilities) GetResultGroup(ctx context.Context, group string, opts ...queue.ReadOption) ([]json.RawMessage, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) ([]json.RawMessage, error) {
		return u.cluster.ResultGroup(ctx, group, opts...)
	})
}

// FetchTaskGroup returns the result records of a group, read in the caller's schema.
func (u *Utilities) FetchTaskGroup(ctx context.Context, group string, opts ...queue.ReadOption) ([]*queue.Result, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) ([]*queue.Result, error) {
		return u.cluster.FetchGroup(ctx, group, opts...)
	})
}

// GetGroupCount counts a group's results in the caller's schema.
func (u *Utilities) GetGroupCount(ctx context.Context, group string, opts ...queue.ReadOption) (int, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) (int, error) {
		return u.cluster.CountGroup(ctx, group, opts...)
	})
}

// DeleteTaskGroup deletes a group in the caller's schema. With tasks set the
// member results are deleted too.
func (u *Utilities) DeleteTaskGroup(ctx context.Context, group string, tasks bool, opts ...queue.ReadOption) (int, error) {
	return inCallerSchema(ctx, u, func(ctx context.Context) (int, error) {
		return u.cluster.DeleteGroup(ctx, group, tasks, opts...)
	})
}

// DeleteTask deletes a stored task result in the caller's schema.
func (u *Utilities) DeleteTask(ctx context.Context, id string) error {
	_, err := inCallerSchema(ctx, u, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.cluster.DeleteTask(ctx, id)
	})
	return err
}

// DeleteTaskFromCache removes a cached result. The cache is not tenant scoped.
func (u *Utilities) DeleteTaskFromCache(ctx context.Context, id string, opts ...queue.ReadOption) error {
	return u.cluster.DeleteCached(ctx, id, opts...)
}

// GetQueueSize returns the number of waiting packages across all tenants.
func (u *Utilities) GetQueueSize(ctx context.Context) (int, error) {
	return u.cluster.QueueSize(ctx)
}

// AddAsyncTasksFromIter enqueues fn once per argument tuple under one group
// and returns the group.
//
// The signed tuples are kept in the cache at the group's args key. Every
// member is cached and knows the group size, so the member that finishes last
// collates the group into one result whose id is the group. That result is
// cached when the Cached option was set, otherwise it is stored.
func (u *Utilities) AddAsyncTasksFromIter(ctx context.Context, fn string, argsIter [][]any, kwargs map[string]any, opts ...queue.TaskOption) (string, error) {
	if len(argsIter) == 0 {
		return "", ErrEmptyIter
	}

	kwargs, err := u.withSchema(ctx, kwargs)
	if err != nil {
		return "", err
	}

	o := queue.NewOptions(opts...)
	group := o.Group
	if group == "" {
		group = uuid.NewString()
	}

	broker := o.Broker
	if broker == nil {
		broker = u.cluster.Broker()
	}

	pack, err := u.cluster.Signer().Dumps(argsIter)
	if err != nil {
		return "", err
	}
	argsKey := queue.GroupArgsKey(broker.ListKey(), group)
	if err := broker.Cache().Set(ctx, argsKey, pack, u.cluster.CacheTTL()); err != nil {
		return "", fmt.Errorf("failed to store args of group %s: %w", group, err)
	}

	member := []queue.TaskOption{
		queue.WithOptions(o),
		queue.WithGroup(group),
		queue.WithCached(true),
		queue.WithIterCached(o.Cached),
		queue.WithIterCount(len(argsIter)),
	}
	for _, args := range argsIter {
		if _, err := u.cluster.AsyncTask(ctx, fn, args, kwargs, member...); err != nil {
			return group, err
		}
	}
	return group, nil
}

// CreateAsyncTasksChain attaches the caller's schema to every link that names
// none and enqueues the head of the chain. The cluster enqueues each following
// link after the previous one finished. It returns the chain group.
func (u *Utilities) CreateAsyncTasksChain(ctx context.Context, links []queue.Link, opts ...queue.TaskOption) (string, error) {
	scoped := make([]queue.Link, len(links))
	for i, l := range links {
		kwargs, err := u.withSchema(ctx, l.Kwargs)
		if err != nil {
			return "", err
		}
		l.Kwargs = kwargs
		scoped[i] = l
	}
	return u.cluster.AsyncChain(ctx, scoped, opts...)
}

// RunSynchronously runs a signed package on the calling goroutine and collects
// its result exactly as a worker would.
func (u *Utilities) RunSynchronously(ctx context.Context, pack []byte) (string, error) {
	return u.cluster.RunSync(ctx, pack)
}
