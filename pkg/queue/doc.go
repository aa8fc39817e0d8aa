// Package queue is a signed-package task queue whose workers execute every
// task inside the tenant schema named by the task itself.
//
// The package is organised around a few small pieces:
//
//   - Signer       serializes tasks and results and verifies them on the way back
//   - Broker       moves signed packages to workers and owns a key/value Cache
//   - ResultStore  keeps finished task results, scoped to the schema in ctx
//   - Cluster      enqueues tasks, runs workers and the scheduler, reads results
//
// MemoryBroker, MemoryResultStore and MemoryScheduleStore make the package
// usable on its own; pkg/redis and pkg/pg provide the production backends.
//
// # Tenant schemas
//
// A task's schema travels in its keyword arguments under SchemaKwarg
// ("schema_name"). Before a handler runs, the worker enters that schema through
// a tenant.SchemaContext and saves the result inside the same scope, so a
// schema-scoped ResultStore files the result with the tenant that produced it.
// The schema entry is removed from the kwargs the handler receives.
//
// # Usage
//
//	cluster, err := queue.NewCluster(queue.NewMemoryBroker("tenantq"),
//	    queue.WithSecret(cfg.SecretKey),
//	    queue.WithResultStore(pg.NewResultStore(pool)),
//	    queue.WithSchemaContext(pg.NewSchemaSwitcher(pool)),
//	)
//	if err != nil {
//	    return err
//	}
//	_ = cluster.RegisterFunc("reports.build", buildReport)
//
//	id, err := cluster.AsyncTask(ctx, "reports.build", []any{2024},
//	    map[string]any{queue.SchemaKwarg: "acme"})
//
//	value, err := cluster.Result(ctx, id, queue.WithWait(time.Second))
//
// # Groups, chains and iters
//
// Tasks sharing a Group can be read together with FetchGroup and CountGroup.
// AsyncChain enqueues the first link and stores the remaining links on it; the
// worker that finishes a link enqueues the next one, whether the link succeeded
// or not. Cached tasks keep their result in the broker cache and append their
// key to the group's key list. When that list reaches a task's IterCount, the
// member results are collated into one Result whose ID is the group.
//
// # Waiting for results
//
// Readers accept WithWait. Zero checks once, a positive duration polls every
// 10ms until it elapses, and a negative duration polls until the result exists
// or ctx is done.
//
// # Scheduling
//
// Schedule stores an entry in the schema active in ctx. The scheduler loop
// lists every schema through a tenant.SchemaLister, enters it and enqueues the
// entries that are due, then advances or deletes them.
package queue
