// Package tenantq makes the queue cluster tenant aware.
//
// [Utilities] wraps every cluster primitive with the tenant schema it needs.
// Writes put the schema into the task package: a task enqueued without a
// schema_name kwarg gets the caller's schema (from the context, or the
// default schema) attached, and the worker enters that schema before the task
// function runs. Reads enter the caller's schema, not the task's, so results
// are only visible from the tenant that produced them.
//
//	u, err := tenantq.New(cluster, pg.NewSchemaSwitcher(pool))
//	if err != nil {
//		return err
//	}
//
//	ctx = tenant.WithSchema(ctx, "acme")
//	id, err := u.AddAsyncTask(ctx, "reports.build", []any{2024}, nil)
//	value, err := u.GetResult(ctx, id, queue.WithWait(time.Second))
//
// # Builders
//
// [AsyncTask], [Iter] and [Chain] keep a task definition around and run it
// through Utilities. Each one is either StateUnstarted or StateStarted. Run
// moves it to StateStarted; changing a started builder first deletes what the
// previous run stored and moves it back to StateUnstarted.
//
//	chain := tenantq.NewChain(u)
//	_ = chain.Append(ctx, "reports.build", []any{2024}, nil)
//	_ = chain.Append(ctx, "reports.mail", nil, nil)
//	group, err := chain.Run(ctx)
//
// AsyncTask.Run hands its kwargs to the cluster unchanged. Tasks built that
// way must name their schema themselves.
package tenantq
