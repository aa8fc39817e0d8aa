// Package pg is the PostgreSQL backend of tenantq, built on pgx/v5 and goose/v3.
//
// It connects a *pgxpool.Pool from an env-driven [Config], migrates the tenant
// registry into the shared schema and the task tables into each tenant
// schema, and provides the schema-aware stores the queue cluster runs on:
//
//   - [SchemaSwitcher] implements tenant.SchemaContext. Entering a schema pins a
//     pooled connection whose search_path is the tenant schema and stores it
//     in the context; [DB] returns that connection, or the pool when none is
//     pinned.
//   - [ResultStore] and [ScheduleStore] keep task results and schedules in the
//     q_task and q_schedule tables of the schema carried by the context.
//   - [TenantStore] is the tenant registry. It implements tenant.Provider and
//     tenant.SchemaLister.
//
// # Usage
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//		panic(err)
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//		panic(err)
//	}
//
//	tenants := pg.NewTenantStore(pool, cfg, slog.Default())
//	cluster, err := queue.NewCluster(broker,
//		queue.WithSecret(secret),
//		queue.WithSchemaContext(pg.NewSchemaSwitcher(pool)),
//		queue.WithResultStore(pg.NewResultStore(pool)),
//		queue.WithScheduleStore(pg.NewScheduleStore(pool)),
//		queue.WithSchemaLister(tenants),
//	)
//
// # Error Handling
//
// [IsNotFoundError], [IsDuplicateKeyError] and friends classify errors
// returned by pgx so callers can branch without importing pgconn.
package pg
