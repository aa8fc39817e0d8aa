// Package monitor exposes the health and state of a running cluster over HTTP.
//
// NewRouter builds a chi router with liveness (/healthz), readiness (/readyz)
// and cluster statistics (/stats) endpoints. Readiness checks are the
// Healthcheck functions of pkg/redis and pkg/pg:
//
//	h := monitor.NewRouter(cluster.Stat,
//		monitor.WithCheck("redis", redis.Healthcheck(client)),
//		monitor.WithCheck("postgres", pg.Healthcheck(pool)),
//	)
//	err := monitor.NewServer(cfg, log).Run(ctx, h)
//
// Every response carries an X-Request-ID header; RequestIDExtractor adds the
// id to log records.
package monitor
