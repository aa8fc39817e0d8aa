// Package environment propagates the deployment environment (development,
// staging, production) through context.Context.
//
// The cluster binary stores the environment parsed from APP_ENV in its root
// context, the monitor router adds it to every request with [Middleware], and
// [LoggerExtractor] turns it into an env attribute on log records:
//
//	ctx := environment.WithContext(ctx, environment.Parse(os.Getenv("APP_ENV")))
//	if environment.IsProduction(ctx) {
//		// ...
//	}
package environment
