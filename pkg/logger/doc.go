// Package logger builds *slog.Logger instances for tenantq processes.
//
// New applies a set of Option functions on top of a JSON, info level default
// and wraps the resulting handler with LogHandlerDecorator, which runs every
// registered ContextExtractor on each record. Combined with
// tenant.LoggerExtractor this stamps the active tenant schema on every line a
// worker writes while a task runs.
//
// Attribute helpers in attr.go keep key names consistent across packages:
// Schema, TaskID, TaskName, Func, TaskGroup, WorkerID, Count, Error and a few
// generic ones.
//
// # Usage
//
//	log := logger.New(
//	    logger.FromConfig(cfg.Log),
//	    logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "task enqueued", logger.TaskID(id), logger.Func("math.floor"))
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
