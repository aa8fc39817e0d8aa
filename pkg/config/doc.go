// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv to read .env files and
// github.com/caarlos0/env/v11 to parse the environment into structs tagged
// with `env`. Every package of tenantq exposes such a struct (queue.Config,
// redis.Config, pg.Config, logger.Config), and the command line binary loads
// them all through this package:
//
//	var qcfg queue.Config
//	if err := config.Load(&qcfg); err != nil {
//		return err
//	}
//
// Each configuration type is parsed once and cached for the lifetime of the
// process. Use [ForceReload] or [ResetCache] when the environment changes,
// which is mostly useful in tests.
package config
