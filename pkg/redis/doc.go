// Package redis provides the production queue.Broker for tenantq on top of
// github.com/redis/go-redis/v9.
//
// Connect opens a client and retries until the server answers a PING.
// Broker moves signed task packages through a Redis list and implements the
// queue.Cache used for cached results and group bookkeeping. Healthcheck
// plugs the client into the monitor's readiness probe.
//
// Configuration is described by the Config struct whose fields are populated
// from REDIS_* environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	broker := redis.NewBrokerWithConfig(client, "tenantq", cfg)
//	cluster, err := queue.NewCluster(broker, queue.WithSecret(secret))
//
// # Keys
//
// With list key "tenantq":
//
//	tenantq               pending package ids
//	tenantq@processing    ids taken by a worker and not yet acknowledged
//	tenantq@packs         package bodies by id
//	tenantq:{id}          cached task result
//	tenantq:{group}:keys  result keys of a cached group
//	tenantq:{group}:args  arguments of an iter group
//
// Cache.Clear only removes the "tenantq:" keys.
package redis
