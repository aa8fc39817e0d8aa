package queue

import "time"

// Config holds the configuration for the task cluster
type Config struct {
	Name              string        `env:"QUEUE_NAME" envDefault:"tenantq"`
	SecretKey         string        `env:"QUEUE_SECRET_KEY,required"`
	Workers           int           `env:"QUEUE_WORKERS" envDefault:"4"`
	PollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	Timeout           time.Duration `env:"QUEUE_TIMEOUT" envDefault:"5m"`
	CacheTTL          time.Duration `env:"QUEUE_CACHE_TTL" envDefault:"0s"`
	SchedulerInterval time.Duration `env:"QUEUE_SCHEDULER_INTERVAL" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	SaveResults       bool          `env:"QUEUE_SAVE_RESULTS" envDefault:"true"`
}
