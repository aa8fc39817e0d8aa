package monitor

import "time"

// Config is the monitor HTTP server configuration. An empty Addr disables the monitor.
type Config struct {
	Addr            string        `env:"MONITOR_ADDR"`                             // Addr is the address the monitor listens on, e.g. ":9090".
	ReadTimeout     time.Duration `env:"MONITOR_READ_TIMEOUT" envDefault:"10s"`    // ReadTimeout is the maximum duration for reading the entire request.
	WriteTimeout    time.Duration `env:"MONITOR_WRITE_TIMEOUT" envDefault:"10s"`   // WriteTimeout is the maximum duration before timing out writes of the response.
	IdleTimeout     time.Duration `env:"MONITOR_IDLE_TIMEOUT" envDefault:"60s"`    // IdleTimeout is the maximum amount of time to wait for the next request.
	ShutdownTimeout time.Duration `env:"MONITOR_SHUTDOWN_TIMEOUT" envDefault:"5s"` // ShutdownTimeout is the time allowed for graceful shutdown.
}
