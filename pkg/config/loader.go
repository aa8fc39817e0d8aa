package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache stores parsed configuration values keyed by type name.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
}

var (
	globalCache = &configCache{values: make(map[string]any)}

	defaultEnvOnce sync.Once
)

// LoadEnv loads the given .env files into the process environment. Files
// listed later override values from earlier ones. Variables already present
// in the environment are left untouched unless a file overrides them.
// With no paths the default .env in the working directory is loaded.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		return godotenv.Load()
	}
	if err := godotenv.Load(paths[0]); err != nil {
		return err
	}
	if len(paths) > 1 {
		return godotenv.Overload(paths[1:]...)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on error.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("failed to load env files: %v", err))
	}
}

// Load parses environment variables into v. The first call per type parses
// the environment, later calls return the cached copy.
//
// The default .env file is loaded once before the first parse; a missing
// file is not an error.
//
//	var cfg queue.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	defaultEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	name := typeName[T]()

	globalCache.mu.RLock()
	cached, ok := globalCache.values[name]
	globalCache.mu.RUnlock()
	if ok {
		return assign(v, cached)
	}

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	// Another goroutine may have parsed it while we waited for the lock
	if cached, ok := globalCache.values[name]; ok {
		return assign(v, cached)
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	globalCache.values[name] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ForceReload drops the cached value of T and parses the environment again.
func ForceReload[T any](v *T) error {
	globalCache.mu.Lock()
	delete(globalCache.values, typeName[T]())
	globalCache.mu.Unlock()
	return Load(v)
}

// ResetCache drops every cached configuration.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.mu.Unlock()
}

func assign[T any](v *T, cached any) error {
	val, ok := cached.(T)
	if !ok {
		return ErrInvalidConfigType
	}
	*v = val
	return nil
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
