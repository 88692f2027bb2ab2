package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.RWMutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates the configuration struct from environment variables based on
// its `env` field tags. The first call loads a .env file if one exists. Each
// configuration type is parsed once per process; later calls return the
// cached value so every package sees the same configuration.
//
// Example:
//
//	type MailerConfig struct {
//		Token string `env:"POSTMARK_SERVER_TOKEN,required"`
//	}
//
//	var cfg MailerConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// A missing .env file is fine - env vars may be set by the environment.
		_ = godotenv.Load()
	})

	name := typeName[T]()

	mu.RLock()
	cached, ok := loaded[name]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	mu.Lock()
	// Another goroutine may have parsed the same type concurrently; the values
	// are identical either way since both read the same environment.
	if cached, ok := loaded[name]; ok {
		*v = cached.(T)
	} else {
		loaded[name] = *v
	}
	mu.Unlock()

	return nil
}

// MustLoad works like Load but panics on failure. Intended for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
