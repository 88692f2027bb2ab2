package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/pkg/config"
)

type testConfig struct {
	Name    string `env:"CONFIG_TEST_NAME" envDefault:"fallback"`
	Retries int    `env:"CONFIG_TEST_RETRIES" envDefault:"3"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("values come from environment", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_NAME", "from-env")

		type envConfig struct {
			Name string `env:"CONFIG_TEST_NAME"`
		}
		var cfg envConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "from-env", cfg.Name)
	})

	t.Run("cached after first load", func(t *testing.T) {
		var first testConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CONFIG_TEST_NAME", "changed-later")

		var second testConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		var cfg *testConfig
		err := config.Load(cfg)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
