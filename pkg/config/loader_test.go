package config_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/pkg/config"
)

type inviteTestConfig struct {
	Salt        string `env:"CFG_TEST_INVITE_SALT,required"`
	ExpireHours int    `env:"CFG_TEST_INVITE_EXPIRE_HOURS" envDefault:"72"`
}

type stripeTestConfig struct {
	DomainURL string `env:"CFG_TEST_STRIPE_DOMAIN_URL" envDefault:"http://localhost:3000"`
}

type requiredTestConfig struct {
	Secret string `env:"CFG_TEST_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("parses values and defaults", func(t *testing.T) {
		config.Reset()
		t.Setenv("CFG_TEST_INVITE_SALT", "pepper")

		var cfg inviteTestConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "pepper", cfg.Salt)
		assert.Equal(t, 72, cfg.ExpireHours)
	})

	t.Run("caches parsed type", func(t *testing.T) {
		config.Reset()
		t.Setenv("CFG_TEST_STRIPE_DOMAIN_URL", "https://app.example.com")

		var first stripeTestConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CFG_TEST_STRIPE_DOMAIN_URL", "https://changed.example.com")

		var second stripeTestConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "https://app.example.com", second.DomainURL)

		config.Reset()
		var third stripeTestConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, "https://changed.example.com", third.DomainURL)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()

		var cfg requiredTestConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *inviteTestConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("must load panics", func(t *testing.T) {
		config.Reset()
		var cfg requiredTestConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})
}

func TestLoad_Concurrent(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_TEST_INVITE_SALT", "concurrent")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var cfg inviteTestConfig
			if assert.NoError(t, config.Load(&cfg)) {
				assert.Equal(t, "concurrent", cfg.Salt)
			}
		}()
	}
	wg.Wait()
}
