package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:         "8080",
		Env:          "development",
		JWTSecret:    "secure-secret-at-least-32-chars-long",
		DBDriver:     "postgres",
		DBPassword:   "secure-password",
		DBSSLMode:    "require",
		DBSchemaMode: "sql",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development", func(c *Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"Sqlite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"Unknown schema mode", func(c *Config) { c.DBSchemaMode = "hybrid" }, true},
		{"Bcrypt cost too low", func(c *Config) { c.BcryptCost = 2 }, true},
		{"Short secret outside production", func(c *Config) { c.JWTSecret = "short" }, false},
		{"Production short secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "short"
		}, true},
		{"Production weak db password", func(c *Config) {
			c.Env = "prod"
			c.DBPassword = "password"
		}, true},
		{"Production ssl disabled", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "disable"
		}, true},
		{"Production sqlite ignores db password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "sqlite"
			c.DBPassword = ""
			c.DBSSLMode = ""
		}, false},
		{"Production valid", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("PORT", "9999")
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-to-pass")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, 2*time.Hour, c.SessionTTL())
	assert.Equal(t, "env-secret-that-is-long-enough-to-pass", c.JWTSecret)
}

func TestDefaults_NoSigningSecret(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	assert.False(t, v.IsSet("JWT_SECRET"))
	assert.Empty(t, v.GetString("JWT_SECRET"))
}

func TestConfig_Durations(t *testing.T) {
	c := &Config{}
	assert.Equal(t, 7*24*time.Hour, c.SessionTTL())
	assert.Equal(t, 5*time.Minute, c.AutosaveCacheTTL())

	c.AutosaveCacheTTLSeconds = 30
	assert.Equal(t, 30*time.Second, c.AutosaveCacheTTL())
}
