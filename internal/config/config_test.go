package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:        "5000",
		Env:         "production",
		JWTSecret:   "secure-secret-at-least-32-chars-long",
		DBDriver:    "postgres",
		DBPassword:  "secure-password",
		DBSSLMode:   "require",
		MaxUploadMB: 10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"default secret in production", func(c *Config) { c.JWTSecret = DefaultJWTSecret }, true},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, true},
		{"weak db password in production", func(c *Config) { c.DBPassword = "password" }, true},
		{"ssl disabled in production", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"ssl disabled in development", func(c *Config) { c.Env = "development"; c.DBSSLMode = "disable" }, false},
		{"default secret in development", func(c *Config) { c.Env = "development"; c.JWTSecret = DefaultJWTSecret }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"zero upload size", func(c *Config) { c.MaxUploadMB = 0 }, true},
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

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("PORT", "9999")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "https://app.example.com", c.FrontendURL)
	assert.False(t, c.DBAutoMigrate)
	assert.Equal(t, DefaultAvatarURL, c.DefaultAvatar)
	assert.Equal(t, "threads-api", c.JWTIssuer)
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "require"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=require TimeZone=UTC", c.DSN())
}
