package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:                   "8080",
		DataBackend:            BackendSQLite,
		DBPath:                 "finance.db",
		SessionDuration:        720 * time.Hour,
		SessionCleanupInterval: time.Hour,
		AMQPExchange:           "finance.events",
		LogFormat:              "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errorString string
	}{
		{name: "valid sqlite config", mutate: func(c *Config) {}},
		{name: "valid memory config", mutate: func(c *Config) { c.DataBackend = BackendMemory; c.DBPath = "" }},
		{
			name:   "valid postgres config",
			mutate: func(c *Config) { c.DataBackend = BackendPostgres; c.DatabaseURL = "postgres://localhost/finance" },
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			errorString: "invalid data backend 'sheets'",
		},
		{
			name:        "sqlite without path",
			mutate:      func(c *Config) { c.DBPath = "" },
			errorString: "DB_PATH cannot be empty",
		},
		{
			name:        "postgres without url",
			mutate:      func(c *Config) { c.DataBackend = BackendPostgres },
			errorString: "DATABASE_URL is required",
		},
		{
			name:        "bad amqp scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672" },
			errorString: "invalid AMQP URL scheme 'http'",
		},
		{
			name:        "session too short",
			mutate:      func(c *Config) { c.SessionDuration = time.Second },
			errorString: "invalid session duration",
		},
		{
			name:        "admin user without password",
			mutate:      func(c *Config) { c.AdminUser = "admin@example.com" },
			errorString: "ADMIN_USER and ADMIN_PASSWORD must be set together",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.errorString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	c := validConfig()
	c.Port = "abc"
	c.DataBackend = "nope"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "invalid data backend")
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SECURE_COOKIE", "true")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com ,")

	c := Load()

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, BackendMemory, c.DataBackend)
	assert.True(t, c.SecureCookie)
	assert.Equal(t, 2*time.Hour, c.SessionDuration)
	assert.Equal(t, time.Hour, c.SessionCleanupInterval)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, c.CORSOrigins)
	assert.Equal(t, "finance.events", c.AMQPExchange)
}
