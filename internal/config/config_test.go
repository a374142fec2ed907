package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "tcp(localhost:3306)")
	t.Setenv("DB_NAME", "support")
	t.Setenv("JWT_SECRET", "dev-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, AuthProviderJWT, cfg.AuthProvider)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 256, cfg.WSSendBuffer)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_AllowedOriginsList(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid jwt", func(*Config) {}, ""},
		{"jwt without secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"firebase without project", func(c *Config) { c.AuthProvider = AuthProviderFirebase }, "FIREBASE_PROJECT_ID"},
		{"unknown provider", func(c *Config) { c.AuthProvider = "basic" }, "AUTH_PROVIDER"},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, "DB_DRIVER"},
		{"zero send buffer", func(c *Config) { c.WSSendBuffer = 0 }, "WS_SEND_BUFFER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				DBDriver:     DriverPostgres,
				AuthProvider: AuthProviderJWT,
				JWTSecret:    "s",
				WSSendBuffer: 16,
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
