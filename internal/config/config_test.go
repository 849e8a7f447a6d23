package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("ALGORITHM", "HS256")
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES", "30")
	t.Setenv("PASSWORD_RESET_TOKEN_EXPIRY_IN_MINUTES", "15")
	t.Setenv("DEV_ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES", "")
	t.Setenv("PROD_ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES", "")
	t.Setenv("DB_DRIVER", "")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, []byte("test-secret"), cfg.Auth.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LoginTokenDuration)
	assert.Equal(t, 15*time.Minute, cfg.Auth.PasswordResetTokenDuration)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.True(t, cfg.Email.LogResetLinks)
}

func TestLoad_ModePrefixedDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PROD_ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES", "5")
	t.Setenv("DEV_ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.LoginTokenDuration)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.False(t, cfg.Email.LogResetLinks)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALGORITHM", "")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALGORITHM")
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestLoad_PasetoKeyLength(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALGORITHM", "v4.local")
	t.Setenv("JWT_SECRET_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestLoad_Argon2OutOfRange(t *testing.T) {
	for key, value := range map[string]string{
		"ARGON2_MEMORY_KB": "-1",
		"ARGON2_TIME":      "0",
		"ARGON2_THREADS":   "256",
	} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "users", SSLMode: "disable", ChannelBinding: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=users sslmode=disable channel_binding=require", pg.ConnectionString())

	lite := DatabaseConfig{Driver: "sqlite", SQLitePath: "local.db"}
	assert.Equal(t, "file:local.db?cache=shared", lite.ConnectionString())

	mem := DatabaseConfig{Driver: "sqlite", SQLitePath: "test?mode=memory"}
	assert.Equal(t, "file:test?mode=memory&cache=shared", mem.ConnectionString())
}
