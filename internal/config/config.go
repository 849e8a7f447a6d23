package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Email     EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Driver         string // postgres or sqlite
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	SQLitePath     string
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	Requests      int
	Window        time.Duration
	EmailCooldown time.Duration
}

type AuthConfig struct {
	// Algorithm is HS256, HS384, HS512 (JWT) or v4.local (PASETO)
	Algorithm                  string
	SecretKey                  []byte
	LoginTokenDuration         time.Duration
	PasswordResetTokenDuration time.Duration

	// PasswordHashAlgorithm is argon2id or bcrypt
	PasswordHashAlgorithm string
	BcryptCost            int
	Argon2Time            uint32
	Argon2MemoryKB        uint32
	Argon2Threads         uint8
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FrontendURL  string // Frontend URL for password reset links

	// LogResetLinks logs reset links when SMTP is unset. Development only.
	LogResetLinks bool
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	production := env == "prod"

	var invalid []string

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "users"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			SQLitePath:     getEnv("DB_SQLITE_PATH", "users.db"),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests:      getIntEnv("RATE_LIMIT_REQUESTS", 10),
			Window:        getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
			EmailCooldown: getDurationEnv("RATE_LIMIT_EMAIL_COOLDOWN", 2*time.Minute),
		},
		Auth: AuthConfig{
			Algorithm:                  getEnv("ALGORITHM", ""),
			SecretKey:                  []byte(getEnv("JWT_SECRET_KEY", "")),
			LoginTokenDuration:         getMinutesEnv(production, "ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES"),
			PasswordResetTokenDuration: getMinutesEnv(production, "PASSWORD_RESET_TOKEN_EXPIRY_IN_MINUTES"),
			PasswordHashAlgorithm:      getEnv("PASSWORD_HASH_ALGORITHM", "argon2id"),
			BcryptCost:                 getIntEnv("BCRYPT_COST", 12),
			Argon2Time:                 uint32(getRangeEnv("ARGON2_TIME", 3, 1, 64, &invalid)),
			Argon2MemoryKB:             uint32(getRangeEnv("ARGON2_MEMORY_KB", 64*1024, 8, 4*1024*1024, &invalid)),
			Argon2Threads:              uint8(getRangeEnv("ARGON2_THREADS", 4, 1, 255, &invalid)),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnv("SMTP_PORT", "587"),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPassword:  getEnv("SMTP_PASS", ""),
			FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
			LogResetLinks: !production,
		},
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("out of range settings: %s", strings.Join(invalid, ", "))
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// Validate reports every missing or invalid token setting at once.
func (c *AuthConfig) Validate() error {
	var missing []string
	if c.Algorithm == "" {
		missing = append(missing, "ALGORITHM")
	}
	if len(c.SecretKey) == 0 {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.LoginTokenDuration <= 0 {
		missing = append(missing, "ACCESS_TOKEN_EXPIRY_TIME_IN_MINUTES")
	}
	if c.PasswordResetTokenDuration <= 0 {
		missing = append(missing, "PASSWORD_RESET_TOKEN_EXPIRY_IN_MINUTES")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing or invalid required settings: %s", strings.Join(missing, ", "))
	}

	// PASETO v4.local keys must be exactly 32 bytes
	if c.Algorithm == "v4.local" && len(c.SecretKey) != 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be exactly 32 bytes for v4.local, got %d", len(c.SecretKey))
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == "sqlite" {
		sep := "?"
		if strings.Contains(c.SQLitePath, "?") {
			sep = "&"
		}
		return fmt.Sprintf("file:%s%scache=shared", c.SQLitePath, sep)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getRangeEnv reads an integer that must lie in [lo, hi]. Keys holding
// anything else are appended to invalid and the default is returned.
func getRangeEnv(key string, defaultValue, lo, hi int, invalid *[]string) int {
	value := getIntEnv(key, defaultValue)
	if value < lo || value > hi {
		*invalid = append(*invalid, key)
		return defaultValue
	}
	return value
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

// getMinutesEnv reads a duration in minutes, preferring the PROD_ or DEV_
// prefixed key for the current mode over the bare key. Zero means unset.
func getMinutesEnv(production bool, key string) time.Duration {
	prefix := "DEV_"
	if production {
		prefix = "PROD_"
	}

	value := os.Getenv(prefix + key)
	if value == "" {
		value = os.Getenv(key)
	}

	minutes, err := strconv.Atoi(value)
	if err != nil || minutes <= 0 {
		return 0
	}

	return time.Duration(minutes) * time.Minute
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
