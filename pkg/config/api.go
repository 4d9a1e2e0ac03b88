package config

import "time"

// APIConfig holds runtime configuration for the monitoring API service.
type APIConfig struct {
	Environment              string
	Addr                     string
	LogLevel                 string
	DatabaseURL              string
	MigrationsDir            string
	CollectorToken           string
	RefreshInterval          time.Duration
	RecordTTL                time.Duration
	IncludeMissingUATWarning bool
	RateLimitRedisAddr       string
	RateLimitRedisPass       string
	RateLimitRedisDB         int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:              GetString("APP_ENV", "development"),
		Addr:                     GetString("API_ADDR", ":4000"),
		LogLevel:                 GetString("LOG_LEVEL", "info"),
		DatabaseURL:              GetString("DATABASE_URL", "postgres://apimon:apimon@db:5432/apimon?sslmode=disable"),
		MigrationsDir:            GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		CollectorToken:           GetString("COLLECTOR_AUTH_TOKEN", ""),
		RefreshInterval:          time.Duration(GetInt("COMPLIANCE_REFRESH_SECONDS", 60)) * time.Second,
		RecordTTL:                time.Duration(GetInt("RECORD_TTL_HOURS", 72)) * time.Hour,
		IncludeMissingUATWarning: GetBool("INCLUDE_MISSING_UAT_WARNING", true),
		RateLimitRedisAddr:       GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:       GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:         GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
