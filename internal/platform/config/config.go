package config

import (
	"os"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	PostgresDSN   string
	JWTSigningKey string
	PolicyFile    string
	SweepSchedule string
	Redis         RedisConfig
}

// RedisConfig configures the optional archive-status cache. An empty URL
// disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CIVICDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	policyFile := os.Getenv("RETENTION_POLICY_FILE")
	if policyFile == "" {
		policyFile = "retention-policies.yaml"
	}

	// Standard cron syntax; default is a daily sweep at 03:00.
	schedule := os.Getenv("SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	return Server{
		Addr:          addr,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		JWTSigningKey: jwtSigningKey,
		PolicyFile:    policyFile,
		SweepSchedule: schedule,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
