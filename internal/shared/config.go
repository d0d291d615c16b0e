package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	JWTSecret string
	JWTTTL    time.Duration

	SettlementBase string
	SettlementKey  string
	RefundRPS      int
	RefundWorkers  int

	CacheTTL time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		// clientFoundRows so the guarded status updates count matched rows
		MySQLDSN:  env("MYSQL_DSN", "root:root@tcp(localhost:3306)/stayhub?parseTime=true&clientFoundRows=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		JWTSecret: env("JWT_SECRET", ""),
		JWTTTL:    time.Duration(atoi("JWT_TTL_SECONDS", 86400)) * time.Second,

		SettlementBase: env("SETTLEMENT_BASE_URL", "http://localhost:9200"),
		SettlementKey:  env("SETTLEMENT_API_KEY", ""),
		RefundRPS:      atoi("REFUND_RPS", 5),
		RefundWorkers:  atoi("REFUND_WORKERS", 8),

		CacheTTL: time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if c.SettlementKey == "" {
		log.Warn().Msg("SETTLEMENT_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
