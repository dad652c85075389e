package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/WarriorNews/internal/collector"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	// Basic Auth，为空时不启用
	BasicAuthUser string
	BasicAuthPass string

	// SourceURLs 覆盖各来源默认地址
	SourceURLs       map[collector.SourceKind]string
	RenderTimeout    time.Duration
	ConcurrencyLimit int
	ChromePath       string
	UserAgent        string
}

func Load() *Config {
	// 本地开发时可以放一个 .env，生产环境直接用环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=warriornews password=warriornews dbname=warriornews port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6380"),
		CronSpec:         getEnv("CRON_SPEC", "*/30 * * * *"),
		BasicAuthUser:    os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:    os.Getenv("APP_BASIC_PASS"),
		SourceURLs:       sourceURLs(),
		RenderTimeout:    getDuration("RENDER_TIMEOUT", 10*time.Second),
		ConcurrencyLimit: getInt("INGEST_CONCURRENCY", 4),
		ChromePath:       os.Getenv("CHROME_PATH"),
		UserAgent:        getEnv("SCRAPER_USER_AGENT", "WarriorNewsBot/1.0"),
	}

	log.Printf("config loaded: port=%s cron=%s render_timeout=%s concurrency=%d",
		cfg.AppPort, cfg.CronSpec, cfg.RenderTimeout, cfg.ConcurrencyLimit)
	return cfg
}

// sourceURLs 读取 SOURCE_URL_<CODE>，例如 SOURCE_URL_ICY
func sourceURLs() map[collector.SourceKind]string {
	urls := make(map[collector.SourceKind]string)
	for _, k := range collector.AllSources {
		if v := os.Getenv("SOURCE_URL_" + strings.ToUpper(string(k))); v != "" {
			urls[k] = v
		}
	}
	return urls
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warn: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
