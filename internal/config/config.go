package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gladston3/cf-reporting/internal/cloudflare"
	"github.com/gladston3/cf-reporting/internal/logging"
	"github.com/gladston3/cf-reporting/internal/reports"
)

type Config struct {
	ListenAddr           string
	DBPath               string
	HistoryRetentionDays int
	DBQueryTimeout       time.Duration
	LogLevel             logging.Level
	LogFormat            logging.Format
	GraphQLEndpoint      string
	UpstreamTimeout      time.Duration
	RateLimitPerMinute   int
	TrustedProxies       []netip.Prefix
	MaxRequestBodyBytes  int64
	MaxMindDBPath        string
	BlockBots            bool
	ChartJSURL           string
}

func Load() Config {
	cfg := Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8405"),
		DBPath:               getEnvAllowEmpty("DB_PATH", "./data/cf-reporting.db"),
		HistoryRetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 30),
		DBQueryTimeout:       getEnvDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		LogLevel:             logging.ParseLevel(getEnv("LOG_LEVEL", "INFO")),
		LogFormat:            logging.ParseFormat(getEnv("LOG_FORMAT", "text")),
		GraphQLEndpoint:      getEnv("CLOUDFLARE_GRAPHQL_ENDPOINT", cloudflare.DefaultEndpoint),
		UpstreamTimeout:      getEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 0),
		TrustedProxies:       getEnvPrefixes("TRUSTED_PROXIES"),
		MaxRequestBodyBytes:  getEnvInt64("MAX_REQUEST_BODY_BYTES", 64<<10),
		MaxMindDBPath:        os.Getenv("MAXMIND_DB_PATH"),
		BlockBots:            getEnvBool("BLOCK_BOTS", true),
		ChartJSURL:           getEnv("CHARTJS_URL", reports.DefaultChartJSURL),
	}

	if cfg.HistoryRetentionDays < 0 {
		slog.Warn("negative history retention, disabling cleanup", "value", cfg.HistoryRetentionDays)
		cfg.HistoryRetentionDays = 0
	}
	if cfg.MaxRequestBodyBytes <= 0 {
		cfg.MaxRequestBodyBytes = 64 << 10
	}

	return cfg
}

// HistoryEnabled reports whether generation history is persisted.
func (c Config) HistoryEnabled() bool {
	return c.DBPath != ""
}

// HistoryRetention returns the cleanup horizon, or 0 when cleanup is disabled.
func (c Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid bool environment variable", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid int environment variable", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

func getEnvInt64(key string, def int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		slog.Warn("invalid int64 environment variable", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}

// getEnvPrefixes reads a comma-separated list of CIDRs or bare addresses.
// Invalid entries are skipped with a warning.
func getEnvPrefixes(key string) []netip.Prefix {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []netip.Prefix
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p, err := netip.ParsePrefix(part); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			slog.Warn("invalid proxy address", "key", key, "value", part, "error", err)
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration environment variable", "key", key, "value", val, "error", err)
		return def
	}
	return parsed
}
