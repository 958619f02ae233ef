package alerts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadConfig loads alerting configuration from environment variables.
// Returns a config with Enabled=false if alerting is not configured.
func LoadConfig() Config {
	cfg := Config{
		Enabled:          getEnvBool("ALERT_ENABLED", false),
		EvaluateInterval: getEnvDuration("ALERT_EVALUATE_INTERVAL", defaultInterval),
		Rules:            make([]Rule, 0),
		Channels:         make([]Channel, 0),
	}

	if !cfg.Enabled {
		return cfg
	}

	if rulesPath := os.Getenv("ALERT_RULES_PATH"); rulesPath != "" {
		if rules, err := loadRulesFromFile(rulesPath); err != nil {
			slog.Warn("failed to load alert rules from file", "path", rulesPath, "error", err)
		} else {
			cfg.Rules = append(cfg.Rules, rules...)
		}
	}

	cfg.Rules = append(cfg.Rules, loadEnvRules()...)
	cfg.Channels = loadChannels()

	return cfg
}

// loadRulesFromFile reads a JSON array of rules. Window and cooldown are
// duration strings such as "15m".
func loadRulesFromFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Rule
		Window   string `json:"window"`
		Cooldown string `json:"cooldown"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule := r.Rule
		if r.Window != "" {
			d, err := time.ParseDuration(r.Window)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid window %q", rule.Name, r.Window)
			}
			rule.Window = d
		}
		if r.Cooldown != "" {
			d, err := time.ParseDuration(r.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid cooldown %q", rule.Name, r.Cooldown)
			}
			rule.Cooldown = d
		}
		if rule.Severity == "" {
			rule.Severity = SeverityWarning
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func loadEnvRules() []Rule {
	var rules []Rule

	// ALERT_FAILURE_RATE_THRESHOLD is a percentage of failed generations.
	if threshold := getEnvFloat("ALERT_FAILURE_RATE_THRESHOLD", 0); threshold > 0 {
		rules = append(rules, Rule{
			Name:       "failure_rate_default",
			Type:       AlertTypeFailureRate,
			Enabled:    true,
			Threshold:  threshold,
			MinSamples: int64(getEnvInt("ALERT_FAILURE_RATE_MIN_SAMPLES", 5)),
			Window:     getEnvDuration("ALERT_FAILURE_RATE_WINDOW", defaultWindow),
			Cooldown:   getEnvDuration("ALERT_FAILURE_RATE_COOLDOWN", time.Hour),
			Severity:   AlertSeverity(getEnv("ALERT_FAILURE_RATE_SEVERITY", string(SeverityCritical))),
		})
	}

	if threshold := getEnvFloat("ALERT_UPSTREAM_ERRORS_THRESHOLD", 0); threshold > 0 {
		rules = append(rules, Rule{
			Name:      "upstream_errors_default",
			Type:      AlertTypeUpstreamErrors,
			Enabled:   true,
			Threshold: threshold,
			Window:    getEnvDuration("ALERT_UPSTREAM_ERRORS_WINDOW", defaultWindow),
			Cooldown:  getEnvDuration("ALERT_UPSTREAM_ERRORS_COOLDOWN", time.Hour),
			Severity:  AlertSeverity(getEnv("ALERT_UPSTREAM_ERRORS_SEVERITY", string(SeverityWarning))),
		})
	}

	if threshold := getEnvFloat("ALERT_VOLUME_SPIKE_THRESHOLD", 0); threshold > 0 {
		rules = append(rules, Rule{
			Name:      "volume_spike_default",
			Type:      AlertTypeVolumeSpike,
			Enabled:   true,
			Threshold: threshold,
			Window:    getEnvDuration("ALERT_VOLUME_SPIKE_WINDOW", time.Hour),
			Cooldown:  getEnvDuration("ALERT_VOLUME_SPIKE_COOLDOWN", time.Hour),
			Severity:  AlertSeverity(getEnv("ALERT_VOLUME_SPIKE_SEVERITY", string(SeverityWarning))),
		})
	}

	if threshold := getEnvFloat("ALERT_VOLUME_DROP_THRESHOLD", 0); threshold > 0 {
		rules = append(rules, Rule{
			Name:      "volume_drop_default",
			Type:      AlertTypeVolumeDrop,
			Enabled:   true,
			Threshold: threshold,
			Window:    getEnvDuration("ALERT_VOLUME_DROP_WINDOW", 24*time.Hour),
			Cooldown:  getEnvDuration("ALERT_VOLUME_DROP_COOLDOWN", 24*time.Hour),
			Severity:  AlertSeverity(getEnv("ALERT_VOLUME_DROP_SEVERITY", string(SeverityInfo))),
		})
	}

	// Rejected tokens surface as 401/403 from the analytics API.
	if threshold := getEnvFloat("ALERT_AUTH_FAILURES_THRESHOLD", 0); threshold > 0 {
		rules = append(rules, Rule{
			Name:        "auth_failures_default",
			Type:        AlertTypeStatusCode,
			Enabled:     true,
			Threshold:   threshold,
			StatusCodes: []int{401, 403},
			Window:      getEnvDuration("ALERT_AUTH_FAILURES_WINDOW", defaultWindow),
			Cooldown:    getEnvDuration("ALERT_AUTH_FAILURES_COOLDOWN", time.Hour),
			Severity:    AlertSeverity(getEnv("ALERT_AUTH_FAILURES_SEVERITY", string(SeverityWarning))),
		})
	}

	return rules
}

func loadChannels() []Channel {
	var channels []Channel

	if smtpHost := os.Getenv("ALERT_SMTP_HOST"); smtpHost != "" {
		if to := splitList(os.Getenv("ALERT_EMAIL_TO")); len(to) > 0 {
			channels = append(channels, Channel{
				Type:         ChannelTypeEmail,
				Enabled:      true,
				SMTPHost:     smtpHost,
				SMTPPort:     getEnvInt("ALERT_SMTP_PORT", 587),
				SMTPUsername: os.Getenv("ALERT_SMTP_USERNAME"),
				SMTPPassword: os.Getenv("ALERT_SMTP_PASSWORD"),
				SMTPFrom:     getEnv("ALERT_SMTP_FROM", "cf-reporting@localhost"),
				EmailTo:      to,
			})
		} else {
			slog.Warn("ALERT_SMTP_HOST set without ALERT_EMAIL_TO, email alerts disabled")
		}
	}

	if webhookURL := os.Getenv("ALERT_WEBHOOK_URL"); webhookURL != "" {
		channels = append(channels, Channel{
			Type:           ChannelTypeWebhook,
			Enabled:        true,
			WebhookURL:     webhookURL,
			WebhookMethod:  getEnv("ALERT_WEBHOOK_METHOD", "POST"),
			WebhookHeaders: parseHeaders(os.Getenv("ALERT_WEBHOOK_HEADERS")),
		})
	}

	return channels
}

// splitList splits a comma-separated list and drops empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseHeaders reads "Key1:Value1,Key2:Value2".
func parseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range splitList(s) {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if k = strings.TrimSpace(k); k != "" {
			headers[k] = strings.TrimSpace(v)
		}
	}
	return headers
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
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
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return parsed
}
