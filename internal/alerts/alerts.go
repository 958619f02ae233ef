// Package alerts watches the generation history and notifies operators when
// report generation starts failing or its volume moves sharply. Notifications
// go out by email and webhook.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertType identifies the type of alert condition.
type AlertType string

const (
	AlertTypeFailureRate    AlertType = "failure_rate"    // share of failed generations
	AlertTypeUpstreamErrors AlertType = "upstream_errors" // count of 5xx outcomes
	AlertTypeVolumeSpike    AlertType = "volume_spike"    // sudden increase
	AlertTypeVolumeDrop     AlertType = "volume_drop"     // sudden decrease
	AlertTypeStatusCode     AlertType = "status_code"     // specific status threshold
)

// AlertSeverity indicates the severity level.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

const (
	defaultWindow   = 15 * time.Minute
	defaultInterval = time.Minute
	historyLimit    = 100
)

// Alert represents a triggered alert.
type Alert struct {
	ID          string        `json:"id"`
	Rule        string        `json:"rule"`
	Type        AlertType     `json:"type"`
	Severity    AlertSeverity `json:"severity"`
	ZoneID      string        `json:"zone_id,omitempty"`
	Message     string        `json:"message"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	TriggeredAt time.Time     `json:"triggered_at"`
	Details     any           `json:"details,omitempty"`
}

// Rule defines an alerting rule.
type Rule struct {
	Name        string        `json:"name"`
	Type        AlertType     `json:"type"`
	Enabled     bool          `json:"enabled"`
	Threshold   float64       `json:"threshold"`
	Window      time.Duration `json:"window"`
	Cooldown    time.Duration `json:"cooldown"`
	Severity    AlertSeverity `json:"severity"`
	ZoneID      string        `json:"zone_id,omitempty"`
	MinSamples  int64         `json:"min_samples,omitempty"`
	StatusCodes []int         `json:"status_codes,omitempty"`
}

// ChannelType identifies the notification channel type.
type ChannelType string

const (
	ChannelTypeEmail   ChannelType = "email"
	ChannelTypeWebhook ChannelType = "webhook"
)

// Channel represents a notification channel configuration.
type Channel struct {
	Type    ChannelType `json:"type"`
	Enabled bool        `json:"enabled"`
	// Email settings
	SMTPHost     string   `json:"smtp_host,omitempty"`
	SMTPPort     int      `json:"smtp_port,omitempty"`
	SMTPUsername string   `json:"smtp_username,omitempty"`
	SMTPPassword string   `json:"-"`
	SMTPFrom     string   `json:"smtp_from,omitempty"`
	EmailTo      []string `json:"email_to,omitempty"`
	// Webhook settings
	WebhookURL     string            `json:"webhook_url,omitempty"`
	WebhookMethod  string            `json:"webhook_method,omitempty"` // POST (default) or PUT
	WebhookHeaders map[string]string `json:"-"`
}

// Config holds the complete alerting configuration.
type Config struct {
	Enabled          bool          `json:"enabled"`
	EvaluateInterval time.Duration `json:"evaluate_interval"`
	Rules            []Rule        `json:"rules"`
	Channels         []Channel     `json:"channels"`
}

// AlertStats holds the generation counts a rule is evaluated against.
type AlertStats struct {
	Total        int64
	Failed       int64
	Upstream5xx  int64
	StatusCounts map[int]int64
	PrevTotal    int64 // generations in the preceding window
}

// StatsProvider fetches generation counts for the trailing window.
// Implemented by storage.AlertStatsAdapter.
type StatsProvider interface {
	GetAlertStats(ctx context.Context, window time.Duration, zoneID string) (*AlertStats, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for webhook delivery.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithOnFire registers fn to run synchronously for every fired alert.
func WithOnFire(fn func(Alert)) Option {
	return func(m *Manager) { m.onFire = fn }
}

// Manager handles alert evaluation and notification.
type Manager struct {
	cfg      Config
	stats    StatsProvider
	client   *http.Client
	onFire   func(Alert)
	now      func() time.Time
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

	mu       sync.RWMutex
	lastFire map[string]time.Time // rule name -> last fired time
	history  []Alert

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a new alert manager.
func NewManager(cfg Config, stats StatsProvider, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		stats:    stats,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		sendMail: smtp.SendMail,
		lastFire: make(map[string]time.Time),
		history:  make([]Alert, 0),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the alert evaluation loop. It returns immediately when
// alerting is disabled or there are no rules.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		slog.Info("alerting disabled")
		return
	}
	if len(m.cfg.Rules) == 0 {
		slog.Warn("alerting enabled without rules")
		return
	}

	interval := m.cfg.EvaluateInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("alerting started", "interval", interval, "rules", len(m.cfg.Rules), "channels", len(m.cfg.Channels))

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Evaluate(ctx)
			}
		}
	}()
}

// Stop stops the evaluation loop and waits for it to exit. Safe to call more
// than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	slog.Debug("alerting stopped")
}

// GetHistory returns up to limit recent alerts, newest first. limit <= 0
// returns all retained alerts.
func (m *Manager) GetHistory(limit int) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	result := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		result[i] = m.history[len(m.history)-1-i]
	}
	return result
}

// GetConfig returns the current alerting configuration.
func (m *Manager) GetConfig() Config {
	return m.cfg
}

// Evaluate checks every enabled rule once.
func (m *Manager) Evaluate(ctx context.Context) {
	for _, rule := range m.cfg.Rules {
		if !rule.Enabled {
			continue
		}

		m.mu.RLock()
		last, ok := m.lastFire[rule.Name]
		m.mu.RUnlock()
		if ok && m.now().Sub(last) < rule.Cooldown {
			continue
		}

		window := rule.Window
		if window <= 0 {
			window = defaultWindow
		}

		stats, err := m.stats.GetAlertStats(ctx, window, rule.ZoneID)
		if err != nil {
			slog.Warn("failed to get alert stats", "rule", rule.Name, "error", err)
			continue
		}

		if alert := m.checkRule(rule, stats); alert != nil {
			m.fire(*alert)
		}
	}
}

func (m *Manager) checkRule(rule Rule, stats *AlertStats) *Alert {
	if stats == nil {
		return nil
	}
	switch rule.Type {
	case AlertTypeFailureRate:
		return m.checkFailureRate(rule, stats)
	case AlertTypeUpstreamErrors:
		return m.checkUpstreamErrors(rule, stats)
	case AlertTypeVolumeSpike:
		return m.checkVolumeSpike(rule, stats)
	case AlertTypeVolumeDrop:
		return m.checkVolumeDrop(rule, stats)
	case AlertTypeStatusCode:
		return m.checkStatusCode(rule, stats)
	default:
		return nil
	}
}

func (m *Manager) newAlert(rule Rule, value float64, msg string, details map[string]any) *Alert {
	details["window"] = rule.Window.String()
	return &Alert{
		ID:          uuid.NewString(),
		Rule:        rule.Name,
		Type:        rule.Type,
		Severity:    rule.Severity,
		ZoneID:      rule.ZoneID,
		Message:     msg,
		Value:       value,
		Threshold:   rule.Threshold,
		TriggeredAt: m.now(),
		Details:     details,
	}
}

func (m *Manager) checkFailureRate(rule Rule, stats *AlertStats) *Alert {
	if stats.Total == 0 || stats.Total < rule.MinSamples {
		return nil
	}

	rate := float64(stats.Failed) / float64(stats.Total) * 100
	if rate < rule.Threshold {
		return nil
	}
	return m.newAlert(rule, rate,
		fmt.Sprintf("Report failure rate %.2f%% exceeds threshold %.2f%%", rate, rule.Threshold),
		map[string]any{"total": stats.Total, "failed": stats.Failed})
}

func (m *Manager) checkUpstreamErrors(rule Rule, stats *AlertStats) *Alert {
	if stats.Upstream5xx == 0 || float64(stats.Upstream5xx) < rule.Threshold {
		return nil
	}
	return m.newAlert(rule, float64(stats.Upstream5xx),
		fmt.Sprintf("%d generations failed with a server error (threshold %.0f)", stats.Upstream5xx, rule.Threshold),
		map[string]any{"total": stats.Total, "upstream_5xx": stats.Upstream5xx})
}

func (m *Manager) checkVolumeSpike(rule Rule, stats *AlertStats) *Alert {
	if stats.PrevTotal == 0 || stats.Total == 0 {
		return nil
	}

	increase := float64(stats.Total-stats.PrevTotal) / float64(stats.PrevTotal) * 100
	if increase < rule.Threshold {
		return nil
	}
	return m.newAlert(rule, increase,
		fmt.Sprintf("Report volume increased by %.1f%% (threshold: %.1f%%)", increase, rule.Threshold),
		map[string]any{"current": stats.Total, "previous": stats.PrevTotal})
}

func (m *Manager) checkVolumeDrop(rule Rule, stats *AlertStats) *Alert {
	if stats.PrevTotal == 0 {
		return nil
	}

	decrease := float64(stats.PrevTotal-stats.Total) / float64(stats.PrevTotal) * 100
	if decrease < rule.Threshold {
		return nil
	}
	return m.newAlert(rule, decrease,
		fmt.Sprintf("Report volume dropped by %.1f%% (threshold: %.1f%%)", decrease, rule.Threshold),
		map[string]any{"current": stats.Total, "previous": stats.PrevTotal})
}

func (m *Manager) checkStatusCode(rule Rule, stats *AlertStats) *Alert {
	if len(rule.StatusCodes) == 0 {
		return nil
	}

	var matched int64
	for _, code := range rule.StatusCodes {
		matched += stats.StatusCounts[code]
	}
	if matched == 0 || float64(matched) < rule.Threshold {
		return nil
	}
	return m.newAlert(rule, float64(matched),
		fmt.Sprintf("Status code count %d exceeds threshold %.0f", matched, rule.Threshold),
		map[string]any{"status_codes": rule.StatusCodes, "matched": matched})
}

func (m *Manager) fire(alert Alert) {
	m.mu.Lock()
	m.lastFire[alert.Rule] = alert.TriggeredAt
	m.history = append(m.history, alert)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.mu.Unlock()

	slog.Warn("alert triggered",
		"rule", alert.Rule,
		"type", alert.Type,
		"severity", alert.Severity,
		"message", alert.Message,
		"value", alert.Value,
		"threshold", alert.Threshold,
	)

	if m.onFire != nil {
		m.onFire(alert)
	}

	for _, ch := range m.cfg.Channels {
		if !ch.Enabled {
			continue
		}
		m.wg.Add(1)
		go func(ch Channel) {
			defer m.wg.Done()
			m.sendToChannel(ch, alert)
		}(ch)
	}
}

func (m *Manager) sendToChannel(ch Channel, alert Alert) {
	switch ch.Type {
	case ChannelTypeEmail:
		if err := m.sendEmail(ch, alert); err != nil {
			slog.Error("failed to send email alert", "rule", alert.Rule, "error", err)
		}
	case ChannelTypeWebhook:
		if err := m.sendWebhook(ch, alert); err != nil {
			slog.Error("failed to send webhook alert", "rule", alert.Rule, "error", err)
		}
	}
}

func formatEmail(ch Channel, alert Alert) []byte {
	subject := fmt.Sprintf("[cf-reporting] %s - %s", alert.Severity, alert.Type)

	var body strings.Builder
	fmt.Fprintf(&body, "Rule: %s\nSeverity: %s\nTime: %s\nMessage: %s\nValue: %.2f\nThreshold: %.2f\n",
		alert.Rule,
		alert.Severity,
		alert.TriggeredAt.Format(time.RFC3339),
		alert.Message,
		alert.Value,
		alert.Threshold,
	)
	if alert.ZoneID != "" {
		fmt.Fprintf(&body, "Zone: %s\n", alert.ZoneID)
	}
	if alert.Details != nil {
		details, _ := json.MarshalIndent(alert.Details, "", "  ")
		fmt.Fprintf(&body, "\nDetails:\n%s\n", details)
	}

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		ch.SMTPFrom,
		strings.Join(ch.EmailTo, ", "),
		subject,
		body.String(),
	))
}

func (m *Manager) sendEmail(ch Channel, alert Alert) error {
	if ch.SMTPHost == "" || len(ch.EmailTo) == 0 {
		return errors.New("email channel not properly configured")
	}

	addr := fmt.Sprintf("%s:%d", ch.SMTPHost, ch.SMTPPort)
	var auth smtp.Auth
	if ch.SMTPUsername != "" {
		auth = smtp.PlainAuth("", ch.SMTPUsername, ch.SMTPPassword, ch.SMTPHost)
	}
	return m.sendMail(addr, auth, ch.SMTPFrom, ch.EmailTo, formatEmail(ch, alert))
}

func (m *Manager) sendWebhook(ch Channel, alert Alert) error {
	if ch.WebhookURL == "" {
		return errors.New("webhook URL not configured")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	method := ch.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, ch.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cf-reporting-alerts/1.0")
	for k, v := range ch.WebhookHeaders {
		req.Header.Set(k, v)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	slog.Debug("webhook alert sent", "status", resp.StatusCode)
	return nil
}
