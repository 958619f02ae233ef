package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gladston3/cf-reporting/internal/alerts"
)

// WindowStats counts generations inside one time window.
type WindowStats struct {
	Total        int64
	Failed       int64
	Upstream5xx  int64
	StatusCounts map[int]int64
}

// GenerationWindowStats aggregates generations created in [since, until).
// zoneID filters when non-empty.
func (s *Storage) GenerationWindowStats(ctx context.Context, since, until time.Time, zoneID string) (WindowStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
SELECT status, status_code, COUNT(*)
FROM generations
WHERE created_at >= ? AND created_at < ?`
	args := []any{since.UTC().UnixMilli(), until.UTC().UnixMilli()}
	if zoneID != "" {
		query += ` AND zone_id = ?`
		args = append(args, zoneID)
	}
	query += ` GROUP BY status, status_code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return WindowStats{}, fmt.Errorf("query window stats: %w", err)
	}
	defer rows.Close()

	ws := WindowStats{StatusCounts: make(map[int]int64)}
	for rows.Next() {
		var (
			status string
			code   int
			n      int64
		)
		if err := rows.Scan(&status, &code, &n); err != nil {
			return WindowStats{}, fmt.Errorf("scan window stats: %w", err)
		}
		ws.Total += n
		if status == StatusError {
			ws.Failed += n
		}
		if code >= 500 {
			ws.Upstream5xx += n
		}
		ws.StatusCounts[code] += n
	}
	return ws, rows.Err()
}

// AlertStatsAdapter wraps Storage to satisfy alerts.StatsProvider.
type AlertStatsAdapter struct {
	store *Storage
	now   func() time.Time
}

// NewAlertStatsAdapter creates a new adapter for the alerts package.
func NewAlertStatsAdapter(s *Storage) *AlertStatsAdapter {
	return &AlertStatsAdapter{store: s, now: time.Now}
}

// GetAlertStats compares the last window with the one before it.
func (a *AlertStatsAdapter) GetAlertStats(ctx context.Context, window time.Duration, zoneID string) (*alerts.AlertStats, error) {
	end := a.now()
	start := end.Add(-window)

	cur, err := a.store.GenerationWindowStats(ctx, start, end, zoneID)
	if err != nil {
		return nil, err
	}
	prev, err := a.store.GenerationWindowStats(ctx, start.Add(-window), start, zoneID)
	if err != nil {
		return nil, err
	}

	return &alerts.AlertStats{
		Total:        cur.Total,
		Failed:       cur.Failed,
		Upstream5xx:  cur.Upstream5xx,
		StatusCounts: cur.StatusCounts,
		PrevTotal:    prev.Total,
	}, nil
}
