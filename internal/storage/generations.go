package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Generation outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MaxListLimit caps how many rows a single history query returns.
const MaxListLimit = 500

// GenerationRecord is one report generation attempt.
type GenerationRecord struct {
	ID            string    `json:"id"`
	TemplateID    string    `json:"template_id"`
	ZoneID        string    `json:"zone_id"`
	ZoneName      string    `json:"zone_name,omitempty"`
	RangeStart    string    `json:"range_start"`
	RangeEnd      string    `json:"range_end"`
	Status        string    `json:"status"`
	StatusCode    int       `json:"status_code"`
	Error         string    `json:"error,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	SizeBytes     int64     `json:"size_bytes"`
	ClientBrowser string    `json:"client_browser,omitempty"`
	ClientOS      string    `json:"client_os,omitempty"`
	ClientCountry string    `json:"client_country,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// TemplateStat aggregates generations of one template.
type TemplateStat struct {
	TemplateID    string  `json:"template_id"`
	Total         int64   `json:"total"`
	Failed        int64   `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	TotalBytes    int64   `json:"total_bytes"`
}

// RecordGeneration stores rec. A zero CreatedAt is set to now.
func (s *Storage) RecordGeneration(ctx context.Context, rec GenerationRecord) error {
	if rec.ID == "" {
		return errors.New("generation id is required")
	}
	if rec.Status != StatusOK && rec.Status != StatusError {
		return fmt.Errorf("invalid generation status %q", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.stmtInsertGeneration.ExecContext(ctx,
		rec.ID, rec.TemplateID, rec.ZoneID, rec.ZoneName,
		rec.RangeStart, rec.RangeEnd, rec.Status, rec.StatusCode, rec.Error,
		rec.DurationMs, rec.SizeBytes,
		rec.ClientBrowser, rec.ClientOS, rec.ClientCountry,
		rec.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// RecentGenerations returns the newest generations first. zoneID filters when
// non-empty.
func (s *Storage) RecentGenerations(ctx context.Context, limit int, zoneID string) ([]GenerationRecord, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `
SELECT id, template_id, zone_id, zone_name, range_start, range_end, status, status_code, error,
	duration_ms, size_bytes, COALESCE(client_browser, ''), COALESCE(client_os, ''), COALESCE(client_country, ''), created_at
FROM generations`
	args := []any{}
	if zoneID != "" {
		query += " WHERE zone_id = ?"
		args = append(args, zoneID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	out := []GenerationRecord{}
	for rows.Next() {
		var rec GenerationRecord
		var createdMs int64
		if err := rows.Scan(&rec.ID, &rec.TemplateID, &rec.ZoneID, &rec.ZoneName,
			&rec.RangeStart, &rec.RangeEnd, &rec.Status, &rec.StatusCode, &rec.Error,
			&rec.DurationMs, &rec.SizeBytes,
			&rec.ClientBrowser, &rec.ClientOS, &rec.ClientCountry, &createdMs); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountGenerations returns the number of stored generations.
func (s *Storage) CountGenerations(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return n, nil
}

// TemplateStats aggregates generations created at or after since, busiest
// template first.
func (s *Storage) TemplateStats(ctx context.Context, since time.Time) ([]TemplateStat, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT template_id,
	COUNT(*),
	COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(duration_ms), 0),
	COALESCE(SUM(size_bytes), 0)
FROM generations
WHERE created_at >= ?
GROUP BY template_id
ORDER BY COUNT(*) DESC, template_id ASC`, since.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query template stats: %w", err)
	}
	defer rows.Close()

	out := []TemplateStat{}
	for rows.Next() {
		var st TemplateStat
		if err := rows.Scan(&st.TemplateID, &st.Total, &st.Failed, &st.AvgDurationMs, &st.TotalBytes); err != nil {
			return nil, fmt.Errorf("scan template stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteGenerationsBefore removes history older than cutoff and returns the
// number of rows removed.
func (s *Storage) DeleteGenerationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE created_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete generations: %w", err)
	}
	return res.RowsAffected()
}
