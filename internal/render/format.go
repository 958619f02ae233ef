// Package render holds the pure formatting helpers shared by every report
// template: magnitude and byte formatting, percentages, HTML escaping and
// script-safe JSON embedding.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
	tib = 1 << 40
)

// FormatNumber abbreviates large counts ("1.9M", "54.7K") and groups the rest.
func FormatNumber(n int64) string {
	f := float64(n)
	switch {
	case f >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	}
	return humanize.Comma(n)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatBytes uses binary prefixes with one decimal place.
func FormatBytes(b int64) string {
	f := float64(b)
	switch {
	case b >= tib:
		return fmt.Sprintf("%.1f TB", f/tib)
	case b >= gib:
		return fmt.Sprintf("%.1f GB", f/gib)
	case b >= mib:
		return fmt.Sprintf("%.1f MB", f/mib)
	case b >= kib:
		return fmt.Sprintf("%.1f KB", f/kib)
	}
	return fmt.Sprintf("%d B", b)
}

// FormatPercent renders a ratio as a percentage. Non-finite input renders as 0.0%.
func FormatPercent(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// Ratio divides without guarding the denominator; FormatPercent absorbs the
// NaN or Inf that a zero total produces.
func Ratio(part, total int64) float64 {
	return float64(part) / float64(total)
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML escapes text for element content and double-quoted attributes.
// Callers escape exactly once.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

// SafeJSON serializes v for embedding inside a <script> element. Every "</"
// becomes "<\/" so embedded data can never close the surrounding tag.
// Values that cannot be encoded render as null.
func SafeJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	out := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(out, "</", `<\/`)
}

// StatusClass buckets an HTTP status by its leading digit.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

var classTags = map[string]string{
	"2xx": "tag-green",
	"3xx": "tag-blue",
	"4xx": "tag-orange",
	"5xx": "tag-red",
}

// StatusTag returns the presentation tag for a status code's class.
func StatusTag(code int) string {
	if tag, ok := classTags[StatusClass(code)]; ok {
		return tag
	}
	return "tag-purple"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 timestamps plus a few zone-less variants,
// which are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatDateRange renders "Feb 13, 2026 — Feb 20, 2026".
func FormatDateRange(start, end string) string {
	return formatDay(start) + " — " + formatDay(end)
}

func formatDay(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.UTC().Format("Jan 2, 2006")
}

// FormatHour renders an hourly bucket label such as "Feb 13 09:00".
func FormatHour(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.UTC().Format("Jan 2 15:04")
}
