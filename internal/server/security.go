package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gladston3/cf-reporting/internal/useragent"
)

// contentSecurityPolicy builds the Content-Security-Policy header value.
// Generated reports carry inline scripts and styles, load Chart.js from
// chartJSURL and fonts from Google Fonts; everything else stays same-origin.
func contentSecurityPolicy(chartJSURL string) string {
	scriptSrc := "'self' 'unsafe-inline'"
	if origin := originOf(chartJSURL); origin != "" {
		scriptSrc += " " + origin
	}
	return "default-src 'self'; " +
		"script-src " + scriptSrc + "; " +
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
		"font-src 'self' https://fonts.gstatic.com; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"form-action 'self'; " +
		"base-uri 'self'"
}

// originOf returns scheme://host for absolute http(s) URLs and "" otherwise.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// setSecurityHeaders adds security-related headers to the response.
func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", s.csp)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// blockBots rejects crawler user agents when bot blocking is enabled.
func (s *Server) blockBots(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.BlockBots {
			if ua := r.UserAgent(); useragent.IsBot(ua) {
				if s.metrics != nil {
					s.metrics.RecordBlockedBot()
				}
				writeError(w, http.StatusForbidden, "Automated clients are not allowed")
				return
			}
		}
		next(w, r)
	}
}

// allowMethods rejects requests whose method is not listed.
func allowMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
