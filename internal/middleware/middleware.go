// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gorilla/handlers"
)

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	slog.Error("panic in handler", "error", fmt.Sprint(v...))
}

// Recovery turns a panicking handler into a 500.
func Recovery(next http.Handler) http.Handler {
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(next)
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	slog.Info("request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

// Logger logs one line per request.
func Logger(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, logRequest)
}

// CORS allows browser requests from origins whose host matches one of
// patterns, using path.Match syntax. Preflight requests end here.
func CORS(patterns []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOriginValidator(func(origin string) bool { return originAllowed(origin, patterns) }),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

func originAllowed(origin string, patterns []string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, p := range patterns {
		if ok, _ := path.Match(strings.ToLower(p), strings.ToLower(u.Host)); ok {
			return true
		}
	}
	return false
}
