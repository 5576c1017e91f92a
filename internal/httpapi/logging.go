package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// loggingLineWriter logs complete NDJSON lines of a stream.
type loggingLineWriter struct {
	rid string
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); line != "" {
			if zlog != nil {
				zlog.Debug().Str("request_id", lw.rid).Str("line", line).Msg("stream>")
			} else {
				log.Printf("stream> %s", line)
			}
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("MIRROR_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel sets the level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart records the start of a reflection request.
func logStart(r *http.Request, lvl LogLevel, mode string) {
	if lvl < LevelInfo {
		return
	}
	rid := middleware.GetReqID(r.Context())
	if zlog == nil {
		log.Printf("%s start mode=%s request_id=%s", r.URL.Path, mode, rid)
		return
	}
	zlog.Info().Str("path", r.URL.Path).Str("mode", mode).Str("request_id", rid).Msg("reflect start")
}

// logEnd records the outcome of a reflection request. Failures are logged
// from LevelError up, successes from LevelInfo up.
func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl == LevelOff || (err == nil && lvl < LevelInfo) {
		return
	}
	rid := middleware.GetReqID(r.Context())
	dur := time.Since(start)
	if zlog == nil {
		log.Printf("%s end status=%d dur=%s request_id=%s err=%v", r.URL.Path, status, dur, rid, err)
		return
	}
	ev := zlog.Info()
	if err != nil && status >= http.StatusInternalServerError {
		ev = zlog.Error()
	}
	ev.Str("path", r.URL.Path).Int("status", status).Dur("dur", dur).Str("request_id", rid).Err(err).Msg("reflect end")
}
