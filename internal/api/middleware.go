package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxRequestIDLength caps client supplied X-Request-ID values; longer ones
// are replaced.
const maxRequestIDLength = 128

const (
	requestIDHeader       = "X-Request-ID"
	settingsVersionHeader = "X-Settings-Version"
)

// requestNote is filled in by handlers so the access log can say what a
// request did to the settings, not just which status it got.
type requestNote struct {
	trigger string
	outcome string
	kind    string
}

type requestState struct {
	id   string
	note *requestNote
}

// requestContextMiddleware assigns the request ID and an empty note.
func requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = generateRequestID()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestStateKey, &requestState{id: id, note: &requestNote{}})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}

func stateFromContext(ctx context.Context) *requestState {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok {
		return st
	}
	return nil
}

func requestIDFromContext(ctx context.Context) string {
	if st := stateFromContext(ctx); st != nil {
		return st.id
	}
	return ""
}

// noteReload records a reload attempt on the request. Requests outside the
// router carry no note and are ignored.
func noteReload(ctx context.Context, trigger, outcome, kind string) {
	st := stateFromContext(ctx)
	if st == nil {
		return
	}
	st.note.trigger = trigger
	st.note.outcome = outcome
	st.note.kind = kind
}

// accessRecorder remembers what was sent so the log line and the recovery
// handler can see it.
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

func (r *accessRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *accessRecorder) Write(p []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// accessLogMiddleware logs one line per request. Rejected and throttled
// reloads log at warn, server failures at error.
func accessLogMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &accessRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestIDFromContext(r.Context())),
		}
		if v := rec.Header().Get(settingsVersionHeader); v != "" {
			fields = append(fields, zap.String("settings_version", v))
		}
		if st := stateFromContext(r.Context()); st != nil && st.note.outcome != "" {
			fields = append(fields,
				zap.String("reload_trigger", st.note.trigger),
				zap.String("reload_outcome", st.note.outcome),
			)
			if st.note.kind != "" {
				fields = append(fields, zap.String("error_kind", st.note.kind))
			}
		}

		if ce := logger.Check(accessLevel(rec.status), "request completed"); ce != nil {
			ce.Write(fields...)
		}
	})
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// recoveryMiddleware turns a handler panic into a 500 with kind "panic",
// unless the handler already started its response.
func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("handler panicked",
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("panic", fmt.Sprint(rec)),
				zap.StackSkip("stack", 1),
			)
			if ar, ok := w.(*accessRecorder); ok && ar.wrote {
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   "Internal error",
				Details: "unexpected server error",
				Kind:    "panic",
			})
		}()
		next.ServeHTTP(w, r)
	})
}
