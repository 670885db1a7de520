package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

var requestStateContextKey = contextKey("request_state")

// requestState は内側のミドルウェアが解決した情報をアクセスログへ渡すための入れ物。
// コンテキストは内側で差し替わるため、ポインタを外側で注入しておく。
type requestState struct {
	mu        sync.Mutex
	subjectID string
}

// setLoggedSubject はアクセスログに出力するsubject IDを記録する。
func setLoggedSubject(ctx context.Context, subjectID string) {
	st, ok := ctx.Value(requestStateContextKey).(*requestState)
	if !ok {
		return
	}
	st.mu.Lock()
	st.subjectID = subjectID
	st.mu.Unlock()
}

func (st *requestState) subject() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.subjectID
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、subject_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			st := &requestState{}
			r = r.WithContext(context.WithValue(r.Context(), requestStateContextKey, st))

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}
			if subjectID := st.subject(); subjectID != "" {
				args = append(args, slog.String("subject_id", subjectID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
