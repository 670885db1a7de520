package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/fitadmin/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    2,
		LoginRate:       1,
		LoginBurst:      1,
		CleanupInterval: time.Minute,
	}
}

func requestAs(subjectID, remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.RemoteAddr = remoteAddr
	if subjectID != "" {
		req = req.WithContext(ContextWithPrincipal(req.Context(), &model.Principal{SubjectID: subjectID}))
	}
	return req
}

func TestRateLimiter_General_Returns429AfterBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("sub-1", "10.0.0.1:1234"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("sub-1", "10.0.0.1:1234"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimiter_General_KeysBySubject(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestAs("sub-1", "10.0.0.1:1234"))
	}

	// 同じIPでも別subjectは独立して制限される
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("sub-2", "10.0.0.1:1234"))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestRateLimiter_General_FallsBackToIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	handler := rl.GeneralMiddleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestAs("", "10.0.0.1:1111"))
	handler.ServeHTTP(httptest.NewRecorder(), requestAs("", "10.0.0.1:2222"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("", "10.0.0.1:3333"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestRateLimiter_LoginIndependentOfGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()
	login := rl.LoginMiddleware()(okHandler())
	general := rl.GeneralMiddleware()(okHandler())

	first := httptest.NewRecorder()
	login.ServeHTTP(first, requestAs("", "10.0.0.9:1"))
	second := httptest.NewRecorder()
	login.ServeHTTP(second, requestAs("", "10.0.0.9:1"))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Errorf("login statuses = %d, %d; want 200, 429", first.Code, second.Code)
	}

	w := httptest.NewRecorder()
	general.ServeHTTP(w, requestAs("", "10.0.0.9:1"))
	if w.Code != http.StatusOK {
		t.Errorf("general status = %d, want 200", w.Code)
	}
	if rl.LoginLimiterCount() != 1 {
		t.Errorf("login limiter count = %d, want 1", rl.LoginLimiterCount())
	}
}

func TestRateLimiter_CleanupEvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	rl.Stop()

	rl.general.get("subject:old")
	rl.login.get("10.0.0.1")
	rl.general.limiters["subject:old"].lastAccess = time.Now().Add(-time.Hour)
	rl.general.get("subject:fresh")

	rl.cleanup()

	if rl.GeneralLimiterCount() != 1 {
		t.Errorf("general count = %d, want 1", rl.GeneralLimiterCount())
	}
	if _, ok := rl.general.limiters["subject:fresh"]; !ok {
		t.Error("fresh entry should survive cleanup")
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}
