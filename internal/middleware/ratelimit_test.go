package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(generalBurst, registerBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		RegisterRate:    rate.Limit(0.001),
		RegisterBurst:   registerBurst,
		CleanupInterval: time.Hour,
	})
}

// バーストを超えたリクエストが429になることを検証
func TestRateLimiter_GeneralMiddleware_ExceedsBurst(t *testing.T) {
	rl := newTestRateLimiter(2, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 3)
	for i := range statuses {
		req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses[i] = w.Code
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("最初の2リクエストは通過すべき: %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("statuses[2] = %d, want 429", statuses[2])
	}
}

// ユーザーごとに独立したリミッターが使われることを検証
func TestRateLimiter_GeneralMiddleware_PerUser(t *testing.T) {
	rl := newTestRateLimiter(1, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, userID := range []string{"user-1", "user-2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("user %s: status = %d, want 200", userID, w.Code)
		}
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

// 未認証リクエストがGeneralMiddlewareで401になることを検証
func TestRateLimiter_GeneralMiddleware_Unauthenticated(t *testing.T) {
	rl := newTestRateLimiter(10, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// 登録レート制限がリモートIPをキーとして機能することを検証
func TestRateLimiter_RegisterMiddleware_ExceedsBurst(t *testing.T) {
	rl := newTestRateLimiter(10, 1)
	defer rl.Stop()

	handler := rl.RegisterMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	first.RemoteAddr = "203.0.113.1:12345"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, first)

	second := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	second.RemoteAddr = "203.0.113.1:54321"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, second)

	if w1.Code != http.StatusCreated {
		t.Errorf("w1.Code = %d, want 201", w1.Code)
	}
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("w2.Code = %d, want 429", w2.Code)
	}

	// 別IPは独立して通過する
	other := httptest.NewRequest(http.MethodPost, "/auth/register", nil)
	other.RemoteAddr = "203.0.113.2:12345"
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, other)

	if w3.Code != http.StatusCreated {
		t.Errorf("w3.Code = %d, want 201", w3.Code)
	}
}

// 429レスポンスにRetry-Afterヘッダーが付与されることを検証
func TestRateLimiter_RetryAfterHeader(t *testing.T) {
	rl := newTestRateLimiter(1, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", w.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Error("Retry-Afterヘッダーがない")
			}
		}
	}
}
