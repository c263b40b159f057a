package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/labnote/internal/model"
)

// mockTokenFinder はTokenFinderのモック実装。
type mockTokenFinder struct {
	findFunc func(ctx context.Context, value string) (*model.Token, error)
}

func (m *mockTokenFinder) FindByValue(ctx context.Context, value string) (*model.Token, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, value)
	}
	return nil, nil
}

// 有効なトークンでユーザーIDとトークン値がコンテキストに注入されることを検証
func TestTokenMiddleware_ValidToken(t *testing.T) {
	finder := &mockTokenFinder{
		findFunc: func(ctx context.Context, value string) (*model.Token, error) {
			if value != "valid-token" {
				return nil, nil
			}
			return &model.Token{ID: "token-1", Value: value, UserID: "user-1"}, nil
		},
	}

	var gotUserID, gotTokenValue string
	handler := NewTokenMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		gotTokenValue, _ = TokenValueFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("userID = %q, want user-1", gotUserID)
	}
	if gotTokenValue != "valid-token" {
		t.Errorf("tokenValue = %q, want valid-token", gotTokenValue)
	}
}

// トークンなし・不正スキーム・不明トークンが401になることを検証
func TestTokenMiddleware_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"Bearerスキームでない", "Basic dXNlcjpwYXNz"},
		{"不明なトークン", "Bearer unknown-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewTokenMiddleware(&mockTokenFinder{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if called {
				t.Error("後続ハンドラーが呼ばれた")
			}
		})
	}
}

// トークン検索エラーが401になることを検証（内部事情を漏らさない）
func TestTokenMiddleware_FinderError(t *testing.T) {
	finder := &mockTokenFinder{
		findFunc: func(ctx context.Context, value string) (*model.Token, error) {
			return nil, errors.New("db down")
		},
	}
	handler := NewTokenMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/experiments", nil)
	req.Header.Set("Authorization", "Bearer any-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// コンテキストにユーザーIDがない場合のエラーを検証
func TestUserIDFromContext_Missing(t *testing.T) {
	_, err := UserIDFromContext(context.Background())
	if err == nil {
		t.Error("expected error for missing user ID")
	}
}
