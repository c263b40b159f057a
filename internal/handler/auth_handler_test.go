package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/labnote/internal/middleware"
	"github.com/hitoshi/labnote/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn       func(ctx context.Context, email, password, name string) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.Token, error)
	logoutFn         func(ctx context.Context, tokenValue string) error
	currentUserFn    func(ctx context.Context, userID string) (*model.User, error)
	changePasswordFn func(ctx context.Context, userID, currentPassword, newPassword string) error
	withdrawFn       func(ctx context.Context, userID string) error
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, name)
	}
	return &model.User{ID: "user-1", Email: email, Name: name}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Token, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, tokenValue string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, tokenValue)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *mockAuthService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- POST /auth/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "user@example.com", "password": "secret-password", "name": "テスト太郎"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["email"] != "user@example.com" {
		t.Errorf("email = %v, want user@example.com", result["email"])
	}
	// パスワード関連のフィールドはレスポンスに含めない
	if _, ok := result["password"]; ok {
		t.Error("レスポンスにpasswordが含まれている")
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"メールアドレスなし", `{"password": "secret-password", "name": "t"}`},
		{"メールアドレス形式不正", `{"email": "not-an-email", "password": "secret-password", "name": "t"}`},
		{"パスワードが短い", `{"email": "user@example.com", "password": "short", "name": "t"}`},
		{"名前なし", `{"email": "user@example.com", "password": "secret-password"}`},
		{"不正なJSON", `{broken`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{})

			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Register(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(ctx context.Context, email, password, name string) (*model.User, error) {
			return nil, model.NewDuplicateEmailError()
		},
	})

	body := `{"email": "dup@example.com", "password": "secret-password", "name": "t"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeDuplicateEmail)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour)
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.Token, error) {
			return &model.Token{Value: "token-abc", UserID: "user-1", ExpiresAt: expires}, nil
		},
	})

	body := `{"email": "user@example.com", "password": "secret-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["token"] != "token-abc" {
		t.Errorf("token = %v, want token-abc", result["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "user@example.com", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_Success(t *testing.T) {
	var gotToken string
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(ctx context.Context, tokenValue string) error {
			gotToken = tokenValue
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(middleware.ContextWithTokenValue(req.Context(), "token-abc"))
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if gotToken != "token-abc" {
		t.Errorf("gotToken = %q, want token-abc", gotToken)
	}
}

func TestAuthHandler_Logout_NoToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		currentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{ID: userID, Email: "user@example.com", Name: "テスト太郎"}, nil
		},
	})

	req := withUserID(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "user-1")
	w := httptest.NewRecorder()
	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["name"] != "テスト太郎" {
		t.Errorf("name = %v, want テスト太郎", result["name"])
	}
}

// --- POST /auth/password テスト ---

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"current_password": "old-password", "new_password": "new-password"}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body)), "user-1")
	w := httptest.NewRecorder()
	h.ChangePassword(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestAuthHandler_ChangePassword_ShortNewPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"current_password": "old-password", "new_password": "short"}`
	req := withUserID(httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body)), "user-1")
	w := httptest.NewRecorder()
	h.ChangePassword(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- DELETE /api/users/me テスト ---

func TestAuthHandler_Withdraw_Success(t *testing.T) {
	var gotUserID string
	h := NewAuthHandler(&mockAuthService{
		withdrawFn: func(ctx context.Context, userID string) error {
			gotUserID = userID
			return nil
		},
	})

	req := withUserID(httptest.NewRequest(http.MethodDelete, "/api/users/me", nil), "user-1")
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("gotUserID = %q, want user-1", gotUserID)
	}
}
