package model

import (
	"errors"
	"strings"
	"testing"
)

// APIErrorがerrorインターフェースを満たし、errors.Asで取り出せることを検証
func TestAPIError_ErrorsAs(t *testing.T) {
	var err error = NewExperimentNotFoundError(42)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As failed for *APIError")
	}
	if apiErr.Code != ErrCodeExperimentNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeExperimentNotFound)
	}
}

func TestAPIError_ErrorString(t *testing.T) {
	err := NewDuplicateEmailError()

	got := err.Error()
	if !strings.Contains(got, ErrCodeDuplicateEmail) {
		t.Errorf("Error() = %q, should contain the code", got)
	}
}

// 各コンストラクタがコードとカテゴリを正しく設定することを検証
func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		err          *APIError
		wantCode     string
		wantCategory string
	}{
		{"実験未検出", NewExperimentNotFoundError(1), ErrCodeExperimentNotFound, "record"},
		{"タグ未検出", NewAttributeNotFoundError(KindTag, 1), ErrCodeAttributeNotFound, "record"},
		{"材料未検出", NewAttributeNotFoundError(KindIngredient, 1), ErrCodeAttributeNotFound, "record"},
		{"検証エラー", NewValidationError("price", "不正"), ErrCodeValidation, "validation"},
		{"メール重複", NewDuplicateEmailError(), ErrCodeDuplicateEmail, "validation"},
		{"名前重複", NewDuplicateNameError(KindTag, "発酵"), ErrCodeDuplicateName, "validation"},
		{"認証失敗", NewInvalidCredentialsError(), ErrCodeInvalidCredentials, "auth"},
		{"ユーザー未検出", NewUserNotFoundError(), ErrCodeUserNotFound, "auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", tt.err.Category, tt.wantCategory)
			}
			if tt.err.Message == "" || tt.err.Action == "" {
				t.Error("Message and Action should not be empty")
			}
		})
	}
}

// 属性未検出メッセージに種別の表示名が含まれることを検証
func TestNewAttributeNotFoundError_KindLabel(t *testing.T) {
	tagErr := NewAttributeNotFoundError(KindTag, 3)
	if !strings.Contains(tagErr.Message, "タグ") {
		t.Errorf("Message = %q, タグを含むべき", tagErr.Message)
	}

	ingErr := NewAttributeNotFoundError(KindIngredient, 3)
	if !strings.Contains(ingErr.Message, "材料") {
		t.Errorf("Message = %q, 材料を含むべき", ingErr.Message)
	}
}

// バリデーションエラーのメッセージにフィールド名が含まれることを検証
func TestNewValidationError_IncludesField(t *testing.T) {
	err := NewValidationError("time_minutes", "0以上を指定してください")

	if !strings.Contains(err.Message, "time_minutes") {
		t.Errorf("Message = %q, フィールド名を含むべき", err.Message)
	}
}
