// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, record, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeExperimentNotFound = "EXPERIMENT_NOT_FOUND"
	ErrCodeAttributeNotFound  = "ATTRIBUTE_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeDuplicateName      = "DUPLICATE_NAME"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
)

// NewExperimentNotFoundError は実験未検出エラーを生成する。
// 所有権のない実験へのアクセスも同一のエラーになる（存在の漏洩を防ぐ）。
func NewExperimentNotFoundError(experimentID int64) *APIError {
	return &APIError{
		Code:     ErrCodeExperimentNotFound,
		Message:  fmt.Sprintf("指定された実験が見つかりません: %d", experimentID),
		Category: "record",
		Action:   "実験IDを確認してください。",
	}
}

// NewAttributeNotFoundError は属性未検出エラーを生成する。
// 所有権のない属性へのアクセスも同一のエラーになる（存在の漏洩を防ぐ）。
func NewAttributeNotFoundError(kind AttributeKind, attributeID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAttributeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %d", kindLabel(kind), attributeID),
		Category: "record",
		Action:   "IDを確認してください。",
	}
}

// NewValidationError はフィールド検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		Category: "validation",
		Action:   "入力値を確認してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewDuplicateNameError は属性名の重複エラーを生成する。
// 同一ユーザー内で(user_id, name)が一意であることのスキーマ制約に由来する。
func NewDuplicateNameError(kind AttributeKind, name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateName,
		Message:  fmt.Sprintf("同名の%sが既に存在します: %s", kindLabel(kind), name),
		Category: "validation",
		Action:   "別の名前を指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// kindLabel は属性種別の表示名を返す。
func kindLabel(kind AttributeKind) string {
	switch kind.Name {
	case "tag":
		return "タグ"
	case "ingredient":
		return "材料"
	default:
		return "属性"
	}
}
