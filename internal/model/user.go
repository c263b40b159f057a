// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、平文パスワードは保持しない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token はAPIアクセス用のベアラートークンを表す。
// ログイン時に発行され、ログアウトまたは期限切れで失効する。
type Token struct {
	ID        string
	Value     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
