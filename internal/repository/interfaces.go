// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/labnote/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレス重複の場合はUNIQUE制約違反のエラーを返す（IsUniqueViolationで判別可能）。
	Create(ctx context.Context, user *model.User) error

	// UpdatePassword はユーザーのパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 所有する実験、属性、トークンはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// TokenRepository はベアラートークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.Token) error

	// FindByValue はトークン値でトークンを取得する。
	// 見つからない場合と期限切れの場合はnilを返す。
	FindByValue(ctx context.Context, value string) (*model.Token, error)

	// DeleteByValue は指定値のトークンを削除する。
	DeleteByValue(ctx context.Context, value string) error

	// DeleteByUserID は指定ユーザーの全トークンを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れトークンを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExperimentRepository は実験データの永続化インターフェース。
// すべての読み取り・更新・削除はリクエストユーザーの所有行にスコープされる。
type ExperimentRepository interface {
	// FindByIDAndUser は指定IDかつ指定ユーザー所有の実験を取得する。
	// 存在しない場合と他ユーザー所有の場合は区別せずnilを返す。
	FindByIDAndUser(ctx context.Context, id int64, userID string) (*model.Experiment, error)

	// ListByUserID はユーザーの実験一覧をID降順（新しい順）で返す。
	// Tags/Ingredientsは含まれない。属性の取得はAttributeRepositoryで行う。
	ListByUserID(ctx context.Context, userID string) ([]*model.Experiment, error)

	// Create は実験を作成し、採番されたIDをexperiment.IDに設定する。
	Create(ctx context.Context, experiment *model.Experiment) error

	// Update は指定ユーザー所有の実験を更新する。
	// 対象行が存在しない場合はエラーを返す。
	Update(ctx context.Context, experiment *model.Experiment) error

	// DeleteByIDAndUser は指定ユーザー所有の実験を削除する。
	// 削除された場合はtrueを返す。結合テーブルの行はCASCADE削除される。
	DeleteByIDAndUser(ctx context.Context, id int64, userID string) (bool, error)
}

// AttributeRepository はユーザー所有の名前付き属性（タグ/材料）の永続化インターフェース。
// 実装は種別（AttributeKind）でパラメータ化され、タグと材料で共有される。
type AttributeRepository interface {
	// Kind はこのリポジトリが扱う属性種別を返す。
	Kind() model.AttributeKind

	// GetOrCreate は(owner, name)にマッチする属性を取得、なければ作成する。
	// UNIQUE(user_id, name)制約に対する原子的なupsertとして実行されるため、
	// 並行リクエスト下でも同名の重複行は生成されない。
	GetOrCreate(ctx context.Context, userID, name string) (*model.Attribute, error)

	// ListByOwner はユーザーの属性一覧を名前の降順で返す。
	// assignedOnlyがtrueの場合、そのユーザーの実験に1件以上関連付けられた
	// 属性のみに絞り込む。結果に重複は含まれない。
	ListByOwner(ctx context.Context, userID string, assignedOnly bool) ([]model.Attribute, error)

	// FindByIDAndUser は指定IDかつ指定ユーザー所有の属性を取得する。
	// 存在しない場合と他ユーザー所有の場合は区別せずnilを返す。
	FindByIDAndUser(ctx context.Context, id int64, userID string) (*model.Attribute, error)

	// Rename は指定ユーザー所有の属性の名前を変更する。
	// 同名属性が既に存在する場合はUNIQUE制約違反のエラーを返す。
	// 対象行が存在しない場合はエラーを返す。
	Rename(ctx context.Context, id int64, userID, name string) error

	// DeleteByIDAndUser は指定ユーザー所有の属性を削除する。
	// 削除された場合はtrueを返す。結合テーブルの行はCASCADE削除される。
	DeleteByIDAndUser(ctx context.Context, id int64, userID string) (bool, error)

	// Assign は属性を実験に関連付ける。既に関連付け済みの場合は何もしない。
	Assign(ctx context.Context, experimentID, attributeID int64) error

	// ClearAssignments は実験への関連付けをすべて解除する。
	// 属性行自体は削除しない。
	ClearAssignments(ctx context.Context, experimentID int64) error

	// ListByExperiment は実験に関連付けられた属性を名前昇順で返す。
	ListByExperiment(ctx context.Context, experimentID int64) ([]model.Attribute, error)

	// ListByExperimentIDs は複数の実験に関連付けられた属性を
	// 実験IDをキーとするマップで一括取得する。一覧表示でのN+1回避用。
	ListByExperimentIDs(ctx context.Context, experimentIDs []int64) (map[int64][]model.Attribute, error)
}
