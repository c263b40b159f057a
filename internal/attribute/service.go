// Package attribute はユーザー所有の名前付き属性（タグ/材料）のドメインロジックを提供する。
// タグと材料で共通の一覧・名前変更・削除を単一のサービスとして実装し、
// 種別はリポジトリのAttributeKindで決まる。
package attribute

import (
	"context"
	"fmt"

	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
)

// Service は属性管理のサービス層。
// 属性の新規作成は実験の書き込み経由でのみ行われるため、ここにはCreateがない。
type Service struct {
	repo repository.AttributeRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AttributeRepository) *Service {
	return &Service{repo: repo}
}

// Kind はこのサービスが扱う属性種別を返す。
func (s *Service) Kind() model.AttributeKind {
	return s.repo.Kind()
}

// List はユーザーの属性一覧を名前の降順で返す。
// assignedOnlyがtrueの場合、そのユーザーの実験に1件以上関連付けられた属性のみを返す。
// 複数の実験に関連付けられた属性も結果には1回だけ現れる。
func (s *Service) List(ctx context.Context, userID string, assignedOnly bool) ([]model.Attribute, error) {
	attrs, err := s.repo.ListByOwner(ctx, userID, assignedOnly)
	if err != nil {
		return nil, fmt.Errorf("%s一覧の取得に失敗しました: %w", s.repo.Kind().Name, err)
	}
	if attrs == nil {
		attrs = []model.Attribute{}
	}
	return attrs, nil
}

// Rename は指定IDの属性の名前を変更する。
// 存在しない場合と他ユーザー所有の場合は区別せずnot-foundエラーを返す。
// 同名属性が既に存在する場合はDuplicateNameエラーを返す。
func (s *Service) Rename(ctx context.Context, userID string, id int64, name string) (*model.Attribute, error) {
	attr, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", s.repo.Kind().Name, err)
	}
	if attr == nil {
		return nil, model.NewAttributeNotFoundError(s.repo.Kind(), id)
	}

	if err := s.repo.Rename(ctx, id, userID, name); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateNameError(s.repo.Kind(), name)
		}
		return nil, fmt.Errorf("%sの名前変更に失敗しました: %w", s.repo.Kind().Name, err)
	}

	attr.Name = name
	return attr, nil
}

// Delete は指定IDの属性を削除する。
// 存在しない場合と他ユーザー所有の場合は区別せずnot-foundエラーを返す。
// 実験との関連付けはCASCADE削除されるが、実験自体には影響しない。
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	deleted, err := s.repo.DeleteByIDAndUser(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("%sの削除に失敗しました: %w", s.repo.Kind().Name, err)
	}
	if !deleted {
		return model.NewAttributeNotFoundError(s.repo.Kind(), id)
	}
	return nil
}
