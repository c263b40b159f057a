// Package experiment は実験記録のドメインロジックを提供する。
// 所有者スコープのCRUDと、タグ/材料のget-or-create照合（リコンサイル）を実装する。
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
)

// AttributeInput は書き込みリクエストに含まれる属性記述子。
// 属性は常に名前で参照され、IDでは参照されない。
type AttributeInput struct {
	Name string
}

// Input は実験の作成・全体更新の入力。
// TagsとIngredientsがnilの場合は「フィールドなし」を意味する。
type Input struct {
	Title       string
	TimeMinutes int
	Price       string
	Link        string
	Description string
	Tags        []AttributeInput
	Ingredients []AttributeInput
}

// Update は実験の部分更新の入力。nilのフィールドは変更しない。
// TagsとIngredientsはnilなら関連付けを維持し、空スライスなら全解除する。
type Update struct {
	Title       *string
	TimeMinutes *int
	Price       *string
	Link        *string
	Description *string
	Tags        *[]AttributeInput
	Ingredients *[]AttributeInput
}

// Sanitizer は説明文のサニタイズに必要なインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MetricsRecorder は実験サービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordExperimentCreated()
	RecordAttributeReconciled(kind string)
}

// Service は実験管理のサービス層。
// すべての操作はリクエストユーザーの所有行にスコープされる。
type Service struct {
	expRepo        repository.ExperimentRepository
	tagRepo        repository.AttributeRepository
	ingredientRepo repository.AttributeRepository
	sanitizer      Sanitizer
	metrics        MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する（テストや計測不要の構成用）。
func NewService(
	expRepo repository.ExperimentRepository,
	tagRepo repository.AttributeRepository,
	ingredientRepo repository.AttributeRepository,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		expRepo:        expRepo,
		tagRepo:        tagRepo,
		ingredientRepo: ingredientRepo,
		sanitizer:      sanitizer,
		metrics:        metrics,
	}
}

// List はユーザーの実験一覧をID降順で返す。
// タグと材料は結合テーブル経由で一括取得して展開する。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Experiment, error) {
	exps, err := s.expRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("実験一覧の取得に失敗しました: %w", err)
	}
	if len(exps) == 0 {
		return []*model.Experiment{}, nil
	}

	ids := make([]int64, len(exps))
	for i, exp := range exps {
		ids[i] = exp.ID
	}

	tags, err := s.tagRepo.ListByExperimentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("タグの一括取得に失敗しました: %w", err)
	}
	ingredients, err := s.ingredientRepo.ListByExperimentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("材料の一括取得に失敗しました: %w", err)
	}

	for _, exp := range exps {
		exp.Tags = tags[exp.ID]
		exp.Ingredients = ingredients[exp.ID]
	}

	return exps, nil
}

// Get は指定IDの実験を所有者スコープで取得する。
// 存在しない場合と他ユーザー所有の場合は区別せずnot-foundエラーを返す。
func (s *Service) Get(ctx context.Context, userID string, id int64) (*model.Experiment, error) {
	exp, err := s.expRepo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("実験の取得に失敗しました: %w", err)
	}
	if exp == nil {
		return nil, model.NewExperimentNotFoundError(id)
	}

	if err := s.loadAttributes(ctx, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// Create は実験を作成し、タグと材料をリコンサイルして関連付ける。
func (s *Service) Create(ctx context.Context, userID string, input Input) (*model.Experiment, error) {
	now := time.Now()
	exp := &model.Experiment{
		UserID:      userID,
		Title:       input.Title,
		TimeMinutes: input.TimeMinutes,
		Price:       input.Price,
		Link:        input.Link,
		Description: s.sanitizer.Sanitize(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.expRepo.Create(ctx, exp); err != nil {
		return nil, fmt.Errorf("実験の作成に失敗しました: %w", err)
	}

	if err := s.reconcile(ctx, s.tagRepo, userID, exp.ID, input.Tags); err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, s.ingredientRepo, userID, exp.ID, input.Ingredients); err != nil {
		return nil, err
	}

	if err := s.loadAttributes(ctx, exp); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordExperimentCreated()
	}

	return exp, nil
}

// ApplyUpdate は実験を部分更新する。
// nilのフィールドは変更しない。TagsまたはIngredientsが非nilの場合は
// その種別の関連付けを一度すべて解除してからリコンサイルし直す。
// 空リストの指定は全解除を意味する。属性行自体は削除されない。
func (s *Service) ApplyUpdate(ctx context.Context, userID string, id int64, upd Update) (*model.Experiment, error) {
	exp, err := s.expRepo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("実験の取得に失敗しました: %w", err)
	}
	if exp == nil {
		return nil, model.NewExperimentNotFoundError(id)
	}

	if upd.Title != nil {
		exp.Title = *upd.Title
	}
	if upd.TimeMinutes != nil {
		exp.TimeMinutes = *upd.TimeMinutes
	}
	if upd.Price != nil {
		exp.Price = *upd.Price
	}
	if upd.Link != nil {
		exp.Link = *upd.Link
	}
	if upd.Description != nil {
		exp.Description = s.sanitizer.Sanitize(*upd.Description)
	}

	if err := s.expRepo.Update(ctx, exp); err != nil {
		return nil, fmt.Errorf("実験の更新に失敗しました: %w", err)
	}

	if upd.Tags != nil {
		if err := s.tagRepo.ClearAssignments(ctx, exp.ID); err != nil {
			return nil, fmt.Errorf("タグの関連付け解除に失敗しました: %w", err)
		}
		if err := s.reconcile(ctx, s.tagRepo, userID, exp.ID, *upd.Tags); err != nil {
			return nil, err
		}
	}
	if upd.Ingredients != nil {
		if err := s.ingredientRepo.ClearAssignments(ctx, exp.ID); err != nil {
			return nil, fmt.Errorf("材料の関連付け解除に失敗しました: %w", err)
		}
		if err := s.reconcile(ctx, s.ingredientRepo, userID, exp.ID, *upd.Ingredients); err != nil {
			return nil, err
		}
	}

	if err := s.loadAttributes(ctx, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// Delete は指定IDの実験を所有者スコープで削除する。
// 存在しない場合と他ユーザー所有の場合は区別せずnot-foundエラーを返す。
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	deleted, err := s.expRepo.DeleteByIDAndUser(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("実験の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewExperimentNotFoundError(id)
	}
	return nil
}

// reconcile は属性記述子のリストを既存または新規の属性行に解決し、実験に関連付ける。
// get-or-createは常にリクエストユーザーにスコープされるため、属性の所有者は
// 実験の所有者と必ず一致する。関連付けは集合演算であり、
// 同一リスト内の重複名は同じ行に解決されて1回だけ関連付けられる。
func (s *Service) reconcile(ctx context.Context, repo repository.AttributeRepository, userID string, experimentID int64, inputs []AttributeInput) error {
	kind := repo.Kind()
	for _, input := range inputs {
		attr, err := repo.GetOrCreate(ctx, userID, input.Name)
		if err != nil {
			return fmt.Errorf("%sの解決に失敗しました: %w", kind.Name, err)
		}
		if err := repo.Assign(ctx, experimentID, attr.ID); err != nil {
			return fmt.Errorf("%sの関連付けに失敗しました: %w", kind.Name, err)
		}
		if s.metrics != nil {
			s.metrics.RecordAttributeReconciled(kind.Name)
		}
	}
	return nil
}

// loadAttributes は実験のタグと材料を関連付けテーブルから読み込む。
func (s *Service) loadAttributes(ctx context.Context, exp *model.Experiment) error {
	tags, err := s.tagRepo.ListByExperiment(ctx, exp.ID)
	if err != nil {
		return fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	ingredients, err := s.ingredientRepo.ListByExperiment(ctx, exp.ID)
	if err != nil {
		return fmt.Errorf("材料の取得に失敗しました: %w", err)
	}
	exp.Tags = tags
	exp.Ingredients = ingredients
	return nil
}
