package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresExperimentRepo はPostgreSQLを使用した実験リポジトリ。
// すべての読み取り・更新・削除クエリはuser_idでスコープされる。
type PostgresExperimentRepo struct {
	db *sql.DB
}

// NewPostgresExperimentRepo はPostgresExperimentRepoを生成する。
func NewPostgresExperimentRepo(db *sql.DB) *PostgresExperimentRepo {
	return &PostgresExperimentRepo{db: db}
}

// FindByIDAndUser は指定IDかつ指定ユーザー所有の実験を取得する。
// 存在しない場合と他ユーザー所有の場合は区別せずnilを返す。
func (r *PostgresExperimentRepo) FindByIDAndUser(ctx context.Context, id int64, userID string) (*model.Experiment, error) {
	exp := &model.Experiment{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, time_minutes, price, link, description, created_at, updated_at
		 FROM experiments WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&exp.ID, &exp.UserID, &exp.Title, &exp.TimeMinutes, &exp.Price,
		&exp.Link, &exp.Description, &exp.CreatedAt, &exp.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("実験の取得に失敗しました: %w", err)
	}

	return exp, nil
}

// ListByUserID はユーザーの実験一覧をID降順（新しい順）で返す。
func (r *PostgresExperimentRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Experiment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, time_minutes, price, link, description, created_at, updated_at
		 FROM experiments WHERE user_id = $1 ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("実験一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var exps []*model.Experiment
	for rows.Next() {
		exp := &model.Experiment{}
		if err := rows.Scan(&exp.ID, &exp.UserID, &exp.Title, &exp.TimeMinutes, &exp.Price,
			&exp.Link, &exp.Description, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("実験行の読み取りに失敗しました: %w", err)
		}
		exps = append(exps, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("実験一覧の走査に失敗しました: %w", err)
	}
	return exps, nil
}

// Create は実験を作成し、採番されたIDをexperiment.IDに設定する。
func (r *PostgresExperimentRepo) Create(ctx context.Context, exp *model.Experiment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO experiments (user_id, title, time_minutes, price, link, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		exp.UserID, exp.Title, exp.TimeMinutes, exp.Price, exp.Link, exp.Description,
		exp.CreatedAt, exp.UpdatedAt,
	).Scan(&exp.ID)
	if err != nil {
		return fmt.Errorf("実験の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は指定ユーザー所有の実験を更新する。対象行が存在しない場合はエラーを返す。
func (r *PostgresExperimentRepo) Update(ctx context.Context, exp *model.Experiment) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE experiments
		 SET title = $3, time_minutes = $4, price = $5, link = $6, description = $7, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		exp.ID, exp.UserID, exp.Title, exp.TimeMinutes, exp.Price, exp.Link, exp.Description,
	)
	if err != nil {
		return fmt.Errorf("実験の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("実験が見つかりません: %d", exp.ID)
	}
	return nil
}

// DeleteByIDAndUser は指定ユーザー所有の実験を削除する。削除された場合はtrueを返す。
func (r *PostgresExperimentRepo) DeleteByIDAndUser(ctx context.Context, id int64, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM experiments WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("実験の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ ExperimentRepository = (*PostgresExperimentRepo)(nil)
