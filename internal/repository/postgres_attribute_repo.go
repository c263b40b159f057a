package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresAttributeRepo はPostgreSQLを使用した属性リポジトリ。
// model.AttributeKindでパラメータ化され、タグと材料を単一の実装で扱う。
// テーブル名はKindTag/KindIngredientの固定定義からのみ取られるため、
// クエリへの埋め込みは安全。
type PostgresAttributeRepo struct {
	db   *sql.DB
	kind model.AttributeKind
}

// NewPostgresAttributeRepo は指定種別のPostgresAttributeRepoを生成する。
func NewPostgresAttributeRepo(db *sql.DB, kind model.AttributeKind) *PostgresAttributeRepo {
	return &PostgresAttributeRepo{db: db, kind: kind}
}

// Kind はこのリポジトリが扱う属性種別を返す。
func (r *PostgresAttributeRepo) Kind() model.AttributeKind {
	return r.kind
}

// GetOrCreate は(owner, name)にマッチする属性を取得、なければ作成する。
// UNIQUE(user_id, name)に対するON CONFLICTのupsertとして1文で実行されるため、
// check-then-createの競合による重複行は発生しない。
// DO UPDATEは既存行でもRETURNINGが行を返すようにするための無変更更新。
func (r *PostgresAttributeRepo) GetOrCreate(ctx context.Context, userID, name string) (*model.Attribute, error) {
	attr := &model.Attribute{UserID: userID, Name: name}
	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, name) VALUES ($1, $2)
		 ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		r.kind.Table,
	)
	if err := r.db.QueryRowContext(ctx, query, userID, name).Scan(&attr.ID); err != nil {
		return nil, fmt.Errorf("%sのget-or-createに失敗しました: %w", r.kind.Name, err)
	}
	return attr, nil
}

// ListByOwner はユーザーの属性一覧を名前の降順で返す。
// assignedOnlyがtrueの場合、そのユーザーの実験に1件以上関連付けられた属性のみを返す。
// EXISTSによる絞り込みのため、複数の実験に関連付けられていても結果には1回だけ現れる。
func (r *PostgresAttributeRepo) ListByOwner(ctx context.Context, userID string, assignedOnly bool) ([]model.Attribute, error) {
	query := fmt.Sprintf(
		`SELECT a.id, a.user_id, a.name FROM %s a WHERE a.user_id = $1`,
		r.kind.Table,
	)
	if assignedOnly {
		// 結合先の実験も同一ユーザー所有に限定する。属性自体が既に
		// 所有者でスコープされているため他ユーザーの属性は漏れないが、
		// 他ユーザーの実験への関連付けで「割当済み」扱いになることも防ぐ。
		query += fmt.Sprintf(
			` AND EXISTS (
			     SELECT 1 FROM %s j
			     JOIN experiments e ON e.id = j.experiment_id
			     WHERE j.%s = a.id AND e.user_id = $1
			 )`,
			r.kind.JoinTable, r.kind.JoinColumn,
		)
	}
	query += ` ORDER BY a.name DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s一覧の取得に失敗しました: %w", r.kind.Name, err)
	}
	defer rows.Close()

	var attrs []model.Attribute
	for rows.Next() {
		var attr model.Attribute
		if err := rows.Scan(&attr.ID, &attr.UserID, &attr.Name); err != nil {
			return nil, fmt.Errorf("%s行の読み取りに失敗しました: %w", r.kind.Name, err)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s一覧の走査に失敗しました: %w", r.kind.Name, err)
	}
	return attrs, nil
}

// FindByIDAndUser は指定IDかつ指定ユーザー所有の属性を取得する。
// 存在しない場合と他ユーザー所有の場合は区別せずnilを返す。
func (r *PostgresAttributeRepo) FindByIDAndUser(ctx context.Context, id int64, userID string) (*model.Attribute, error) {
	attr := &model.Attribute{}
	query := fmt.Sprintf(
		`SELECT id, user_id, name FROM %s WHERE id = $1 AND user_id = $2`,
		r.kind.Table,
	)
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&attr.ID, &attr.UserID, &attr.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%sの取得に失敗しました: %w", r.kind.Name, err)
	}

	return attr, nil
}

// Rename は指定ユーザー所有の属性の名前を変更する。
// 同名属性が既に存在する場合はUNIQUE制約違反のエラーをそのまま返す（IsUniqueViolationで判別）。
func (r *PostgresAttributeRepo) Rename(ctx context.Context, id int64, userID, name string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET name = $3 WHERE id = $1 AND user_id = $2`,
		r.kind.Table,
	)
	result, err := r.db.ExecContext(ctx, query, id, userID, name)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("%sの名前変更に失敗しました: %w", r.kind.Name, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%sが見つかりません: %d", r.kind.Name, id)
	}
	return nil
}

// DeleteByIDAndUser は指定ユーザー所有の属性を削除する。削除された場合はtrueを返す。
// 結合テーブルの行はCASCADE削除される。
func (r *PostgresAttributeRepo) DeleteByIDAndUser(ctx context.Context, id int64, userID string) (bool, error) {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE id = $1 AND user_id = $2`,
		r.kind.Table,
	)
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("%sの削除に失敗しました: %w", r.kind.Name, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Assign は属性を実験に関連付ける。
// ON CONFLICT DO NOTHINGにより、既に関連付け済みの場合は何もしない（集合演算）。
func (r *PostgresAttributeRepo) Assign(ctx context.Context, experimentID, attributeID int64) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (experiment_id, %s) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		r.kind.JoinTable, r.kind.JoinColumn,
	)
	if _, err := r.db.ExecContext(ctx, query, experimentID, attributeID); err != nil {
		return fmt.Errorf("%sの関連付けに失敗しました: %w", r.kind.Name, err)
	}
	return nil
}

// ClearAssignments は実験への関連付けをすべて解除する。属性行自体は削除しない。
func (r *PostgresAttributeRepo) ClearAssignments(ctx context.Context, experimentID int64) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE experiment_id = $1`,
		r.kind.JoinTable,
	)
	if _, err := r.db.ExecContext(ctx, query, experimentID); err != nil {
		return fmt.Errorf("%sの関連付け解除に失敗しました: %w", r.kind.Name, err)
	}
	return nil
}

// ListByExperiment は実験に関連付けられた属性を名前昇順で返す。
func (r *PostgresAttributeRepo) ListByExperiment(ctx context.Context, experimentID int64) ([]model.Attribute, error) {
	query := fmt.Sprintf(
		`SELECT a.id, a.user_id, a.name
		 FROM %s a JOIN %s j ON j.%s = a.id
		 WHERE j.experiment_id = $1
		 ORDER BY a.name ASC`,
		r.kind.Table, r.kind.JoinTable, r.kind.JoinColumn,
	)
	rows, err := r.db.QueryContext(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("実験の%s一覧の取得に失敗しました: %w", r.kind.Name, err)
	}
	defer rows.Close()

	var attrs []model.Attribute
	for rows.Next() {
		var attr model.Attribute
		if err := rows.Scan(&attr.ID, &attr.UserID, &attr.Name); err != nil {
			return nil, fmt.Errorf("%s行の読み取りに失敗しました: %w", r.kind.Name, err)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s一覧の走査に失敗しました: %w", r.kind.Name, err)
	}
	return attrs, nil
}

// ListByExperimentIDs は複数の実験に関連付けられた属性を実験IDをキーとするマップで一括取得する。
// 一覧表示で実験ごとにクエリを発行するN+1を避けるためにANY($1)で1回のクエリにまとめる。
func (r *PostgresAttributeRepo) ListByExperimentIDs(ctx context.Context, experimentIDs []int64) (map[int64][]model.Attribute, error) {
	results := make(map[int64][]model.Attribute, len(experimentIDs))
	if len(experimentIDs) == 0 {
		return results, nil
	}

	query := fmt.Sprintf(
		`SELECT j.experiment_id, a.id, a.user_id, a.name
		 FROM %s a JOIN %s j ON j.%s = a.id
		 WHERE j.experiment_id = ANY($1)
		 ORDER BY j.experiment_id, a.name ASC`,
		r.kind.Table, r.kind.JoinTable, r.kind.JoinColumn,
	)
	rows, err := r.db.QueryContext(ctx, query, pq.Array(experimentIDs))
	if err != nil {
		return nil, fmt.Errorf("%sの一括取得に失敗しました: %w", r.kind.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var expID int64
		var attr model.Attribute
		if err := rows.Scan(&expID, &attr.ID, &attr.UserID, &attr.Name); err != nil {
			return nil, fmt.Errorf("%s行の読み取りに失敗しました: %w", r.kind.Name, err)
		}
		results[expID] = append(results[expID], attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%sの一括取得の走査に失敗しました: %w", r.kind.Name, err)
	}
	return results, nil
}

// compile-time interface check
var _ AttributeRepository = (*PostgresAttributeRepo)(nil)
