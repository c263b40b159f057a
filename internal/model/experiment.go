// Package model はドメインモデルを定義する。
package model

import "time"

// Experiment はユーザーが記録する実験を表す。
// TagsとIngredientsは多対多のリレーションで、所有ユーザーは常に実験と同一。
type Experiment struct {
	ID          int64
	UserID      string
	Title       string
	TimeMinutes int
	// Price は非負のdecimal値。NUMERIC(10,2)カラムと文字列で受け渡しする。
	Price       string
	Link        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []Attribute
	Ingredients []Attribute
}

// Attribute はタグまたは材料を表す、ユーザー所有の名前付きラベル。
// (user_id, name)の組はスキーマレベルで一意。
type Attribute struct {
	ID     int64
	UserID string
	Name   string
}

// AttributeKind は属性の種別（タグ/材料）を表す。
// テーブル名と結合テーブル名を保持し、種別ごとのリポジトリ操作を
// 単一の実装でパラメータ化する。
type AttributeKind struct {
	// Name は種別の識別子（"tag" / "ingredient"）。ログとメトリクスで使用する。
	Name string
	// Table は属性本体のテーブル名。
	Table string
	// JoinTable は実験との結合テーブル名。
	JoinTable string
	// JoinColumn は結合テーブル内の属性ID列名。
	JoinColumn string
}

// KindTag はタグ種別の定義。
var KindTag = AttributeKind{
	Name:       "tag",
	Table:      "tags",
	JoinTable:  "experiment_tags",
	JoinColumn: "tag_id",
}

// KindIngredient は材料種別の定義。
var KindIngredient = AttributeKind{
	Name:       "ingredient",
	Table:      "ingredients",
	JoinTable:  "experiment_ingredients",
	JoinColumn: "ingredient_id",
}
