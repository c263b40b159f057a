// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService は実験の説明文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService は説明文のサニタイズ機能のインターフェースを定義する。
// 実験の保存前に使用される。
type DescriptionSanitizerService interface {
	// Sanitize は説明文をサニタイズして安全なテキストを返す。
	// 許可タグ（p, br, ul, ol, li, strong, em, code, pre）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// 説明文は装飾付きテキストを想定し、リンクや画像は許可しない。
// scriptやiframeは許可リストに含めないことで自動的に除去され、
// on*イベント属性もbluemondayのデフォルトで除去される。
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "code", "pre",
	)

	return &descriptionSanitizer{
		policy: p,
	}
}

// Sanitize は説明文をサニタイズして安全なテキストを返す。
// サニタイズ後の前後空白は除去する。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
