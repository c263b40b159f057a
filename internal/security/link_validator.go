package security

import (
	"fmt"
	"net/url"
)

// allowedLinkSchemes は実験のリンクフィールドで許可されるURLスキーム。
// javascript:やdata:などのスキームはここで拒否される。
var allowedLinkSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// ValidateLink は実験のリンクフィールドの値を検証する。
// 空文字列は「リンクなし」として許可する。
// 非空の場合はhttp/httpsの絶対URLであることを要求する。
// このサービスはリンク先への接続は行わない（保存時の形式検証のみ）。
func ValidateLink(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLとして解析できません: %w", err)
	}

	if !allowedLinkSchemes[u.Scheme] {
		return fmt.Errorf("許可されていないスキームです: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("ホストが指定されていません")
	}

	return nil
}
