// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService はイベント説明文のHTMLをサニタイズし、
// イベントページを閲覧する参加者をXSS攻撃から保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 最小限の装飾タグのみを通過させる。
package security

import "github.com/microcosm-cc/bluemonday"

// DescriptionSanitizerService はイベント説明文のサニタイズ機能のインターフェースを定義する。
// イベント作成時の保存前に使用される。
type DescriptionSanitizerService interface {
	// Sanitize は説明文をサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, strong, em）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
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
// ポリシーの内容:
//   - 許可タグ: p, br, a, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//     （許可リストに含めないことで自動的に除去される）
//   - aタグ: href属性のみ許可、相対URLは不許可、
//     target="_blank" と rel="noreferrer noopener" を強制付与
func NewDescriptionSanitizer() *descriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("p", "br", "strong", "em")

	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &descriptionSanitizer{policy: p}
}

// Sanitize は説明文をサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ DescriptionSanitizerService = (*descriptionSanitizer)(nil)
