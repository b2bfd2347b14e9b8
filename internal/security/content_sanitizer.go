// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はメッセージ本文を保存前にサニタイズし、
// 本文に混入したHTMLを介したXSSからクライアントを保護する。
// メッセージ本文はプレーンテキスト契約のため、許可タグを持たない
// bluemondayのStrictPolicyで全タグを除去する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はメッセージ本文のサニタイズを行う。
// 同一入力に対して常に同一出力を返し（冪等）、スレッドセーフに使用できる。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// ポリシーはStrictPolicy（全HTMLタグ除去、テキストのみ通過）。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文からHTMLタグを除去したテキストを返す。
// StrictPolicyの出力はエンティティエスケープ済みのため、エスケープを
// 解除してから返す。`<`や`&`を含む平文はそのまま往復する。
// 空文字列の入力には空文字列を返す。
func (s *ContentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}
