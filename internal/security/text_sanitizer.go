// Package security は外部との入出力に関わるセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はフィード由来のテキストのサニタイズ機能のインターフェースを定義する。
// 地震イベントのplace文字列はフィード側の自由入力であり、そのままUIや通知に
// 埋め込まれるため、保存前にマークアップを全て除去する。
type TextSanitizerService interface {
	// SanitizeText は入力から全てのHTMLタグを除去し、プレーンテキストを返す。
	// エンティティはデコードされ、前後の空白は取り除かれる。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに動作する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText は入力から全てのHTMLタグを除去し、プレーンテキストを返す。
// bluemondayはタグ除去後にエンティティをエスケープするため、
// "M 5.0 - 100km W of Victoria" のような正当なテキストが
// "&amp;" 等に化けないようデコードして返す。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
