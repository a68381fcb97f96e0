// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はIdPから受け取った管理者の表示名からHTMLを取り除き、
// プレーンテキストとして返す。表示名はIdPのユーザーが自由に設定できる値であり、
// セッションに保存する前にマークアップを落としておく。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は全てのタグを除去したテキストを返す。
	// script, styleなどの要素は中身ごと除去される。
	// 文字参照は元の文字に戻すため、HTMLエスケープは表示側の責務となる。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemonday.Policyはスレッドセーフなため、1つのインスタンスを共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// タグを含まない値はそのまま返す
	if !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}
