// Package pagination は一覧系エンドポイントのページング指定を解釈する。
package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// MaxLimit は1ページあたりの最大件数。
const MaxLimit = 100

// MaxPage は受け付けるページ番号の上限。
// (MaxPage-1)*MaxLimitがintに収まり、Offsetが負にならない。
const MaxPage = math.MaxInt/MaxLimit + 1

// エンドポイントごとの既定件数。
const (
	DefaultLimit    = 20
	DefaultLogLimit = 50
)

// Params は解釈済みのページング指定。
type Params struct {
	Page  int
	Limit int
}

// Parse はクエリパラメータのpageとlimitを解釈する。
// 不正な値はエラーにせず既定値に置き換える。
//   - page: 1未満または数値でない場合は1、MaxPageを超える場合はMaxPage
//   - limit: 1未満または数値でない場合はdefaultLimit、MaxLimitを超える場合はMaxLimit
func Parse(values url.Values, defaultLimit int) Params {
	p := Params{
		Page:  parsePositive(values.Get("page"), 1),
		Limit: parsePositive(values.Get("limit"), defaultLimit),
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset は(page-1)*limitを返す。
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

func parsePositive(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
