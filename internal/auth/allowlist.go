package auth

import "strings"

// AllowList は管理者として許可するメールアドレスの一覧。
// 比較は前後の空白を除き、大文字小文字を区別せずに行う。
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList はメールアドレスの一覧からAllowListを生成する。空の要素は無視する。
func NewAllowList(emails []string) *AllowList {
	a := &AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// Open は一覧が空で、全てのメールアドレスを許可する状態かどうかを返す。
func (a *AllowList) Open() bool {
	return len(a.emails) == 0
}

// IsAllowed はメールアドレスが管理者として許可されているかを返す。
// 一覧が空の場合は常にtrueを返す。
func (a *AllowList) IsAllowed(email string) bool {
	if a.Open() {
		return true
	}
	_, ok := a.emails[normalizeEmail(email)]
	return ok
}

// Len は登録されているメールアドレスの件数を返す。
func (a *AllowList) Len() int {
	return len(a.emails)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
