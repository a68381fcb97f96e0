package repository

import "strings"

// likeEscaper はILIKEパターンのメタ文字をエスケープする。
// クエリ側は ESCAPE '\' を指定すること。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern は部分一致検索用のバインド値を組み立てる。
// 検索語に含まれる%や_はワイルドカードではなくリテラルとして扱う。
func containsPattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
