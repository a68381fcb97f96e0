// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/nestadmin/internal/database"
	"github.com/hitoshi/nestadmin/internal/model"
)

// Querier は論理データベースを指定して名前付きパラメータのクエリを実行する。
// database.Gatewayが実装する。
type Querier interface {
	Select(ctx context.Context, target database.Target, dest any, query string, params map[string]any) error
	Get(ctx context.Context, target database.Target, dest any, query string, params map[string]any) error
}

// AccountRepository はメンバーシップDBのアカウント参照インターフェース。
type AccountRepository interface {
	// List はアカウント名の部分一致（大文字小文字を区別しない）で絞り込んだ一覧を返す。
	// searchが空の場合は全件を対象とする。CreateDate降順、AccountName昇順。
	List(ctx context.Context, search string, limit, offset int) ([]model.Account, error)

	// Count はListと同じ条件の総件数を返す。
	Count(ctx context.Context, search string) (int64, error)

	// FindByName はアカウント名が完全一致するアカウントを返す。見つからない場合はnilを返す。
	FindByName(ctx context.Context, accountName string) (*model.Account, error)
}

// CharacterRepository はワールドDBのキャラクター参照インターフェース。
type CharacterRepository interface {
	// List はキャラクター名の部分一致で絞り込んだ一覧を返す。
	// CharacterLevel降順、CharacterID昇順。
	List(ctx context.Context, search string, limit, offset int) ([]model.Character, error)

	// Count はListと同じ条件の総件数を返す。
	Count(ctx context.Context, search string) (int64, error)

	// FindByID は指定IDのキャラクターを返す。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Character, error)
}

// InventoryRepository はワールドDBの所持アイテム参照インターフェース。
type InventoryRepository interface {
	// ListByOwner はキャラクターの所持アイテムをSlotNo昇順で返す。
	ListByOwner(ctx context.Context, ownerID int64) ([]model.InventoryItem, error)
}

// LogRepository はワールドDBのゲームログ参照インターフェース。
type LogRepository interface {
	// List はログ種別で絞り込んだログをLogDate降順で返す。
	// logTypeが空の場合は全種別を対象とする。総件数は算出しない。
	List(ctx context.Context, logType string, limit, offset int) ([]model.LogEntry, error)
}

// StatsRepository はダッシュボード用の集計インターフェース。
type StatsRepository interface {
	// CountAccounts はメンバーシップDBの総アカウント数を返す。
	CountAccounts(ctx context.Context) (int64, error)
	// CountCharacters はワールドDBの総キャラクター数を返す。
	CountCharacters(ctx context.Context) (int64, error)
	// CountOnlineCharacters はLoginStatus = 1のキャラクター数を返す。
	CountOnlineCharacters(ctx context.Context) (int64, error)
}

// SessionRepository は管理者セッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しない、または期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は基準時刻までに期限切れとなったセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
