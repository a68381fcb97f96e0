package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/database"
	"github.com/hitoshi/nestadmin/internal/model"
)

const accountColumns = `"AccountName", "CreateDate", "LastLoginDate", "Cash"`

// accountSearchClause は検索語が指定された場合のみ付与するWHERE句。
const accountSearchClause = ` WHERE "AccountName" ILIKE :search ESCAPE '\'`

// AccountRepo はメンバーシップDBのAccountsテーブルを参照するリポジトリ。
type AccountRepo struct {
	q Querier
}

// NewAccountRepo はAccountRepoを生成する。
func NewAccountRepo(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// List はアカウント一覧を取得する。
func (r *AccountRepo) List(ctx context.Context, search string, limit, offset int) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM "Accounts"`
	params := map[string]any{"limit": limit, "offset": offset}
	if search != "" {
		query += accountSearchClause
		params["search"] = containsPattern(search)
	}
	query += ` ORDER BY "CreateDate" DESC, "AccountName" ASC LIMIT :limit OFFSET :offset`

	accounts := []model.Account{}
	if err := r.q.Select(ctx, database.Membership, &accounts, query, params); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Count はアカウントの総件数を取得する。
func (r *AccountRepo) Count(ctx context.Context, search string) (int64, error) {
	query := `SELECT COUNT(*) FROM "Accounts"`
	params := map[string]any{}
	if search != "" {
		query += accountSearchClause
		params["search"] = containsPattern(search)
	}

	var total int64
	if err := r.q.Get(ctx, database.Membership, &total, query, params); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return total, nil
}

// FindByName は指定名のアカウントを取得する。見つからない場合はnilを返す。
func (r *AccountRepo) FindByName(ctx context.Context, accountName string) (*model.Account, error) {
	account := &model.Account{}
	err := r.q.Get(ctx, database.Membership, account,
		`SELECT `+accountColumns+` FROM "Accounts" WHERE "AccountName" = :name`,
		map[string]any{"name": accountName},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// compile-time interface check
var _ AccountRepository = (*AccountRepo)(nil)
