package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/database"
	"github.com/hitoshi/nestadmin/internal/model"
)

// LogRepo はワールドDBのGameLogテーブルを参照するリポジトリ。
type LogRepo struct {
	q Querier
}

// NewLogRepo はLogRepoを生成する。
func NewLogRepo(q Querier) *LogRepo {
	return &LogRepo{q: q}
}

// List はゲームログを新しい順に取得する。
func (r *LogRepo) List(ctx context.Context, logType string, limit, offset int) ([]model.LogEntry, error) {
	query := `SELECT "LogID", "LogType", "LogMessage", "CharacterName", "LogDate" FROM "GameLog"`
	params := map[string]any{"limit": limit, "offset": offset}
	if logType != "" {
		query += ` WHERE "LogType" = :type`
		params["type"] = logType
	}
	query += ` ORDER BY "LogDate" DESC, "LogID" DESC LIMIT :limit OFFSET :offset`

	logs := []model.LogEntry{}
	if err := r.q.Select(ctx, database.World, &logs, query, params); err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return logs, nil
}

// StatsRepo はダッシュボード用の件数を集計するリポジトリ。
type StatsRepo struct {
	q Querier
}

// NewStatsRepo はStatsRepoを生成する。
func NewStatsRepo(q Querier) *StatsRepo {
	return &StatsRepo{q: q}
}

// CountAccounts は総アカウント数を取得する。
func (r *StatsRepo) CountAccounts(ctx context.Context) (int64, error) {
	return r.count(ctx, database.Membership, `SELECT COUNT(*) FROM "Accounts"`)
}

// CountCharacters は総キャラクター数を取得する。
func (r *StatsRepo) CountCharacters(ctx context.Context) (int64, error) {
	return r.count(ctx, database.World, `SELECT COUNT(*) FROM "Characters"`)
}

// CountOnlineCharacters はログイン中のキャラクター数を取得する。
func (r *StatsRepo) CountOnlineCharacters(ctx context.Context) (int64, error) {
	return r.count(ctx, database.World, `SELECT COUNT(*) FROM "Characters" WHERE "LoginStatus" = 1`)
}

func (r *StatsRepo) count(ctx context.Context, target database.Target, query string) (int64, error) {
	var n int64
	if err := r.q.Get(ctx, target, &n, query, nil); err != nil {
		return 0, fmt.Errorf("failed to count on %s database: %w", target, err)
	}
	return n, nil
}

// compile-time interface check
var (
	_ LogRepository   = (*LogRepo)(nil)
	_ StatsRepository = (*StatsRepo)(nil)
)
