// Package dashboard はダッシュボードの集計値とサーバーステータスを提供する。
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service はダッシュボードのサービス層。
type Service struct {
	repo      repository.StatsRepository
	startedAt time.Time
	now       func() time.Time
}

// NewService はServiceを生成する。startedAtはプロセスの起動時刻。
func NewService(repo repository.StatsRepository, startedAt time.Time) *Service {
	return &Service{
		repo:      repo,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Stats はアカウント数、キャラクター数、オンライン数を並行に集計する。
// いずれかの集計が失敗した場合は全体をエラーとする。
func (s *Service) Stats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountAccounts(gctx)
		stats.TotalAccounts = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountCharacters(gctx)
		stats.TotalCharacters = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountOnlineCharacters(gctx)
		stats.OnlinePlayers = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ダッシュボード集計に失敗しました: %w", err)
	}

	return stats, nil
}

// ServerStatus はサーバーの稼働状況を返す。エラーは返さない。
// オンライン数の取得に失敗した場合はdatabase_unreachableとして報告する。
func (s *Service) ServerStatus(ctx context.Context) *model.ServerStatus {
	uptime := s.now().Sub(s.startedAt).Seconds()

	online, err := s.repo.CountOnlineCharacters(ctx)
	if err != nil {
		slog.Warn("server status degraded",
			slog.String("error", err.Error()),
		)
		return &model.ServerStatus{
			Status:        model.ServerStatusDatabaseUnreachable,
			OnlinePlayers: 0,
			Uptime:        uptime,
		}
	}

	return &model.ServerStatus{
		Status:        model.ServerStatusRunning,
		OnlinePlayers: online,
		Uptime:        uptime,
	}
}
