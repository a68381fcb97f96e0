// Package account はメンバーシップDBのアカウント参照を提供する。
package account

import (
	"context"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
	"github.com/hitoshi/nestadmin/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service はアカウント参照のサービス層。
type Service struct {
	repo repository.AccountRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AccountRepository) *Service {
	return &Service{repo: repo}
}

// List はアカウント一覧と総件数を返す。
// 一覧と件数のクエリは並行に発行し、どちらかが失敗した場合はエラーを返す。
func (s *Service) List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
	var (
		accounts []model.Account
		total    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.repo.List(gctx, search, p.Limit, p.Offset())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("アカウント一覧の取得に失敗しました: %w", err)
	}

	return &model.PagedResult[model.Account]{
		Data:  accounts,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

// Get は指定名のアカウントを返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, accountName string) (*model.Account, error) {
	account, err := s.repo.FindByName(ctx, accountName)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	return account, nil
}
