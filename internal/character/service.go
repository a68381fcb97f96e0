// Package character はワールドDBのキャラクターと所持アイテムの参照を提供する。
package character

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
	"github.com/hitoshi/nestadmin/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service はキャラクター参照のサービス層。
type Service struct {
	characterRepo repository.CharacterRepository
	inventoryRepo repository.InventoryRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(characterRepo repository.CharacterRepository, inventoryRepo repository.InventoryRepository) *Service {
	return &Service{
		characterRepo: characterRepo,
		inventoryRepo: inventoryRepo,
	}
}

// List はキャラクター一覧と総件数を返す。各行には職業名を付与する。
func (s *Service) List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Character], error) {
	var (
		characters []model.Character
		total      int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		characters, err = s.characterRepo.List(gctx, search, p.Limit, p.Offset())
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.characterRepo.Count(gctx, search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("キャラクター一覧の取得に失敗しました: %w", err)
	}

	for i := range characters {
		characters[i].ClassName = model.ClassName(characters[i].CharacterClass)
	}

	return &model.PagedResult[model.Character]{
		Data:  characters,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}

// Get は指定IDのキャラクターを返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Character, error) {
	c, err := s.characterRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("キャラクターの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	c.ClassName = model.ClassName(c.CharacterClass)
	return c, nil
}

// Inventory はキャラクターの所持アイテムをSlotNo昇順で返す。
// キャラクターが存在しない場合も空の一覧を返す。
func (s *Service) Inventory(ctx context.Context, id int64) ([]model.InventoryItem, error) {
	items, err := s.inventoryRepo.ListByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("所持アイテムの取得に失敗しました: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SlotNo < items[j].SlotNo
	})
	return items, nil
}
