package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/nestadmin/internal/database"
	"github.com/hitoshi/nestadmin/internal/model"
)

const characterColumns = `"CharacterID", "CharacterName", "AccountName", "CharacterClass",
	"CharacterLevel", "CurHP", "CurMP", "Money", "CreateDate", "LastLoginDate", "LoginStatus"`

const characterSearchClause = ` WHERE "CharacterName" ILIKE :search ESCAPE '\'`

// CharacterRepo はワールドDBのCharactersテーブルを参照するリポジトリ。
type CharacterRepo struct {
	q Querier
}

// NewCharacterRepo はCharacterRepoを生成する。
func NewCharacterRepo(q Querier) *CharacterRepo {
	return &CharacterRepo{q: q}
}

// List はキャラクター一覧を取得する。
func (r *CharacterRepo) List(ctx context.Context, search string, limit, offset int) ([]model.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM "Characters"`
	params := map[string]any{"limit": limit, "offset": offset}
	if search != "" {
		query += characterSearchClause
		params["search"] = containsPattern(search)
	}
	query += ` ORDER BY "CharacterLevel" DESC, "CharacterID" ASC LIMIT :limit OFFSET :offset`

	characters := []model.Character{}
	if err := r.q.Select(ctx, database.World, &characters, query, params); err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return characters, nil
}

// Count はキャラクターの総件数を取得する。
func (r *CharacterRepo) Count(ctx context.Context, search string) (int64, error) {
	query := `SELECT COUNT(*) FROM "Characters"`
	params := map[string]any{}
	if search != "" {
		query += characterSearchClause
		params["search"] = containsPattern(search)
	}

	var total int64
	if err := r.q.Get(ctx, database.World, &total, query, params); err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return total, nil
}

// FindByID は指定IDのキャラクターを取得する。見つからない場合はnilを返す。
func (r *CharacterRepo) FindByID(ctx context.Context, id int64) (*model.Character, error) {
	character := &model.Character{}
	err := r.q.Get(ctx, database.World, character,
		`SELECT `+characterColumns+` FROM "Characters" WHERE "CharacterID" = :id`,
		map[string]any{"id": id},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find character: %w", err)
	}
	return character, nil
}

// InventoryRepo はワールドDBのItemsテーブルを参照するリポジトリ。
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepo はInventoryRepoを生成する。
func NewInventoryRepo(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

// ListByOwner は所持アイテムをスロット順に取得する。
func (r *InventoryRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.InventoryItem, error) {
	items := []model.InventoryItem{}
	err := r.q.Select(ctx, database.World, &items,
		`SELECT "ItemID", "OwnerID", "ItemName", "Quantity", "EnhanceLevel", "SlotNo"
		 FROM "Items" WHERE "OwnerID" = :owner
		 ORDER BY "SlotNo" ASC, "ItemID" ASC`,
		map[string]any{"owner": ownerID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

// compile-time interface check
var (
	_ CharacterRepository = (*CharacterRepo)(nil)
	_ InventoryRepository = (*InventoryRepo)(nil)
)
