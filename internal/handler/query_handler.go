package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nestadmin/internal/middleware"
	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error)
	// Get はアカウントが存在しない場合nilを返す。
	Get(ctx context.Context, accountName string) (*model.Account, error)
}

// CharacterServiceInterface はキャラクターハンドラーが必要とするサービスインターフェース。
type CharacterServiceInterface interface {
	List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Character], error)
	// Get はキャラクターが存在しない場合nilを返す。
	Get(ctx context.Context, id int64) (*model.Character, error)
	Inventory(ctx context.Context, id int64) ([]model.InventoryItem, error)
}

// LogServiceInterface はゲームログハンドラーが必要とするサービスインターフェース。
type LogServiceInterface interface {
	List(ctx context.Context, logType string, p pagination.Params) (*model.LogPage, error)
}

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
	// ServerStatus はDB障害時も縮退したステータスを返し、失敗しない。
	ServerStatus(ctx context.Context) *model.ServerStatus
}

// AccountHandler はアカウント参照のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// List はアカウント一覧を返す。
// GET /api/accounts?page&limit&search
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.List(r.Context(), q.Get("search"), pagination.Parse(q, pagination.DefaultLimit))
	if err != nil {
		handleServiceError(w, r, "Failed to fetch accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get はアカウント詳細を返す。
// GET /api/accounts/{accountName}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountName := chi.URLParam(r, "accountName")

	account, err := h.service.Get(r.Context(), accountName)
	if err != nil {
		handleServiceError(w, r, "Failed to fetch account", err)
		return
	}
	if account == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewAccountNotFoundError(accountName))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// CharacterHandler はキャラクター参照のHTTPハンドラー。
type CharacterHandler struct {
	service CharacterServiceInterface
}

// NewCharacterHandler はCharacterHandlerを生成する。
func NewCharacterHandler(service CharacterServiceInterface) *CharacterHandler {
	return &CharacterHandler{service: service}
}

// List はキャラクター一覧を返す。
// GET /api/characters?page&limit&search
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.List(r.Context(), q.Get("search"), pagination.Parse(q, pagination.DefaultLimit))
	if err != nil {
		handleServiceError(w, r, "Failed to fetch characters", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get はキャラクター詳細を返す。数値でないIDはクエリを実行せず404とする。
// GET /api/characters/{id}
func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, ok := parseCharacterID(rawID)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewCharacterNotFoundError(rawID))
		return
	}

	character, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, "Failed to fetch character", err)
		return
	}
	if character == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewCharacterNotFoundError(rawID))
		return
	}
	writeJSON(w, http.StatusOK, character)
}

// Inventory はキャラクターの所持アイテムをスロット順に返す。
// 存在しないキャラクターは空の一覧となる。
// GET /api/characters/{id}/inventory
func (h *CharacterHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, ok := parseCharacterID(rawID)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewCharacterNotFoundError(rawID))
		return
	}

	items, err := h.service.Inventory(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, "Failed to fetch inventory", err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, model.InventoryList{Data: items})
}

// parseCharacterID はパスパラメータを正の整数IDに変換する。
func parseCharacterID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// LogHandler はゲームログ参照のHTTPハンドラー。
type LogHandler struct {
	service LogServiceInterface
}

// NewLogHandler はLogHandlerを生成する。
func NewLogHandler(service LogServiceInterface) *LogHandler {
	return &LogHandler{service: service}
}

// List はゲームログを新しい順に返す。総件数は返さない。
// GET /api/logs?page&limit&type
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.service.List(r.Context(), q.Get("type"), pagination.Parse(q, pagination.DefaultLogLimit))
	if err != nil {
		handleServiceError(w, r, "Failed to fetch logs", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DashboardHandler はダッシュボードとサーバー状態のHTTPハンドラー。
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats はダッシュボードの集計値を返す。
// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, r, "Failed to fetch dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ServerStatus はサーバー状態を返す。DB障害時も200で応答する。
// GET /api/server/status
func (h *DashboardHandler) ServerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ServerStatus(r.Context()))
}

// Health はプロセスの死活確認に応答する。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "nestadmin",
	})
}
