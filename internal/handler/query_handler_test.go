package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nestadmin/internal/middleware"
	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
)

var errDBDown = fmt.Errorf("アカウント一覧の取得に失敗しました: %w: dial tcp 10.0.0.5:5432: connect: connection refused", model.ErrDatabaseUnavailable)

func newQueryRouter(accounts AccountServiceInterface, characters CharacterServiceInterface, logs LogServiceInterface, dashboard DashboardServiceInterface) http.Handler {
	r := chi.NewRouter()
	ah := NewAccountHandler(accounts)
	ch := NewCharacterHandler(characters)
	lh := NewLogHandler(logs)
	dh := NewDashboardHandler(dashboard)
	r.Get("/api/accounts", ah.List)
	r.Get("/api/accounts/{accountName}", ah.Get)
	r.Get("/api/characters", ch.List)
	r.Get("/api/characters/{id}", ch.Get)
	r.Get("/api/characters/{id}/inventory", ch.Inventory)
	r.Get("/api/logs", lh.List)
	r.Get("/api/dashboard/stats", dh.Stats)
	r.Get("/api/server/status", dh.ServerStatus)
	r.Get("/health", Health)
	return r
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

// --- /api/accounts ---

func TestAccountHandler_List_PassesNormalizedParams(t *testing.T) {
	created := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	svc := &mockAccountService{
		listFn: func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
			if search != "drag" {
				t.Errorf("search = %q, want drag", search)
			}
			if p.Page != 2 || p.Limit != pagination.MaxLimit {
				t.Errorf("params = %+v, want page 2 limit %d", p, pagination.MaxLimit)
			}
			return &model.PagedResult[model.Account]{
				Data:  []model.Account{{AccountName: "DragonSlayer", CreateDate: created, Cash: 500}},
				Total: 101,
				Page:  p.Page,
				Limit: p.Limit,
			}, nil
		},
	}
	router := newQueryRouter(svc, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/accounts?page=2&limit=500&search=drag")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	for _, key := range []string{"data", "total", "page", "limit"} {
		if _, ok := body[key]; !ok {
			t.Errorf("envelope missing %q", key)
		}
	}
	if body["total"] != float64(101) {
		t.Errorf("total = %v", body["total"])
	}
	data := body["data"].([]any)
	if len(data) != 1 || data[0].(map[string]any)["AccountName"] != "DragonSlayer" {
		t.Errorf("data = %v", data)
	}
}

func TestAccountHandler_List_InvalidParamsAreCoerced(t *testing.T) {
	var got pagination.Params
	svc := &mockAccountService{
		listFn: func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
			got = p
			return &model.PagedResult[model.Account]{Data: []model.Account{}}, nil
		},
	}
	router := newQueryRouter(svc, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/accounts?page=abc&limit=-5")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.Page != 1 || got.Limit != pagination.DefaultLimit {
		t.Errorf("params = %+v, want page 1 limit %d", got, pagination.DefaultLimit)
	}
}

func TestAccountHandler_List_DatabaseUnavailable(t *testing.T) {
	svc := &mockAccountService{
		listFn: func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
			return nil, errDBDown
		},
	}
	router := newQueryRouter(svc, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/accounts")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body middleware.ErrorResponseBody
	json.NewDecoder(w.Body).Decode(&body)
	if body.Code != model.ErrCodeDatabaseUnavailable {
		t.Errorf("code = %q", body.Code)
	}
	if body.Error != "Failed to fetch accounts" {
		t.Errorf("error = %q", body.Error)
	}
	if body.Details == "" {
		t.Error("details should carry the cause")
	}
}

func TestAccountHandler_List_UnexpectedErrorIsInternal(t *testing.T) {
	svc := &mockAccountService{
		listFn: func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
			return nil, errors.New("failed to bind query parameters")
		},
	}
	router := newQueryRouter(svc, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/accounts")

	var body middleware.ErrorResponseBody
	json.NewDecoder(w.Body).Decode(&body)
	if w.Code != http.StatusInternalServerError || body.Code != model.ErrCodeInternal {
		t.Errorf("status = %d code = %q", w.Code, body.Code)
	}
	if body.Details != "" {
		t.Error("internal errors must not expose details")
	}
}

func TestAccountHandler_Get(t *testing.T) {
	svc := &mockAccountService{
		getFn: func(ctx context.Context, accountName string) (*model.Account, error) {
			if accountName == "DragonSlayer" {
				return &model.Account{AccountName: accountName}, nil
			}
			return nil, nil
		},
	}
	router := newQueryRouter(svc, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	if w := doGet(t, router, "/api/accounts/DragonSlayer"); w.Code != http.StatusOK {
		t.Errorf("found: status = %d, want 200", w.Code)
	}

	w := doGet(t, router, "/api/accounts/Nobody")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d, want 404", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != model.ErrCodeAccountNotFound {
		t.Errorf("code = %v", body["code"])
	}
}

// --- /api/characters ---

func TestCharacterHandler_Get_NonNumericIDIsNotFound(t *testing.T) {
	svc := &mockCharacterService{
		getFn: func(ctx context.Context, id int64) (*model.Character, error) {
			t.Errorf("service must not be called, got id %d", id)
			return nil, nil
		},
		inventoryFn: func(ctx context.Context, id int64) ([]model.InventoryItem, error) {
			t.Errorf("service must not be called, got id %d", id)
			return nil, nil
		},
	}
	router := newQueryRouter(&mockAccountService{}, svc, &mockLogService{}, &mockDashboardService{})

	for _, target := range []string{
		"/api/characters/abc",
		"/api/characters/0",
		"/api/characters/-3",
		"/api/characters/1.5",
		"/api/characters/abc/inventory",
	} {
		w := doGet(t, router, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, w.Code)
		}
	}
}

func TestCharacterHandler_Get(t *testing.T) {
	svc := &mockCharacterService{
		getFn: func(ctx context.Context, id int64) (*model.Character, error) {
			if id == 7 {
				return &model.Character{CharacterID: 7, CharacterName: "Aria", CharacterClass: 4, ClassName: "Cleric"}, nil
			}
			return nil, nil
		},
	}
	router := newQueryRouter(&mockAccountService{}, svc, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/characters/7")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["ClassName"] != "Cleric" {
		t.Errorf("ClassName = %v", body["ClassName"])
	}

	w = doGet(t, router, "/api/characters/999")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != model.ErrCodeCharacterNotFound {
		t.Errorf("code = %v", body["code"])
	}
}

func TestCharacterHandler_Inventory(t *testing.T) {
	svc := &mockCharacterService{
		inventoryFn: func(ctx context.Context, id int64) ([]model.InventoryItem, error) {
			if id == 7 {
				return []model.InventoryItem{
					{ItemID: 10, OwnerID: 7, ItemName: "Sword", SlotNo: 0},
					{ItemID: 11, OwnerID: 7, ItemName: "Shield", SlotNo: 1},
				}, nil
			}
			return nil, nil
		},
	}
	router := newQueryRouter(&mockAccountService{}, svc, &mockLogService{}, &mockDashboardService{})

	body := decodeBody(t, doGet(t, router, "/api/characters/7/inventory"))
	data, ok := body["data"].([]any)
	if !ok || len(data) != 2 {
		t.Fatalf("data = %v", body["data"])
	}
	if data[0].(map[string]any)["ItemName"] != "Sword" {
		t.Errorf("first item = %v", data[0])
	}

	// 存在しないキャラクターは空配列
	w := doGet(t, router, "/api/characters/8/inventory")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body = decodeBody(t, w)
	if data, ok := body["data"].([]any); !ok || len(data) != 0 {
		t.Errorf("data = %v, want []", body["data"])
	}
}

func TestCharacterHandler_List_DatabaseUnavailable(t *testing.T) {
	svc := &mockCharacterService{
		listFn: func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Character], error) {
			return nil, model.ErrDatabaseUnavailable
		},
	}
	router := newQueryRouter(&mockAccountService{}, svc, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/api/characters?search=x")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "Failed to fetch characters" {
		t.Errorf("error = %v", body["error"])
	}
}

// --- /api/logs ---

func TestLogHandler_List_UsesLogDefaultsAndOmitsTotal(t *testing.T) {
	svc := &mockLogService{
		listFn: func(ctx context.Context, logType string, p pagination.Params) (*model.LogPage, error) {
			if logType != "Trade" {
				t.Errorf("logType = %q, want Trade", logType)
			}
			if p.Limit != pagination.DefaultLogLimit {
				t.Errorf("limit = %d, want %d", p.Limit, pagination.DefaultLogLimit)
			}
			return &model.LogPage{Data: []model.LogEntry{{LogID: 1, LogType: "Trade"}}, Page: p.Page, Limit: p.Limit}, nil
		},
	}
	router := newQueryRouter(&mockAccountService{}, &mockCharacterService{}, svc, &mockDashboardService{})

	w := doGet(t, router, "/api/logs?type=Trade")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if _, ok := body["total"]; ok {
		t.Error("log envelope must not contain total")
	}
	if body["limit"] != float64(50) || body["page"] != float64(1) {
		t.Errorf("page = %v limit = %v", body["page"], body["limit"])
	}
}

// --- /api/dashboard/stats, /api/server/status ---

func TestDashboardHandler_Stats(t *testing.T) {
	svc := &mockDashboardService{
		statsFn: func(ctx context.Context) (*model.DashboardStats, error) {
			return &model.DashboardStats{TotalAccounts: 10, TotalCharacters: 25, OnlinePlayers: 3}, nil
		},
	}
	router := newQueryRouter(&mockAccountService{}, &mockCharacterService{}, &mockLogService{}, svc)

	body := decodeBody(t, doGet(t, router, "/api/dashboard/stats"))
	if body["totalAccounts"] != float64(10) || body["totalCharacters"] != float64(25) || body["onlinePlayers"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

func TestDashboardHandler_Stats_DatabaseUnavailable(t *testing.T) {
	svc := &mockDashboardService{
		statsFn: func(ctx context.Context) (*model.DashboardStats, error) {
			return nil, fmt.Errorf("%w: count world", model.ErrDatabaseUnavailable)
		},
	}
	router := newQueryRouter(&mockAccountService{}, &mockCharacterService{}, &mockLogService{}, svc)

	w := doGet(t, router, "/api/dashboard/stats")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != model.ErrCodeDatabaseUnavailable {
		t.Errorf("code = %v", body["code"])
	}
}

func TestDashboardHandler_ServerStatus_DegradedIsStill200(t *testing.T) {
	svc := &mockDashboardService{
		serverStatusFn: func(ctx context.Context) *model.ServerStatus {
			return &model.ServerStatus{Status: model.ServerStatusDatabaseUnreachable, OnlinePlayers: 0, Uptime: 12.5}
		},
	}
	router := newQueryRouter(&mockAccountService{}, &mockCharacterService{}, &mockLogService{}, svc)

	w := doGet(t, router, "/api/server/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "database_unreachable" || body["onlinePlayers"] != float64(0) || body["uptime"] != 12.5 {
		t.Errorf("body = %v", body)
	}
}

func TestHealth(t *testing.T) {
	router := newQueryRouter(&mockAccountService{}, &mockCharacterService{}, &mockLogService{}, &mockDashboardService{})

	w := doGet(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" || body["service"] != "nestadmin" {
		t.Errorf("body = %v", body)
	}
}
