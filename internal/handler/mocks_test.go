package handler

import (
	"context"
	"sync"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn         func(provider model.Provider, state string) (string, error)
	handleCallbackFn      func(ctx context.Context, provider model.Provider, code string) (*model.Session, error)
	logoutFn              func(ctx context.Context, sessionID string) error
	getCurrentPrincipalFn func(ctx context.Context, sessionID string) (*model.AdminPrincipal, error)
}

func (m *mockAuthService) GetLoginURL(provider model.Provider, state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(provider, state)
	}
	return "https://idp.example.com/authorize?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider model.Provider, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentPrincipal(ctx context.Context, sessionID string) (*model.AdminPrincipal, error) {
	if m.getCurrentPrincipalFn != nil {
		return m.getCurrentPrincipalFn(ctx, sessionID)
	}
	return nil, nil
}

type mockAccountService struct {
	listFn func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error)
	getFn  func(ctx context.Context, accountName string) (*model.Account, error)
}

func (m *mockAccountService) List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Account], error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, p)
	}
	return &model.PagedResult[model.Account]{Data: []model.Account{}, Page: p.Page, Limit: p.Limit}, nil
}

func (m *mockAccountService) Get(ctx context.Context, accountName string) (*model.Account, error) {
	if m.getFn != nil {
		return m.getFn(ctx, accountName)
	}
	return nil, nil
}

type mockCharacterService struct {
	listFn      func(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Character], error)
	getFn       func(ctx context.Context, id int64) (*model.Character, error)
	inventoryFn func(ctx context.Context, id int64) ([]model.InventoryItem, error)
}

func (m *mockCharacterService) List(ctx context.Context, search string, p pagination.Params) (*model.PagedResult[model.Character], error) {
	if m.listFn != nil {
		return m.listFn(ctx, search, p)
	}
	return &model.PagedResult[model.Character]{Data: []model.Character{}, Page: p.Page, Limit: p.Limit}, nil
}

func (m *mockCharacterService) Get(ctx context.Context, id int64) (*model.Character, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCharacterService) Inventory(ctx context.Context, id int64) ([]model.InventoryItem, error) {
	if m.inventoryFn != nil {
		return m.inventoryFn(ctx, id)
	}
	return nil, nil
}

type mockLogService struct {
	listFn func(ctx context.Context, logType string, p pagination.Params) (*model.LogPage, error)
}

func (m *mockLogService) List(ctx context.Context, logType string, p pagination.Params) (*model.LogPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, logType, p)
	}
	return &model.LogPage{Data: []model.LogEntry{}, Page: p.Page, Limit: p.Limit}, nil
}

type mockDashboardService struct {
	statsFn        func(ctx context.Context) (*model.DashboardStats, error)
	serverStatusFn func(ctx context.Context) *model.ServerStatus
}

func (m *mockDashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.DashboardStats{}, nil
}

func (m *mockDashboardService) ServerStatus(ctx context.Context) *model.ServerStatus {
	if m.serverStatusFn != nil {
		return m.serverStatusFn(ctx)
	}
	return &model.ServerStatus{Status: "running"}
}

// mockMetrics はログイン結果を記録する。
type mockMetrics struct {
	mu     sync.Mutex
	logins []string
}

func (m *mockMetrics) RecordLogin(provider string, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, provider+":"+result)
}

func (m *mockMetrics) RecordSessionsCleaned(count int64) {}

var testAdmin = &model.AdminPrincipal{
	ID:          "42",
	Provider:    model.ProviderGoogle,
	Email:       "admin@example.com",
	DisplayName: "管理者",
}
