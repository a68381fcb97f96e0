package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nestadmin/internal/model"
)

// --- モック定義 ---

type mockPrincipalFinder struct {
	getCurrentPrincipalFn func(ctx context.Context, sessionID string) (*model.AdminPrincipal, error)
}

func (m *mockPrincipalFinder) GetCurrentPrincipal(ctx context.Context, sessionID string) (*model.AdminPrincipal, error) {
	if m.getCurrentPrincipalFn != nil {
		return m.getCurrentPrincipalFn(ctx, sessionID)
	}
	return nil, nil
}

var testPrincipal = &model.AdminPrincipal{
	ID:          "1234",
	Provider:    model.ProviderDiscord,
	Email:       "admin@example.com",
	DisplayName: "Admin",
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsPrincipal(t *testing.T) {
	finder := &mockPrincipalFinder{
		getCurrentPrincipalFn: func(ctx context.Context, sessionID string) (*model.AdminPrincipal, error) {
			if sessionID == "valid-session-id" {
				return testPrincipal, nil
			}
			return nil, nil
		},
	}

	var captured *model.AdminPrincipal
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("principal should be in context")
		}
		captured = p
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured != testPrincipal {
		t.Errorf("principal = %+v", captured)
	}
}

func TestSessionMiddleware_Unauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockPrincipalFinder
	}{
		{"no cookie", nil, &mockPrincipalFinder{}},
		{"empty cookie", &http.Cookie{Name: SessionCookieName, Value: ""}, &mockPrincipalFinder{}},
		{"unknown session", &http.Cookie{Name: SessionCookieName, Value: "nope"}, &mockPrincipalFinder{}},
		{"store error", &http.Cookie{Name: SessionCookieName, Value: "sid"}, &mockPrincipalFinder{
			getCurrentPrincipalFn: func(ctx context.Context, sessionID string) (*model.AdminPrincipal, error) {
				return nil, errors.New("db down")
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(tt.finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if called {
				t.Error("handler must not run for unauthenticated requests")
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthenticated {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthenticated)
			}
		})
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Error("expected no principal in empty context")
	}
	if _, ok := PrincipalFromContext(ContextWithPrincipal(context.Background(), nil)); ok {
		t.Error("nil principal should not be reported as present")
	}
}
