package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/hitoshi/nestadmin/internal/model"
)

var testSecret = []byte("test-session-secret-32bytes-long!")

func testSession(now time.Time) *model.Session {
	return &model.Session{
		ID: "raw-cookie-session-id",
		Principal: &model.AdminPrincipal{
			ID:          "1234",
			Provider:    model.ProviderDiscord,
			Email:       "admin@example.com",
			DisplayName: "Admin",
		},
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

func TestSessionKey_DependsOnSecret(t *testing.T) {
	a := sessionKey([]byte("secret-a-0123456789"), "sid")
	b := sessionKey([]byte("secret-b-0123456789"), "sid")
	if a == b {
		t.Error("different secrets must derive different keys")
	}
	if a != sessionKey([]byte("secret-a-0123456789"), "sid") {
		t.Error("key derivation must be deterministic")
	}
	if strings.Contains(a, "sid") || len(a) != 64 {
		t.Errorf("unexpected key %q", a)
	}
}

// --- PostgresSessionRepo ---

type execCall struct {
	query string
	args  []any
}

type fakeResult struct{ rows int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

// mockSessionDB はSessionDBのモック実装。
type mockSessionDB struct {
	execs  []execCall
	gets   []execCall
	execFn func() (sql.Result, error)
	getFn  func(dest any) error
}

func (m *mockSessionDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.execs = append(m.execs, execCall{query: query, args: args})
	if m.execFn != nil {
		return m.execFn()
	}
	return fakeResult{}, nil
}

func (m *mockSessionDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	m.gets = append(m.gets, execCall{query: query, args: args})
	if m.getFn != nil {
		return m.getFn(dest)
	}
	return nil
}

func TestPostgresSessionRepo_Create_StoresHashedKey(t *testing.T) {
	db := &mockSessionDB{}
	repo := NewPostgresSessionRepo(db, testSecret)
	s := testSession(time.Now())

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(db.execs) != 1 {
		t.Fatalf("exec count = %d, want 1", len(db.execs))
	}
	args := db.execs[0].args
	if args[0] == s.ID {
		t.Error("raw session id must not be stored")
	}
	if args[0] != sessionKey(testSecret, s.ID) {
		t.Errorf("stored key = %v", args[0])
	}

	var principal model.AdminPrincipal
	if err := json.Unmarshal(args[1].([]byte), &principal); err != nil {
		t.Fatalf("principal is not JSON: %v", err)
	}
	if principal.Email != "admin@example.com" || principal.Provider != model.ProviderDiscord {
		t.Errorf("principal = %+v", principal)
	}
}

func TestPostgresSessionRepo_FindByID(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	principal, _ := json.Marshal(testSession(now).Principal)

	db := &mockSessionDB{getFn: func(dest any) error {
		row := dest.(*sessionRow)
		row.Principal = principal
		row.ExpiresAt = now.Add(time.Hour)
		row.CreatedAt = now
		return nil
	}}
	repo := NewPostgresSessionRepo(db, testSecret)
	repo.now = func() time.Time { return now }

	s, err := repo.FindByID(context.Background(), "raw-cookie-session-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil || s.Principal == nil {
		t.Fatal("expected session with principal")
	}
	if s.ID != "raw-cookie-session-id" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Principal.Key() != "discord:1234" {
		t.Errorf("principal key = %q", s.Principal.Key())
	}

	get := db.gets[0]
	if !strings.Contains(get.query, "expires_at > $2") {
		t.Errorf("expired sessions must be excluded: %s", get.query)
	}
	if get.args[0] != sessionKey(testSecret, "raw-cookie-session-id") || get.args[1] != now {
		t.Errorf("args = %v", get.args)
	}
}

func TestPostgresSessionRepo_FindByID_NotFound(t *testing.T) {
	db := &mockSessionDB{getFn: func(dest any) error { return sql.ErrNoRows }}
	repo := NewPostgresSessionRepo(db, testSecret)

	s, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestPostgresSessionRepo_FindByID_Error(t *testing.T) {
	db := &mockSessionDB{getFn: func(dest any) error { return errors.New("connection reset") }}
	repo := NewPostgresSessionRepo(db, testSecret)

	if _, err := repo.FindByID(context.Background(), "sid"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	db := &mockSessionDB{execFn: func() (sql.Result, error) { return fakeResult{rows: 3}, nil }}
	repo := NewPostgresSessionRepo(db, testSecret)
	now := time.Now()

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	if !strings.Contains(db.execs[0].query, "expires_at <= $1") || db.execs[0].args[0] != now {
		t.Errorf("exec = %+v", db.execs[0])
	}
}

func TestPostgresSessionRepo_DeleteByID_UsesHashedKey(t *testing.T) {
	db := &mockSessionDB{}
	repo := NewPostgresSessionRepo(db, testSecret)

	if err := repo.DeleteByID(context.Background(), "sid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.execs[0].args[0] != sessionKey(testSecret, "sid") {
		t.Errorf("args = %v", db.execs[0].args)
	}
}

// --- RedisSessionRepo ---

// fakeRedis はredisCommandsのインメモリ実装。
type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newTestRedisRepo(f *fakeRedis, now time.Time) *RedisSessionRepo {
	return &RedisSessionRepo{
		conn:   func(context.Context) redisCommands { return f },
		secret: testSecret,
		now:    func() time.Time { return now },
	}
}

func TestRedisSessionRepo_RoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFakeRedis()
	repo := newTestRedisRepo(f, now)
	s := testSession(now)
	ctx := context.Background()

	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	key := redisSessionPrefix + sessionKey(testSecret, s.ID)
	if f.ttls[key] != time.Hour {
		t.Errorf("ttl = %v, want 1h", f.ttls[key])
	}

	got, err := repo.FindByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got == nil || got.Principal.Email != "admin@example.com" {
		t.Fatalf("session = %+v", got)
	}

	if err := repo.DeleteByID(ctx, s.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if got, _ := repo.FindByID(ctx, s.ID); got != nil {
		t.Error("session should be gone after delete")
	}
}

func TestRedisSessionRepo_FindByID_Missing(t *testing.T) {
	repo := newTestRedisRepo(newFakeRedis(), time.Now())

	s, err := repo.FindByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
}

func TestRedisSessionRepo_FindByID_ExpiredIsNil(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFakeRedis()
	repo := newTestRedisRepo(f, now)
	if err := repo.Create(context.Background(), testSession(now)); err != nil {
		t.Fatal(err)
	}

	repo.now = func() time.Time { return now.Add(2 * time.Hour) }
	s, err := repo.FindByID(context.Background(), "raw-cookie-session-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expired session should not be returned")
	}
}

func TestRedisSessionRepo_Create_AlreadyExpired(t *testing.T) {
	now := time.Now()
	repo := newTestRedisRepo(newFakeRedis(), now)
	s := testSession(now)
	s.ExpiresAt = now.Add(-time.Second)

	if err := repo.Create(context.Background(), s); err == nil {
		t.Fatal("expected error for already expired session")
	}
}

func TestRedisSessionRepo_Errors(t *testing.T) {
	f := newFakeRedis()
	f.err = errors.New("connection refused")
	repo := newTestRedisRepo(f, time.Now())
	ctx := context.Background()

	if err := repo.Create(ctx, testSession(time.Now())); err == nil {
		t.Error("Create: expected error")
	}
	if _, err := repo.FindByID(ctx, "sid"); err == nil {
		t.Error("FindByID: expected error")
	}
	if err := repo.DeleteByID(ctx, "sid"); err == nil {
		t.Error("DeleteByID: expected error")
	}
}

func TestRedisSessionRepo_DeleteExpiredIsNoop(t *testing.T) {
	repo := newTestRedisRepo(newFakeRedis(), time.Now())
	n, err := repo.DeleteExpired(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Errorf("DeleteExpired = %d, %v", n, err)
	}
}
