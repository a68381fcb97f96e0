package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/nestadmin/internal/model"
)

// SessionDB はセッションテーブルの操作に必要なDB操作。*sqlx.DBが実装する。
type SessionDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// PostgresSessionRepo はPostgreSQLのadmin_sessionsテーブルを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db     SessionDB
	secret []byte
	now    func() time.Time
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
// secretはセッションIDから保存キーを導出するために使う。
func NewPostgresSessionRepo(db SessionDB, secret []byte) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db, secret: secret, now: time.Now}
}

type sessionRow struct {
	Principal []byte    `db:"principal"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	principal, err := json.Marshal(session.Principal)
	if err != nil {
		return fmt.Errorf("failed to encode session principal: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, principal, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionKey(r.secret, session.ID), principal, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT principal, expires_at, created_at
		 FROM admin_sessions
		 WHERE id = $1 AND expires_at > $2`,
		sessionKey(r.secret, id), r.now(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	principal := &model.AdminPrincipal{}
	if err := json.Unmarshal(row.Principal, principal); err != nil {
		return nil, fmt.Errorf("failed to decode session principal: %w", err)
	}

	return &model.Session{
		ID:        id,
		Principal: principal,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE id = $1`,
		sessionKey(r.secret, id),
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを一括削除する。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
