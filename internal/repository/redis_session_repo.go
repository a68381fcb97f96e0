package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/hitoshi/nestadmin/internal/model"
)

const redisSessionPrefix = "nestadmin:session:"

// redisCommands はセッション操作で使うRedisコマンド。
type redisCommands interface {
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(key string) *redis.StringCmd
	Del(keys ...string) *redis.IntCmd
}

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// 有効期限はキーのTTLに委ねるため、期限切れの一括削除は不要。
type RedisSessionRepo struct {
	conn   func(ctx context.Context) redisCommands
	secret []byte
	now    func() time.Time
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client *redis.Client, secret []byte) *RedisSessionRepo {
	return &RedisSessionRepo{
		conn: func(ctx context.Context) redisCommands {
			return client.WithContext(ctx)
		},
		secret: secret,
		now:    time.Now,
	}
}

// NewRedisClient はREDIS_URLからクライアントを生成し、疎通を確認する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 1

	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type redisSession struct {
	Principal *model.AdminPrincipal `json:"principal"`
	ExpiresAt time.Time             `json:"expiresAt"`
	CreatedAt time.Time             `json:"createdAt"`
}

func (r *RedisSessionRepo) key(id string) string {
	return redisSessionPrefix + sessionKey(r.secret, id)
}

// Create はセッションを作成する。TTLは有効期限までの残り時間。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("failed to create session: already expired at %s", session.ExpiresAt.Format(time.RFC3339))
	}

	value, err := json.Marshal(redisSession{
		Principal: session.Principal,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.conn(ctx).Set(r.key(session.ID), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。存在しない場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	value, err := r.conn(ctx).Get(r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if stored.Principal == nil {
		return nil, fmt.Errorf("failed to decode session: missing principal")
	}

	session := &model.Session{
		ID:        id,
		Principal: stored.Principal,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}
	// TTLの丸めで期限直後に読めてしまう場合に備える
	if session.Expired(r.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.conn(ctx).Del(r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は何もしない。期限切れのキーはRedisが削除する。
func (r *RedisSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)
