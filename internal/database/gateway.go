package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
)

// Target はクエリの発行先となる論理データベース。
// 値はアプリケーションコードでのみ選択し、リクエスト由来の値から生成してはならない。
type Target int

const (
	// Membership はアカウント情報を保持するメンバーシップDB。
	Membership Target = iota
	// World はキャラクター・アイテム・ログを保持するゲームワールドDB。
	World
)

// String は論理データベース名を返す。メトリクスのラベルにも使用する。
func (t Target) String() string {
	switch t {
	case Membership:
		return "membership"
	case World:
		return "world"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// PoolConfig はコネクションプールの設定。
// MaxOpenConnsを超えたリクエストはdatabase/sql内で接続待ちとなり、
// クエリのタイムアウトで打ち切られる。
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
}

// GatewayConfig はGatewayの設定。
type GatewayConfig struct {
	MembershipURL  string
	WorldURL       string
	Pool           PoolConfig
	QueryTimeout   time.Duration // 1回のクエリの上限時間
	ConnectTimeout time.Duration // プール確立（Ping）の上限時間
}

// QueryObserver はクエリの実行時間と結果を受け取る。メトリクス収集に使う。
type QueryObserver interface {
	ObserveQuery(target string, duration time.Duration, err error)
}

// Opener は接続先URLからプールを確立する関数。テストで差し替える。
type Opener func(ctx context.Context, databaseURL string, pool PoolConfig) (*sqlx.DB, error)

// Option はGatewayの生成オプション。
type Option func(*Gateway)

// WithOpener はプール確立処理を差し替える。
func WithOpener(open Opener) Option {
	return func(g *Gateway) { g.open = open }
}

// WithObserver はクエリ観測フックを設定する。
func WithObserver(observer QueryObserver) Option {
	return func(g *Gateway) { g.observer = observer }
}

// Gateway は論理データベースごとのコネクションプールを遅延確立し、
// 名前付きパラメータのクエリを実行する。
//
// プールは最初の呼び出し時に確立される。確立中に到着した呼び出しは
// 同じ確立処理の結果を待つため、プールが重複して作られることはない。
// 確立に失敗した場合は結果をキャッシュせず、次の呼び出しで再試行する。
type Gateway struct {
	urls     map[Target]string
	pool     PoolConfig
	timeout  time.Duration
	connect  time.Duration
	open     Opener
	observer QueryObserver

	mu    sync.RWMutex
	pools map[Target]*sqlx.DB
	group singleflight.Group
}

// NewGateway はGatewayを生成する。この時点では接続しない。
func NewGateway(cfg GatewayConfig, opts ...Option) *Gateway {
	g := &Gateway{
		urls: map[Target]string{
			Membership: cfg.MembershipURL,
			World:      cfg.WorldURL,
		},
		pool:    cfg.Pool,
		timeout: cfg.QueryTimeout,
		connect: cfg.ConnectTimeout,
		open:    openPool,
		pools:   make(map[Target]*sqlx.DB),
	}
	if g.timeout <= 0 {
		g.timeout = 15 * time.Second
	}
	if g.connect <= 0 {
		g.connect = 10 * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect は指定した論理データベースのプールを返す。未確立の場合は確立する。
// 失敗時のエラーはmodel.ErrDatabaseUnavailableをラップする。
func (g *Gateway) Connect(ctx context.Context, target Target) (*sqlx.DB, error) {
	if db := g.cached(target); db != nil {
		return db, nil
	}

	databaseURL := g.urls[target]
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: no connection configured for %s database", model.ErrDatabaseUnavailable, target)
	}

	v, err, _ := g.group.Do(target.String(), func() (any, error) {
		if db := g.cached(target); db != nil {
			return db, nil
		}

		// 先頭の呼び出し元がキャンセルしても、待機中の他の呼び出し元には影響させない
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.connect)
		defer cancel()

		db, err := g.open(cctx, databaseURL, g.pool)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.pools[target] = db
		g.mu.Unlock()

		slog.Info("database pool established",
			slog.String("database", target.String()),
			slog.Int("max_open_conns", g.pool.MaxOpenConns),
		)
		return db, nil
	})
	if err != nil {
		slog.Error("failed to connect database",
			slog.String("database", target.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: connect %s database: %w", model.ErrDatabaseUnavailable, target, err)
	}

	return v.(*sqlx.DB), nil
}

// Select はクエリを実行し、結果行をdestのスライスにスキャンする。
// queryには名前付きプレースホルダ（:name）を使い、値はparamsで渡す。
func (g *Gateway) Select(ctx context.Context, target Target, dest any, query string, params map[string]any) error {
	return g.run(ctx, target, "select", func(ctx context.Context, db *sqlx.DB, q string, args []any) error {
		return db.SelectContext(ctx, dest, q, args...)
	}, query, params)
}

// Get は1行を取得してdestにスキャンする。
// 該当行がない場合はsql.ErrNoRowsをそのまま返す。
func (g *Gateway) Get(ctx context.Context, target Target, dest any, query string, params map[string]any) error {
	return g.run(ctx, target, "get", func(ctx context.Context, db *sqlx.DB, q string, args []any) error {
		return db.GetContext(ctx, dest, q, args...)
	}, query, params)
}

// Ping は指定した論理データベースへの疎通を確認する。
func (g *Gateway) Ping(ctx context.Context, target Target) error {
	db, err := g.Connect(ctx, target)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %s database: %w", model.ErrDatabaseUnavailable, target, err)
	}
	return nil
}

// Close は確立済みの全プールを閉じる。
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for target, db := range g.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s database: %w", target, err))
		}
		delete(g.pools, target)
	}
	return errors.Join(errs...)
}

type execFunc func(ctx context.Context, db *sqlx.DB, query string, args []any) error

func (g *Gateway) run(ctx context.Context, target Target, op string, exec execFunc, query string, params map[string]any) error {
	q, args, err := Bind(query, params)
	if err != nil {
		return fmt.Errorf("failed to bind query parameters: %w", err)
	}

	db, err := g.Connect(ctx, target)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err = exec(ctx, db, q, args)
	if errors.Is(err, sql.ErrNoRows) {
		g.observe(target, time.Since(start), nil)
		return sql.ErrNoRows
	}
	g.observe(target, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%w: %s on %s database: %w", model.ErrDatabaseUnavailable, op, target, err)
	}
	return nil
}

func (g *Gateway) observe(target Target, d time.Duration, err error) {
	if g.observer != nil {
		g.observer.ObserveQuery(target.String(), d, err)
	}
}

func (g *Gateway) cached(target Target) *sqlx.DB {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pools[target]
}

// Bind は名前付きプレースホルダ（:name）を含むクエリをPostgreSQLの位置パラメータ（$1, $2 ...）に変換し、
// paramsから対応する引数列を組み立てる。値がクエリ文字列に埋め込まれることはない。
func Bind(query string, params map[string]any) (string, []any, error) {
	if params == nil {
		params = map[string]any{}
	}
	q, args, err := sqlx.Named(query, params)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.BindType(driverName), q), args, nil
}

// openPool はプールを生成し、Pingで接続を確認する。
func openPool(ctx context.Context, databaseURL string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := Open(databaseURL)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
