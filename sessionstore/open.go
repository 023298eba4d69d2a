package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/ticketremaster/session"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// Store kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindRedis    = "redis"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store named by kind. dsn is a file path for sqlite, a
// connection string for postgres and a redis:// URL for redis. The returned
// closer releases the underlying connection.
func Open(ctx context.Context, kind, dsn, profile string) (session.Store, io.Closer, error) {
	switch strings.ToLower(kind) {
	case "", KindMemory:
		return NewMemory(), nopCloser{}, nil

	case KindSQLite, KindPostgres:
		if dsn == "" {
			return nil, nil, fmt.Errorf("[sessionstore.Open] %s store requires a DSN", kind)
		}
		driver, dialect := "sqlite", DialectSQLite
		if strings.EqualFold(kind, KindPostgres) {
			driver, dialect = "postgres", DialectPostgres
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("[sessionstore.Open] sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("[sessionstore.Open] ping: %w", err)
		}
		store := NewSQLStore(db, dialect, profile)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("[sessionstore.Open] %w", err)
		}
		return store, db, nil

	case KindRedis:
		opt, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("[sessionstore.Open] redis.ParseURL: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("[sessionstore.Open] redis ping: %w", err)
		}
		return NewRedisStore(rdb, profile), rdb, nil
	}
	return nil, nil, fmt.Errorf("[sessionstore.Open] unknown store kind %q", kind)
}
