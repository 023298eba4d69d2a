package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/ticketremaster/session"
)

const (
	sessionTable   = "auth_session"
	defaultProfile = "default"
)

// Dialect selects the placeholder style of the SQL store.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

var _ session.Store = (*SQLStore)(nil)

// SQLStore keeps the session in a single row of the auth_session table.
// Each Save is one upsert statement, so readers never see a partial record.
type SQLStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	profile string
}

// NewSQLStore creates a store over db. profile keys the row; an empty profile
// uses "default".
func NewSQLStore(db *sql.DB, dialect Dialect, profile string) *SQLStore {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	if profile == "" {
		profile = defaultProfile
	}
	return &SQLStore{
		db:      db,
		builder: builder,
		profile: profile,
	}
}

// Migrate creates the session table when it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS auth_session (
			id            TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			user_json     TEXT NOT NULL,
			expiry        BIGINT NOT NULL,
			updated_at    BIGINT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating session table: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (*session.Session, error) {
	query, args, err := s.builder.
		Select("access_token", "refresh_token", "user_json", "expiry").
		From(sessionTable).
		Where(sq.Eq{"id": s.profile}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var (
		r        record
		userJSON string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&r.AccessToken, &r.RefreshToken, &userJSON, &r.Expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting session: %w", err)
	}

	if r.User, err = decodeUser(userJSON); err != nil {
		return nil, err
	}
	return r.session(), nil
}

func (s *SQLStore) Save(ctx context.Context, sess session.Session) error {
	r := toRecord(sess)
	userJSON, err := encodeUser(r.User)
	if err != nil {
		return err
	}

	query, args, err := s.builder.
		Insert(sessionTable).
		Columns("id", "access_token", "refresh_token", "user_json", "expiry", "updated_at").
		Values(s.profile, r.AccessToken, r.RefreshToken, userJSON, r.Expiry, time.Now().UnixNano()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_json = excluded.user_json,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	query, args, err := s.builder.
		Delete(sessionTable).
		Where(sq.Eq{"id": s.profile}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
