// Package session persists the guest cart id of a storefront session in
// Postgres so a checkout can be resumed by another process.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
)

const Schema = `CREATE TABLE IF NOT EXISTS checkout_sessions (
	session_id    TEXT PRIMARY KEY,
	guest_cart_id TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DB is the subset of *pgxpool.Pool used here.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db        DB
	sessionID string
}

func New(db DB, sessionID string) *Store {
	return &Store{db: db, sessionID: sessionID}
}

func NewID() string {
	return uuid.NewString()
}

func EnsureSchema(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, Schema)
	return err
}

func (s *Store) SessionID() string { return s.sessionID }

func (s *Store) Load(ctx context.Context) (domain.GuestCartID, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT guest_cart_id FROM checkout_sessions WHERE session_id=$1`, s.sessionID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.GuestCartID(id), nil
}

func (s *Store) Save(ctx context.Context, id domain.GuestCartID) error {
	_, err := s.db.Exec(ctx, `INSERT INTO checkout_sessions(session_id, guest_cart_id) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET guest_cart_id=EXCLUDED.guest_cart_id, updated_at=now()`,
		s.sessionID, id.String())
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM checkout_sessions WHERE session_id=$1`, s.sessionID)
	return err
}
