package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/session"
)

// fakeDB keeps one row per session in memory and interprets the three
// statements the store issues.
type fakeDB struct {
	rows map[string]string
	err  error
}

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.val
	return nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		f.rows[args[0].(string)] = args[1].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.HasPrefix(sql, "DELETE"):
		delete(f.rows, args[0].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	v, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{val: v}
}

var _ cart.IDStore = (*session.Store)(nil)

func TestStore_RoundTrip(t *testing.T) {
	db := &fakeDB{rows: map[string]string{}}
	s := session.New(db, "sess-1")
	ctx := context.Background()

	if err := session.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil || !got.Empty() {
		t.Fatalf("Load on empty = %q, %v", got, err)
	}

	if err := s.Save(ctx, "cart-9"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, _ := s.Load(ctx); got != "cart-9" {
		t.Errorf("Load = %q, want cart-9", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := s.Load(ctx); !got.Empty() {
		t.Errorf("Load after clear = %q", got)
	}
}

func TestStore_PropagatesErrors(t *testing.T) {
	boom := errors.New("conn refused")
	s := session.New(&fakeDB{err: boom}, "sess-1")

	if _, err := s.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Load err = %v", err)
	}
	if err := s.Save(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("Save err = %v", err)
	}
}

func TestNewID(t *testing.T) {
	if session.NewID() == session.NewID() {
		t.Error("expected distinct session ids")
	}
	if session.New(nil, "abc").SessionID() != "abc" {
		t.Error("SessionID mismatch")
	}
}
