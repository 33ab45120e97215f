package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"vnastore/internal/infra/persistence/postgres/testutil"
)

func TestRebind(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                                  "SELECT 1",
		"DELETE FROM CAL_KITS WHERE label = ?":      "DELETE FROM CAL_KITS WHERE label = $1",
		"INSERT INTO t (a, b, c) VALUES (?, ?, ?)":  "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)",
		"SELECT a FROM t WHERE b = '?' AND c = ?":   "SELECT a FROM t WHERE b = '?' AND c = $1",
		`SELECT "odd?" FROM t WHERE x = ? OR y = ?`: `SELECT "odd?" FROM t WHERE x = $1 OR y = $2`,
	}
	for in, want := range cases {
		if got := Rebind(in); got != want {
			t.Fatalf("Rebind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnectUsesOverriddenOpener(t *testing.T) {
	db, _ := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	defer restore()

	b := New("")
	conn, err := b.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = conn.Close() }()
	if gotDriver != "pgx" || gotDSN != DefaultDSN {
		t.Fatalf("opened %s %s", gotDriver, gotDSN)
	}
	if b.Name() != "postgres" || b.Schema() == "" {
		t.Fatalf("unexpected backend identity %q", b.Name())
	}
}

func TestConnectReportsPingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := New("postgres://x").Connect(context.Background()); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestConnectReportsOpenFailure(t *testing.T) {
	boom := errors.New("boom")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, boom })
	defer restore()
	if _, err := New("postgres://x").Connect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
}
