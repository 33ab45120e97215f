package schema

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	for name, ddl := range map[string]string{"sqlite": SQLite(), "postgres": Postgres()} {
		stmts := SplitStatements(ddl)
		if len(stmts) != len(Tables) {
			t.Fatalf("%s: expected %d statements, got %d", name, len(Tables), len(stmts))
		}
		for i, stmt := range stmts {
			if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
				t.Fatalf("%s: statement unexpectedly starts with comment: %q", name, stmt)
			}
			if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
				t.Fatalf("%s: statement missing semicolon terminator: %q", name, stmt)
			}
			if !strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+Tables[i]+" (") {
				t.Fatalf("%s: statement %d does not create %s: %q", name, i, Tables[i], stmt)
			}
		}
	}
}

func TestSplitStatementsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (x INT);\n\nCREATE TABLE b (y INT)")
	if len(stmts) != 2 || stmts[1] != "CREATE TABLE b (y INT)" {
		t.Fatalf("unexpected statements: %q", stmts)
	}
}

func TestPostgresBundleUsesNativeTypes(t *testing.T) {
	ddl := Postgres()
	if strings.Contains(ddl, "BLOB") || !strings.Contains(ddl, "BYTEA") {
		t.Fatal("expected postgres DDL to use BYTEA columns")
	}
	if !strings.Contains(SQLite(), "cal12 BLOB") {
		t.Fatal("expected sqlite DDL to declare twelve coefficient columns")
	}
}
