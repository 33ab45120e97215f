// Package testutil provides an in-memory stub database that understands the statement
// shapes the profile store issues against Postgres.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// StubConn records statements and keeps table rows in memory.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Queries    []string
	Tables     map[string][]map[string]driver.Value
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	RowsErr    error
	FailTables map[string]bool
	FailCommit bool
}

var seq int64

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]driver.Value)}
	name := fmt.Sprintf("stubpg%d_%d", time.Now().UnixNano(), atomic.AddInt64(&seq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Rows returns a copy of the rows currently held for table.
func (c *StubConn) Rows(table string) []map[string]driver.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.Tables[strings.ToLower(table)]
	out := make([]map[string]driver.Value, len(src))
	for i, row := range src {
		cp := make(map[string]driver.Value, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	query = normalize(query)
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(query)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		ins, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if c.FailTables[ins.table] {
			return nil, fmt.Errorf("exec fail for %s", ins.table)
		}
		if len(ins.cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s: %d columns, %d args", ins.table, len(ins.cols), len(args))
		}
		row := make(map[string]driver.Value, len(ins.cols))
		for i, col := range ins.cols {
			row[col] = clone(args[i].Value)
		}
		var kept []map[string]driver.Value
		for _, existing := range c.Tables[ins.table] {
			if len(ins.conflict) > 0 && sameKey(existing, row, ins.conflict) {
				continue
			}
			kept = append(kept, existing)
		}
		if len(ins.conflict) == 0 && len(kept) != len(c.Tables[ins.table]) {
			return nil, fmt.Errorf("duplicate key in %s", ins.table)
		}
		c.Tables[ins.table] = append(kept, row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, preds, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if c.FailTables[table] {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		var kept []map[string]driver.Value
		var n int64
		for _, row := range c.Tables[table] {
			if matches(row, preds, args) {
				n++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(n), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	query = normalize(query)
	c.Queries = append(c.Queries, query)
	sel, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[sel.table] {
		return nil, fmt.Errorf("query fail for %s", sel.table)
	}
	var picked []map[string]driver.Value
	for _, row := range c.Tables[sel.table] {
		if matches(row, sel.where, args) {
			picked = append(picked, row)
		}
	}
	if len(sel.order) > 0 {
		sort.SliceStable(picked, func(i, j int) bool {
			for _, col := range sel.order {
				if cmp := compare(picked[i][col], picked[j][col]); cmp != 0 {
					return cmp < 0
				}
			}
			return false
		})
	}
	values := make([][]driver.Value, 0, len(picked))
	for _, row := range picked {
		vals := make([]driver.Value, len(sel.cols))
		for i, col := range sel.cols {
			vals[i] = clone(row[col])
		}
		values = append(values, vals)
	}
	return &stubRows{cols: sel.cols, rows: values, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}
func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

type predicate struct {
	col   string
	arg   int // 1-based placeholder index, 0 for a literal
	value driver.Value
}

type insertStmt struct {
	table    string
	cols     []string
	conflict []string
}

type selectStmt struct {
	table string
	cols  []string
	where []predicate
	order []string
}

func parseInsert(query string) (insertStmt, error) {
	up := strings.ToUpper(query)
	rest := strings.TrimSpace(query[len("INSERT INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return insertStmt{}, fmt.Errorf("cannot parse insert: %s", query)
	}
	stmt := insertStmt{
		table: strings.ToLower(strings.TrimSpace(rest[:open])),
		cols:  splitColumns(rest[open+1 : closeIdx]),
	}
	if idx := strings.Index(up, "ON CONFLICT"); idx != -1 {
		tail := query[idx+len("ON CONFLICT"):]
		o, cl := strings.Index(tail, "("), strings.Index(tail, ")")
		if o == -1 || cl <= o {
			return insertStmt{}, fmt.Errorf("cannot parse conflict target: %s", query)
		}
		stmt.conflict = splitColumns(tail[o+1 : cl])
	}
	return stmt, nil
}

func parseDelete(query string) (string, []predicate, error) {
	rest := strings.TrimSpace(query[len("DELETE FROM "):])
	whereIdx := strings.Index(strings.ToUpper(rest), " WHERE ")
	if whereIdx == -1 {
		return strings.ToLower(strings.TrimSpace(rest)), nil, nil
	}
	preds, err := parseWhere(rest[whereIdx+len(" WHERE "):])
	if err != nil {
		return "", nil, fmt.Errorf("cannot parse delete %q: %w", query, err)
	}
	return strings.ToLower(strings.TrimSpace(rest[:whereIdx])), preds, nil
}

func parseSelect(query string) (selectStmt, error) {
	up := strings.ToUpper(query)
	if !strings.HasPrefix(up, "SELECT ") {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(up, " FROM ")
	if fromIdx == -1 {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	stmt := selectStmt{cols: splitColumns(query[len("SELECT "):fromIdx])}
	rest := strings.TrimSpace(query[fromIdx+len(" FROM "):])
	restUp := strings.ToUpper(rest)
	if idx := strings.Index(restUp, " ORDER BY "); idx != -1 {
		stmt.order = splitColumns(rest[idx+len(" ORDER BY "):])
		rest, restUp = rest[:idx], restUp[:idx]
	}
	if idx := strings.Index(restUp, " WHERE "); idx != -1 {
		preds, err := parseWhere(rest[idx+len(" WHERE "):])
		if err != nil {
			return selectStmt{}, fmt.Errorf("cannot parse select %q: %w", query, err)
		}
		stmt.where = preds
		rest = rest[:idx]
	}
	stmt.table = strings.ToLower(strings.TrimSpace(rest))
	if stmt.table == "" {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	return stmt, nil
}

func parseWhere(clause string) ([]predicate, error) {
	var preds []predicate
	for _, term := range splitAnd(clause) {
		parts := strings.SplitN(term, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unsupported predicate %q", term)
		}
		p := predicate{col: strings.ToLower(strings.TrimSpace(parts[0]))}
		rhs := strings.TrimSpace(parts[1])
		switch {
		case strings.HasPrefix(rhs, "$"):
			n, err := strconv.Atoi(rhs[1:])
			if err != nil {
				return nil, fmt.Errorf("bad placeholder %q", rhs)
			}
			p.arg = n
		case strings.HasPrefix(rhs, "'"):
			p.value = strings.Trim(rhs, "'")
		default:
			n, err := strconv.ParseInt(rhs, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unsupported literal %q", rhs)
			}
			p.value = n
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func splitAnd(clause string) []string {
	var out []string
	for {
		idx := strings.Index(strings.ToUpper(clause), " AND ")
		if idx == -1 {
			return append(out, clause)
		}
		out = append(out, clause[:idx])
		clause = clause[idx+len(" AND "):]
	}
}

func matches(row map[string]driver.Value, preds []predicate, args []driver.NamedValue) bool {
	for _, p := range preds {
		want := p.value
		if p.arg > 0 {
			if p.arg > len(args) {
				return false
			}
			want = args[p.arg-1].Value
		}
		if compare(row[p.col], want) != 0 {
			return false
		}
	}
	return true
}

func sameKey(a, b map[string]driver.Value, cols []string) bool {
	for _, col := range cols {
		if compare(a[col], b[col]) != 0 {
			return false
		}
	}
	return true
}

func compare(a, b driver.Value) int {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	if aok && bok {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func clone(v driver.Value) driver.Value {
	if b, ok := v.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return v
}

func normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
