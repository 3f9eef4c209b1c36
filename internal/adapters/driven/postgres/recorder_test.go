package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// recorder is an in-process database/sql driver that logs every statement
// and transaction outcome, and can be told to fail matching statements.
type recorder struct {
	mu         sync.Mutex
	statements []recordedStatement
	commits    int
	rollbacks  int

	// failOn makes any statement containing it return failErr.
	failOn  string
	failErr error

	// affected maps a statement substring to its RowsAffected (default 1).
	affected map[string]int64

	// columns and rows are returned for every query.
	columns []string
	rows    [][]driver.Value

	pingErr error
}

type recordedStatement struct {
	query string
	args  []driver.Value
}

func newRecorderDB(t *testing.T, rec *recorder) *DB {
	t.Helper()
	db := sql.OpenDB(&recordingConnector{rec: rec})
	t.Cleanup(func() { _ = db.Close() })
	return &DB{DB: db}
}

func (r *recorder) record(query string, args []driver.NamedValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	r.statements = append(r.statements, recordedStatement{
		query: strings.Join(strings.Fields(query), " "),
		args:  values,
	})
	if r.failOn != "" && strings.Contains(query, r.failOn) {
		return r.failErr
	}
	return nil
}

func (r *recorder) queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statements))
	for i, s := range r.statements {
		out[i] = s.query
	}
	return out
}

type recordingConnector struct{ rec *recorder }

func (c *recordingConnector) Connect(context.Context) (driver.Conn, error) {
	return &recordingConn{rec: c.rec}, nil
}

func (c *recordingConnector) Driver() driver.Driver { return recordingDriver{} }

type recordingDriver struct{}

func (recordingDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("recording driver is opened through its connector")
}

type recordingConn struct{ rec *recorder }

func (c *recordingConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements are not supported")
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Ping(context.Context) error {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	return c.rec.pingErr
}

func (c *recordingConn) Begin() (driver.Tx, error) {
	return &recordingTx{rec: c.rec}, nil
}

func (c *recordingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := c.rec.record(query, args); err != nil {
		return nil, err
	}
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	for substr, n := range c.rec.affected {
		if strings.Contains(query, substr) {
			return driver.RowsAffected(n), nil
		}
	}
	return driver.RowsAffected(1), nil
}

func (c *recordingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := c.rec.record(query, args); err != nil {
		return nil, err
	}
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	return &recordingRows{columns: c.rec.columns, rows: c.rec.rows}, nil
}

type recordingTx struct{ rec *recorder }

func (tx *recordingTx) Commit() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.commits++
	return nil
}

func (tx *recordingTx) Rollback() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.rollbacks++
	return nil
}

type recordingRows struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *recordingRows) Columns() []string { return r.columns }

func (r *recordingRows) Close() error { return nil }

func (r *recordingRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
