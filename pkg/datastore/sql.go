package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	_ "modernc.org/sqlite"
)

// ConnectTimeout bounds establishing a MySQL connection
const ConnectTimeout = 10 * time.Second

// MySQLTarget builds a target for a MySQL server
func MySQLTarget(host string, port int, user, password, database string) Target {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.User = user
	cfg.Passwd = password
	cfg.DBName = database
	cfg.Timeout = ConnectTimeout
	cfg.ParseTime = true

	return Target{
		Driver: DriverMySQL,
		DSN:    cfg.FormatDSN(),
		Name:   fmt.Sprintf("mysql://%s@%s/%s", user, cfg.Addr, database),
	}
}

// SQLiteTarget builds a target for a SQLite database file
func SQLiteTarget(path string) Target {
	return Target{
		Driver: DriverSQLite,
		DSN:    path,
		Name:   "sqlite://" + path,
	}
}

// SQLOpener opens connections through database/sql
type SQLOpener struct{}

// Open implements Opener. The connection is live when Open returns.
func (SQLOpener) Open(ctx context.Context, target Target) (Conn, error) {
	db, err := sql.Open(string(target.Driver), target.DSN)
	if err != nil {
		return nil, &ConnectError{Target: target.Name, Err: err}
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &ConnectError{Target: target.Name, Err: err}
	}

	if target.Driver == DriverSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, &ConnectError{Target: target.Name, Err: fmt.Errorf("set query_only: %w", err)}
		}
	}

	return &sqlConn{driver: target.Driver, db: db, conn: conn}, nil
}

type sqlConn struct {
	driver Driver
	db     *sql.DB
	conn   *sql.Conn

	closeOnce sync.Once
	closeErr  error
}

func (c *sqlConn) Query(ctx context.Context, query string, maxRows int) (*Result, error) {
	if c.driver != DriverMySQL {
		rows, err := c.conn.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("execute query: %w", err)
		}
		return collect(query, rows, maxRows)
	}

	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return collect(query, rows, maxRows)
}

func (c *sqlConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.conn.Close(), c.db.Close())
	})
	return c.closeErr
}

// collect reads at most maxRows rows and closes rows
func collect(query string, rows *sql.Rows, maxRows int) (*Result, error) {
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &Result{Query: query, Fields: make([]Field, len(columns)), Data: []*Row{}}
	for i, col := range columns {
		result.Fields[i] = Field{Name: col.Name(), Type: col.DatabaseTypeName()}
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if maxRows > 0 && len(result.Data) >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := orderedmap.New[string, any]()
		for i, field := range result.Fields {
			row.Set(field.Name, jsonValue(values[i]))
		}
		result.Data = append(result.Data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	result.RowCount = len(result.Data)
	return result, nil
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}
