// Package datastore opens short-lived, read-only connections to SQL data
// stores on behalf of a single tool invocation.
//
// Every invocation owns its connection exclusively: it opens it through an
// Opener, runs one statement that already passed Policy.Check, and closes
// it exactly once on every exit path.
package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Driver names a database/sql driver registered by this package
type Driver string

const (
	DriverMySQL  Driver = "mysql"
	DriverSQLite Driver = "sqlite"
)

// Target identifies the data store to connect to
type Target struct {
	Driver Driver
	DSN    string
	// Name is a log-safe description: no password
	Name string
}

// Opener acquires connections
type Opener interface {
	Open(ctx context.Context, target Target) (Conn, error)
}

// Conn is one exclusively owned connection
type Conn interface {
	// Query runs a read-only statement and returns at most maxRows rows
	Query(ctx context.Context, query string, maxRows int) (*Result, error)
	Close() error
}

// Row keeps column order when rendered as JSON
type Row = orderedmap.OrderedMap[string, any]

// Field describes one result column. Type is the database type name as
// reported by the driver, empty for expressions without a declared type.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is the rendered output of a query
type Result struct {
	Query     string  `json:"query"`
	RowCount  int     `json:"rowCount"`
	Data      []*Row  `json:"data"`
	Fields    []Field `json:"fields"`
	Truncated bool    `json:"truncated,omitempty"`
}

// JSON renders the result indented by two spaces
func (r *Result) JSON() (string, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode query result: %w", err)
	}
	return string(out), nil
}

// ConnectError marks a failure to establish a connection
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError reports whether err came from establishing a connection
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}
