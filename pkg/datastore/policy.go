package datastore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// ErrRejected is wrapped by every allow-list rejection
var ErrRejected = errors.New("query rejected")

// Policy decides which statements may reach a data store and caps how many
// rows they can return
type Policy struct {
	// MaxRows is the largest LIMIT a statement is allowed to carry
	MaxRows int
}

// DefaultPolicy caps results at 1000 rows
var DefaultPolicy = Policy{MaxRows: 1000}

// Check parses query and accepts it only when it is exactly one read-only
// SELECT, UNION of selects, or parenthesized select without a locking
// clause. The parser speaks MySQL, so only MySQL statements are re-rendered
// with a LIMIT no larger than limit (clamped to MaxRows). Other drivers get
// the caller's text unchanged and rely on the connection to stop reading
// after limit rows.
func (p Policy) Check(driver Driver, query string, limit int) (string, error) {
	limit = p.RowCap(limit)
	if limit <= 0 {
		return "", fmt.Errorf("%w: limit must be positive", ErrRejected)
	}

	// A backslash ends a string literal in SQLite but escapes a quote in
	// MySQL, so the two would disagree on where statements end.
	if driver != DriverMySQL && strings.ContainsRune(query, '\\') {
		return "", fmt.Errorf("%w: backslashes are not allowed in %s queries", ErrRejected, driver)
	}

	stmt, err := sqlparser.Parse(query)
	if err != nil {
		return "", fmt.Errorf("%w: not a single valid statement", ErrRejected)
	}

	sel, ok := stmt.(sqlparser.SelectStatement)
	if !ok {
		return "", fmt.Errorf("%w: only SELECT queries are allowed", ErrRejected)
	}
	if err := checkLocks(sel); err != nil {
		return "", err
	}

	if driver != DriverMySQL {
		return strings.TrimSpace(query), nil
	}
	applyLimit(sel, limit)
	return sqlparser.String(sel), nil
}

// RowCap is the row limit Check enforces for limit
func (p Policy) RowCap(limit int) int {
	if p.MaxRows > 0 && (limit <= 0 || limit > p.MaxRows) {
		return p.MaxRows
	}
	return limit
}

func checkLocks(sel sqlparser.SelectStatement) error {
	switch s := sel.(type) {
	case *sqlparser.Select:
		if s.Lock != "" {
			return fmt.Errorf("%w: locking reads are not allowed", ErrRejected)
		}
	case *sqlparser.Union:
		if s.Lock != "" {
			return fmt.Errorf("%w: locking reads are not allowed", ErrRejected)
		}
		if err := checkLocks(s.Left); err != nil {
			return err
		}
		return checkLocks(s.Right)
	case *sqlparser.ParenSelect:
		return checkLocks(s.Select)
	default:
		return fmt.Errorf("%w: unsupported select form %T", ErrRejected, sel)
	}
	return nil
}

func applyLimit(sel sqlparser.SelectStatement, limit int) {
	switch s := sel.(type) {
	case *sqlparser.Select:
		s.Limit = capLimit(s.Limit, limit)
	case *sqlparser.Union:
		s.Limit = capLimit(s.Limit, limit)
	case *sqlparser.ParenSelect:
		applyLimit(s.Select, limit)
	}
}

// capLimit returns a LIMIT clause whose row count is at most limit. An
// existing offset is kept.
func capLimit(existing *sqlparser.Limit, limit int) *sqlparser.Limit {
	capped := sqlparser.NewIntVal([]byte(strconv.Itoa(limit)))
	if existing == nil {
		return &sqlparser.Limit{Rowcount: capped}
	}

	if val, ok := existing.Rowcount.(*sqlparser.SQLVal); ok && val.Type == sqlparser.IntVal {
		if n, err := strconv.Atoi(string(val.Val)); err == nil && n <= limit {
			return existing
		}
	}
	return &sqlparser.Limit{Offset: existing.Offset, Rowcount: capped}
}
