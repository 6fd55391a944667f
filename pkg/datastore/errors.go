package datastore

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// SafeMessage turns a data-store error into text that can be shown to a
// client. Server addresses, credentials and driver messages stay out of it.
func SafeMessage(err error) string {
	if IsConnectError(err) {
		return "Error: could not connect to database"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("Error: query failed (MySQL error %d)", myErr.Number)
	}
	return "Error: query failed"
}
