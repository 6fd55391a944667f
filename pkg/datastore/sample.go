package datastore

import (
	"context"
	"database/sql"
	"fmt"
)

var sampleSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		age INTEGER,
		country TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		price REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL,
		total REAL NOT NULL,
		status TEXT NOT NULL
	)`,
}

var sampleData = []string{
	`INSERT INTO users (name, email, age, country) VALUES
		('Alice Johnson', 'alice@example.com', 28, 'US'),
		('Bob Smith', 'bob@example.com', 34, 'UK'),
		('Chen Wei', 'chen@example.com', 41, 'CN'),
		('Diana Prince', 'diana@example.com', 25, 'CA')`,
	`INSERT INTO products (name, category, price) VALUES
		('Laptop', 'Electronics', 999.99),
		('Headphones', 'Electronics', 149.5),
		('Desk Chair', 'Furniture', 249),
		('Notebook', 'Stationery', 4.25)`,
	`INSERT INTO orders (user_id, product_id, quantity, total, status) VALUES
		(1, 1, 1, 999.99, 'shipped'),
		(2, 2, 2, 299, 'pending'),
		(3, 3, 1, 249, 'delivered'),
		(1, 4, 10, 42.5, 'delivered'),
		(4, 2, 1, 149.5, 'cancelled')`,
}

// InitSample creates the users, products and orders tables in the SQLite
// file at path and fills them when they are empty. It returns the number of
// users present afterwards.
func InitSample(ctx context.Context, path string) (int, error) {
	db, err := sql.Open(string(DriverSQLite), path)
	if err != nil {
		return 0, &ConnectError{Target: "sqlite://" + path, Err: err}
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &ConnectError{Target: "sqlite://" + path, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range sampleSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("create sample schema: %w", err)
		}
	}

	var users int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
		return 0, fmt.Errorf("count sample users: %w", err)
	}
	if users == 0 {
		for _, stmt := range sampleData {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return 0, fmt.Errorf("insert sample data: %w", err)
			}
		}
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&users); err != nil {
			return 0, fmt.Errorf("count sample users: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sample data: %w", err)
	}
	return users, nil
}
