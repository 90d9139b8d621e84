package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open creates and configures a MySQL connection pool from the given DSN.
// The DSN comes from the config package; this function never touches the
// environment itself.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Ping to verify the connection before the server starts taking traffic.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
