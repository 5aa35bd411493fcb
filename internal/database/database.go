package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// OpenDB initializes the connection pool from the DB_DSN environment
// variable. The DSN must include parseTime=true so DATETIME columns scan
// into time.Time.
func OpenDB(log *zap.Logger) (*sql.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN environment variable is not set")
	}
	return OpenDBWithDSN(dsn, log)
}

// OpenDBWithDSN creates and configures a pool for any DSN string.
func OpenDBWithDSN(dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Error("database ping failed", zap.Error(err))
		return nil, err
	}

	log.Info("database connection pool established")
	return db, nil
}

// Migrate applies schema.sql statement by statement. Every statement is
// CREATE TABLE IF NOT EXISTS, so re-running on an existing database is a
// no-op.
func Migrate(db *sql.DB, schemaPath string, log *zap.Logger) error {
	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}

	log.Info("database schema applied", zap.String("path", schemaPath))
	return nil
}
