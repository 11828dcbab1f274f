// This package has the database connection layer for apply mode. Never
// deal with dump parsing or DDL rewriting here.
package database

import (
	"database/sql"
	"fmt"
	"strings"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
	SslMode  string
	SslCa    string

	EnableCleartextPlugin bool
}

// Abstraction over the target server connection.
type Database interface {
	DB() *sql.DB
	Close() error
}

// RunStatements executes a sieved dump's statements in order inside a
// single transaction, rolling back on the first failure.
func RunStatements(d Database, statements []string) error {
	transaction, err := d.DB().Begin()
	if err != nil {
		return err
	}
	for _, statement := range statements {
		if _, err := transaction.Exec(statement); err != nil {
			transaction.Rollback()
			return fmt.Errorf("executing %q: %w", summarize(statement), err)
		}
	}
	return transaction.Commit()
}

// summarize shortens a statement for error messages; INSERT lines from a
// dump can be megabytes long.
func summarize(statement string) string {
	statement = strings.TrimSpace(statement)
	if len(statement) > 80 {
		return statement[:80] + "..."
	}
	return statement
}
