package db

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/teranos/hmis/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// Driver codes for unique-key violations.
const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	mysqlDuplicateUnique = 1169
)

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// This handles both:
// - Wrapped ErrDatabaseClosed errors from this package
// - Raw sql driver errors that contain "database is closed" in their message
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}

	return strings.Contains(err.Error(), "database is closed")
}

// IsUniqueViolation reports whether err is a unique or primary key violation
// raised by any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry || mysqlErr.Number == mysqlDuplicateUnique
	}

	return false
}

// MarkExec tags a statement error: unique violations become
// errors.ErrConstraintViolation, everything else errors.ErrQuery.
func MarkExec(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return errors.Markf(err, errors.ErrConstraintViolation, format, args...)
	}
	return errors.Markf(err, errors.ErrQuery, format, args...)
}
