package database

import (
	"errors"
	"fmt"
	"strings"
	"tft-ladder/internal/domain"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// resultCode extracts the extended SQLite result code from either driver.
func resultCode(err error) (int, bool) {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		if mattnErr.ExtendedCode != 0 {
			return int(mattnErr.ExtendedCode), true
		}
		return int(mattnErr.Code), true
	}
	var moderncErr *sqlite.Error
	if errors.As(err, &moderncErr) {
		return moderncErr.Code(), true
	}
	return 0, false
}

// Classify maps driver errors onto the storage error taxonomy. The original
// error stays in the chain for logging.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	code, ok := resultCode(err)
	if !ok {
		return err
	}

	if code == sqlitelib.SQLITE_CONSTRAINT {
		code = constraintFromMessage(err.Error())
	}

	switch code {
	case sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", domain.ErrReferential, err)
	case sqlitelib.SQLITE_CONSTRAINT_NOTNULL, sqlitelib.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	switch code & 0xff {
	case sqlitelib.SQLITE_BUSY, sqlitelib.SQLITE_LOCKED, sqlitelib.SQLITE_FULL,
		sqlitelib.SQLITE_IOERR, sqlitelib.SQLITE_CANTOPEN, sqlitelib.SQLITE_NOMEM,
		sqlitelib.SQLITE_PROTOCOL:
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

// constraintFromMessage recovers the extended code when a connection reports
// only the primary SQLITE_CONSTRAINT code.
func constraintFromMessage(msg string) int {
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return sqlitelib.SQLITE_CONSTRAINT_NOTNULL
	case strings.Contains(msg, "CHECK constraint failed"):
		return sqlitelib.SQLITE_CONSTRAINT_CHECK
	}
	return sqlitelib.SQLITE_CONSTRAINT
}

func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}
