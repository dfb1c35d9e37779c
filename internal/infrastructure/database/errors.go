package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saradorri/cardgame/internal/domain"
	"github.com/saradorri/cardgame/internal/infrastructure/lock"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Postgres SQLSTATE codes for integrity violations
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// TranslateError turns driver constraint failures into *domain.IntegrityError.
// Errors that are already classified pass through untouched.
func TranslateError(err error) error {
	if err == nil || domain.IsDomainError(err) || errors.Is(err, lock.ErrTimeout) {
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		if kind, ok := sqliteConstraintKind(sqliteErr.Code(), sqliteErr.Error()); ok {
			return &domain.IntegrityError{Kind: kind, Constraint: sqliteConstraintName(sqliteErr.Error()), Err: err}
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		var kind domain.ConstraintKind
		switch pgErr.Code {
		case pgUniqueViolation:
			kind = domain.ConstraintUnique
		case pgForeignKeyViolation:
			kind = domain.ConstraintForeignKey
		case pgNotNullViolation:
			kind = domain.ConstraintNotNull
		default:
			if !strings.HasPrefix(pgErr.Code, "23") {
				return err
			}
			kind = domain.ConstraintOther
		}
		name := pgErr.ConstraintName
		if name == "" && pgErr.ColumnName != "" {
			name = pgErr.TableName + "." + pgErr.ColumnName
		}
		return &domain.IntegrityError{Kind: kind, Constraint: name, Err: err}
	}

	return err
}

func sqliteConstraintKind(code int, message string) (domain.ConstraintKind, bool) {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return domain.ConstraintUnique, true
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return domain.ConstraintForeignKey, true
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return domain.ConstraintNotNull, true
	case sqlite3.SQLITE_CONSTRAINT:
		message = strings.ToLower(message)
		switch {
		case strings.Contains(message, "unique constraint failed"):
			return domain.ConstraintUnique, true
		case strings.Contains(message, "foreign key constraint failed"):
			return domain.ConstraintForeignKey, true
		case strings.Contains(message, "not null constraint failed"):
			return domain.ConstraintNotNull, true
		}
		return domain.ConstraintOther, true
	}
	if code&0xff == sqlite3.SQLITE_CONSTRAINT {
		return domain.ConstraintOther, true
	}
	return "", false
}

// sqliteConstraintName extracts "users.username" from
// "constraint failed: UNIQUE constraint failed: users.username (2067)"
func sqliteConstraintName(message string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(message, marker)
	if i < 0 {
		return ""
	}
	name := message[i+len(marker):]
	if j := strings.Index(name, " ("); j >= 0 {
		name = name[:j]
	}
	name = strings.TrimSpace(name)
	if strings.ContainsAny(name, " ") {
		return ""
	}
	return name
}
