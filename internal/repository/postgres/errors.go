package postgres

import (
	"database/sql"
	"errors"

	"github.com/NinePK/back-car/internal/repository"
	"github.com/lib/pq"
)

const (
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError translates driver errors into repository errors. Unknown errors
// pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeExclusionViolation:
			return repository.ErrOverlap
		case codeForeignKeyViolation:
			return repository.ErrReferenced
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return repository.ErrStaleWrite
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
