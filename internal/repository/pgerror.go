package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolationField classifies a Postgres unique-constraint violation and
// names the offending field. Constraint names come from the embedded schema;
// substring matching is the fallback for renamed constraints.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_username":
		return "username", true
	case "uq_users_email":
		return "email", true
	case "uq_refresh_tokens_jti":
		return "jti", true
	case "uq_refresh_tokens_token":
		return "token", true
	}

	switch {
	case strings.Contains(c, "username"):
		return "username", true
	case strings.Contains(c, "email"):
		return "email", true
	case strings.Contains(c, "jti"):
		return "jti", true
	case strings.Contains(c, "token"):
		return "token", true
	}

	return "", true
}
