// Package sqlutil provides SQL identifier helpers for the supported drivers.
package sqlutil

import (
	"regexp"
	"strings"
)

// Dialect identifies how a driver quotes identifiers.
type Dialect string

const (
	// MySQL quotes with backticks.
	MySQL Dialect = "mysql"
	// Postgres quotes with double quotes (pgx driver).
	Postgres Dialect = "pgx"
	// SQLite quotes with double quotes.
	SQLite Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) Dialect {
	switch driver {
	case "pgx", "postgres":
		return Postgres
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return MySQL
	}
}

// QuoteIdentifier quotes a single identifier (table name, column name) for the
// dialect, doubling any embedded quote character. MySQL wraps names in
// backticks; Postgres and SQLite wrap them in double quotes.
func (d Dialect) QuoteIdentifier(name string) string {
	q := `"`
	if d == MySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteQualified quotes a possibly schema-qualified name such as "sde.nest_points",
// quoting each dot-separated part.
func (d Dialect) QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// validIdentifierRegex restricts identifiers to alphanumeric and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name only contains alphanumeric characters and underscores.
// This is a defense-in-depth measure against SQL injection.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// IsValidQualifiedIdentifier checks every dot-separated part with IsValidIdentifier.
func IsValidQualifiedIdentifier(name string) bool {
	for _, p := range strings.Split(name, ".") {
		if !IsValidIdentifier(p) {
			return false
		}
	}
	return true
}

// QuoteIdentifierSafe validates and quotes a possibly schema-qualified identifier.
// Returns an error if any part contains invalid characters.
// Use this for identifiers taken from configuration.
func (d Dialect) QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidQualifiedIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return d.QuoteQualified(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
