package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/sqlutil"
	"github.com/dbsmedya/straycheck/internal/types"
)

// SQLSource reads layers stored as tables in a relational database or
// GeoPackage file.
type SQLSource struct {
	db      *sql.DB
	dialect sqlutil.Dialect
	check   config.CheckConfig
	log     *logger.Logger
}

// NewSQLSource creates a SQL source for one check.
func NewSQLSource(db *sql.DB, dialect sqlutil.Dialect, check config.CheckConfig, log *logger.Logger) *SQLSource {
	return &SQLSource{
		db:      db,
		dialect: dialect,
		check:   check,
		log:     log,
	}
}

// buildSelect returns SELECT cols FROM table WHERE where [ORDER BY orderBy].
func (s *SQLSource) buildSelect(table string, cols []string, where, orderBy string) (string, error) {
	quotedTable, err := s.dialect.QuoteIdentifierSafe(table)
	if err != nil {
		return "", err
	}

	quotedCols := make([]string, len(cols))
	for i, col := range cols {
		q, err := s.dialect.QuoteIdentifierSafe(col)
		if err != nil {
			return "", err
		}
		quotedCols[i] = q
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(quotedCols, ", "), quotedTable, whereOrAll(where))
	if orderBy != "" {
		q, err := s.dialect.QuoteIdentifierSafe(orderBy)
		if err != nil {
			return "", err
		}
		query += " ORDER BY " + q
	}
	return query, nil
}

// FetchParentIDs returns the parent table's identifiers. NULL identifiers are skipped.
func (s *SQLSource) FetchParentIDs(ctx context.Context) (types.ParentIDSet, error) {
	p := s.check.Parent
	query, err := s.buildSelect(p.Layer, []string{p.IDField}, p.Where, p.IDField)
	if err != nil {
		return nil, fmt.Errorf("build parent query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("fetch parent ids", err)
	}
	defer rows.Close()

	ids := types.NewParentIDSet()
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, unavailable("fetch parent ids", err)
		}
		if id := types.ToString(v); id != "" {
			ids.Add(id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("fetch parent ids", err)
	}

	s.log.WithLayer(p.Layer).Debugw("Fetched parent ids", "count", ids.Len())
	return ids, nil
}

// FetchChildren returns the child table's records in object ID order.
func (s *SQLSource) FetchChildren(ctx context.Context) ([]types.ChildRecord, error) {
	c := s.check.Child
	query, err := s.buildSelect(c.Layer, c.Fields(), c.Where, c.ObjectIDField)
	if err != nil {
		return nil, fmt.Errorf("build child query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("fetch children", err)
	}
	defer rows.Close()

	var children []types.ChildRecord
	for rows.Next() {
		var objectID, date, parent, creator, company interface{}
		if err := rows.Scan(&objectID, &date, &parent, &creator, &company); err != nil {
			return nil, unavailable("fetch children", err)
		}
		rec, err := childFromValues(c, objectID, date, parent, creator, company)
		if err != nil {
			return nil, unavailable("fetch children", err)
		}
		children = append(children, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("fetch children", err)
	}

	s.log.WithLayer(c.Layer).Debugw("Fetched children", "count", len(children))
	return children, nil
}

// Ping checks the connection and runs an empty select against both tables.
func (s *SQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}

	probes := []struct {
		table string
		cols  []string
	}{
		{s.check.Parent.Layer, []string{s.check.Parent.IDField}},
		{s.check.Child.Layer, s.check.Child.Fields()},
	}
	for _, p := range probes {
		query, err := s.buildSelect(p.table, p.cols, "1=0", "")
		if err != nil {
			return err
		}
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return unavailable("probe "+p.table, err)
		}
		rows.Close()
	}
	return nil
}
