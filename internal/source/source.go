// Package source reads parent identifiers and child records from the
// remote record store.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/database"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/types"
)

// ErrUnavailable marks failures to read from the record store: network
// errors, service errors, timeouts and undecodable responses.
var ErrUnavailable = errors.New("data source unavailable")

// RecordSource reads one check's parent and child layers.
type RecordSource interface {
	// FetchParentIDs returns every parent identifier in the parent layer.
	FetchParentIDs(ctx context.Context) (types.ParentIDSet, error)
	// FetchChildren returns every child record in source order.
	FetchChildren(ctx context.Context) ([]types.ChildRecord, error)
	// Ping verifies both layers are reachable and expose the configured fields.
	Ping(ctx context.Context) error
}

// New binds a record source to a check. db is required for the sql source
// type and ignored otherwise.
func New(cfg *config.SourceConfig, check config.CheckConfig, db *database.Manager, log *logger.Logger) (RecordSource, error) {
	switch cfg.Type {
	case config.SourceFeatureService, "":
		return NewFeatureService(&http.Client{}, cfg.FeatureService, check, log), nil
	case config.SourceSQL:
		if db == nil || db.DB == nil {
			return nil, fmt.Errorf("sql source requires a connected database")
		}
		return NewSQLSource(db.DB, db.Dialect, check, log), nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Type)
	}
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func whereOrAll(where string) string {
	if where == "" {
		return "1=1"
	}
	return where
}
