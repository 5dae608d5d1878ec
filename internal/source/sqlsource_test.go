package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/database"
	"github.com/dbsmedya/straycheck/internal/logger"
	"github.com/dbsmedya/straycheck/internal/sqlutil"
)

func sqlCheck() config.CheckConfig {
	return config.CheckConfig{
		Parent: config.ParentLayerConfig{Layer: "sde.nest_points"},
		Child:  config.ChildLayerConfig{Layer: "sde.nest_observations", Where: "OBS_DATE IS NOT NULL"},
	}.WithDefaults()
}

func newMockSource(t *testing.T, dialect sqlutil.Dialect) (*SQLSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLSource(db, dialect, sqlCheck(), logger.NewDefault()), mock
}

func TestSQLSource_BuildSelect(t *testing.T) {
	src, _ := newMockSource(t, sqlutil.Postgres)

	query, err := src.buildSelect("sde.nest_points", []string{"GlobalID"}, "", "GlobalID")
	require.NoError(t, err)
	assert.Equal(t, `SELECT "GlobalID" FROM "sde"."nest_points" WHERE 1=1 ORDER BY "GlobalID"`, query)

	_, err = src.buildSelect("nest_points; DROP TABLE x", []string{"GlobalID"}, "", "")
	assert.Error(t, err)

	_, err = src.buildSelect("nest_points", []string{"Global ID"}, "", "")
	assert.Error(t, err)
}

func TestSQLSource_FetchParentIDs(t *testing.T) {
	src, mock := newMockSource(t, sqlutil.MySQL)

	rows := sqlmock.NewRows([]string{"GlobalID"}).
		AddRow("G1").
		AddRow([]byte("G2")).
		AddRow(nil)
	mock.ExpectQuery("SELECT `GlobalID` FROM `sde`.`nest_points` WHERE 1=1 ORDER BY `GlobalID`").
		WillReturnRows(rows)

	ids, err := src.FetchParentIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ids.Len())
	assert.True(t, ids.Has("G1"))
	assert.True(t, ids.Has("G2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_FetchChildren(t *testing.T) {
	src, mock := newMockSource(t, sqlutil.MySQL)

	obs := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"OBJECTID", "OBS_DATE", "RelativeGlobalID", "BIO_NM", "BIO_CO"}).
		AddRow(int64(1), obs, "G1", "Ann", "Acme").
		AddRow(int64(2), nil, nil, []byte("Bob"), nil).
		AddRow(int64(3), int64(1720094400000), "G3", "Cy", "Birdco")
	mock.ExpectQuery("SELECT `OBJECTID`, `OBS_DATE`, `RelativeGlobalID`, `BIO_NM`, `BIO_CO` FROM `sde`.`nest_observations` WHERE OBS_DATE IS NOT NULL ORDER BY `OBJECTID`").
		WillReturnRows(rows)

	children, err := src.FetchChildren(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 3)

	assert.Equal(t, int64(1), children[0].ObjectID)
	assert.Equal(t, obs, *children[0].ObservationDate)
	assert.Equal(t, "G1", children[0].ParentReference)

	assert.Nil(t, children[1].ObservationDate)
	assert.Empty(t, children[1].ParentReference)
	assert.Equal(t, "Bob", children[1].CreatorName)

	assert.Equal(t, time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC), *children[2].ObservationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_QueryError(t *testing.T) {
	src, mock := newMockSource(t, sqlutil.MySQL)

	mock.ExpectQuery("SELECT `GlobalID` FROM `sde`.`nest_points` WHERE 1=1 ORDER BY `GlobalID`").
		WillReturnError(errors.New("connection refused"))

	_, err := src.FetchParentIDs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSQLSource_RowError(t *testing.T) {
	src, mock := newMockSource(t, sqlutil.MySQL)

	rows := sqlmock.NewRows([]string{"OBJECTID", "OBS_DATE", "RelativeGlobalID", "BIO_NM", "BIO_CO"}).
		AddRow(int64(1), nil, "G1", "Ann", "Acme").
		RowError(0, errors.New("lost connection"))
	mock.ExpectQuery("SELECT `OBJECTID`, `OBS_DATE`, `RelativeGlobalID`, `BIO_NM`, `BIO_CO` FROM `sde`.`nest_observations` WHERE OBS_DATE IS NOT NULL ORDER BY `OBJECTID`").
		WillReturnRows(rows)

	_, err := src.FetchChildren(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSQLSource_BadObjectID(t *testing.T) {
	src, mock := newMockSource(t, sqlutil.MySQL)

	rows := sqlmock.NewRows([]string{"OBJECTID", "OBS_DATE", "RelativeGlobalID", "BIO_NM", "BIO_CO"}).
		AddRow(nil, nil, "G1", "Ann", "Acme")
	mock.ExpectQuery("SELECT `OBJECTID`, `OBS_DATE`, `RelativeGlobalID`, `BIO_NM`, `BIO_CO` FROM `sde`.`nest_observations` WHERE OBS_DATE IS NOT NULL ORDER BY `OBJECTID`").
		WillReturnRows(rows)

	_, err := src.FetchChildren(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "OBJECTID")
}

func TestSQLSource_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	defer db.Close()

	src := NewSQLSource(db, sqlutil.Postgres, sqlCheck(), logger.NewDefault())

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT "GlobalID" FROM "sde"."nest_points" WHERE 1=0`).
		WillReturnRows(sqlmock.NewRows([]string{"GlobalID"}))
	mock.ExpectQuery(`SELECT "OBJECTID", "OBS_DATE", "RelativeGlobalID", "BIO_NM", "BIO_CO" FROM "sde"."nest_observations" WHERE 1=0`).
		WillReturnError(errors.New(`relation "sde.nest_observations" does not exist`))

	err = src.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "nest_observations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSQLSource_SQLiteEndToEnd reads a GeoPackage-style SQLite file through
// the database manager, the way a run with driver sqlite does.
func TestSQLSource_SQLiteEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birds.gpkg")

	rw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	stmts := []string{
		`CREATE TABLE nest_points (OBJECTID INTEGER PRIMARY KEY, GlobalID TEXT)`,
		`CREATE TABLE nest_observations (OBJECTID INTEGER PRIMARY KEY, OBS_DATE TEXT,
			RelativeGlobalID TEXT, BIO_NM TEXT, BIO_CO TEXT)`,
		`INSERT INTO nest_points (GlobalID) VALUES ('{A1}'), ('{B2}')`,
		`INSERT INTO nest_observations VALUES
			(1, '2024-07-04 12:00:00', '{A1}', 'Ann', 'Acme'),
			(2, '2024-01-04 12:00:00', '{ZZ}', 'Bob', 'Birdco'),
			(3, NULL, '{B2}', 'Cy', NULL)`,
	}
	for _, stmt := range stmts {
		_, err := rw.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, rw.Close())

	cfg := config.DefaultConfig()
	cfg.Source.Type = config.SourceSQL
	cfg.Source.Database = config.DatabaseConfig{Driver: "sqlite", Path: path}

	mgr := database.NewManager(&cfg.Source.Database)
	require.NoError(t, mgr.Connect(context.Background()))
	defer mgr.Close()

	check := config.CheckConfig{
		Parent: config.ParentLayerConfig{Layer: "nest_points"},
		Child:  config.ChildLayerConfig{Layer: "nest_observations"},
	}.WithDefaults()

	src, err := New(&cfg.Source, check, mgr, logger.NewDefault())
	require.NoError(t, err)
	require.NoError(t, src.Ping(context.Background()))

	ids, err := src.FetchParentIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ids.Len())
	assert.True(t, ids.Has("{A1}"))

	children, err := src.FetchChildren(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "{ZZ}", children[1].ParentReference)
	assert.Equal(t, time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC), *children[1].ObservationDate)
	assert.Nil(t, children[2].ObservationDate)
	assert.Empty(t, children[2].BioCompany)
}
