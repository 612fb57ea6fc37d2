package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemamirror/internal/catalog"
)

func newCloner(t *testing.T) (*Cloner, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	client := catalog.NewClientWithDB(db, catalog.Config{})
	return New(client), mock
}

func showRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"created_on", "name"})
	for _, name := range names {
		rows.AddRow("2026-01-01", name)
	}
	return rows
}

func TestCloneSuccess(t *testing.T) {
	cloner, mock := newCloner(t)

	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC"))
	mock.ExpectExec(`CREATE OR REPLACE SCHEMA ORDERS_DB\.PUBLIC_MIRROR CLONE ORDERS_DB\.PUBLIC`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC_MIRROR' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC_MIRROR"))
	mock.ExpectQuery(`SHOW TABLES IN SCHEMA ORDERS_DB\.PUBLIC`).
		WillReturnRows(showRows("T1", "T2", "T3", "T4", "T5"))
	mock.ExpectQuery(`SHOW TABLES IN SCHEMA ORDERS_DB\.PUBLIC_MIRROR`).
		WillReturnRows(showRows("T1", "T2", "T3", "T4", "T5"))

	ok, message, summary := cloner.Clone(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")

	assert.True(t, ok)
	assert.Contains(t, message, "Successfully mirrored schema ORDERS_DB.PUBLIC to ORDERS_DB.PUBLIC_MIRROR")
	require.NotNil(t, summary)
	assert.Equal(t, &Summary{
		Database:     "ORDERS_DB",
		SourceSchema: "PUBLIC",
		CloneSchema:  "PUBLIC_MIRROR",
		SourceTables: 5,
		ClonedTables: 5,
		Status:       StatusSuccess,
	}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClonePartialSuccess(t *testing.T) {
	cloner, mock := newCloner(t)

	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC"))
	mock.ExpectExec("CREATE OR REPLACE SCHEMA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC_MIRROR' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC_MIRROR"))
	mock.ExpectQuery(`SHOW TABLES IN SCHEMA ORDERS_DB\.PUBLIC`).
		WillReturnRows(showRows("T1", "T2", "T3", "T4", "T5"))
	mock.ExpectQuery(`SHOW TABLES IN SCHEMA ORDERS_DB\.PUBLIC_MIRROR`).
		WillReturnRows(showRows("T1", "T2", "T3", "T4"))

	ok, _, summary := cloner.Clone(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")

	assert.True(t, ok)
	require.NotNil(t, summary)
	assert.Equal(t, StatusPartial, summary.Status)
	assert.Equal(t, 5, summary.SourceTables)
	assert.Equal(t, 4, summary.ClonedTables)
}

func TestCloneMissingSourceSchema(t *testing.T) {
	cloner, mock := newCloner(t)

	mock.ExpectQuery("SHOW SCHEMAS LIKE 'GHOST' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows())

	ok, message, summary := cloner.Clone(context.Background(), "ORDERS_DB", "GHOST", "GHOST_MIRROR")

	assert.False(t, ok)
	assert.Contains(t, message, "Source schema ORDERS_DB.GHOST doesn't exist")
	assert.Nil(t, summary)
	// No clone statement may be attempted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloneTargetNotCreated(t *testing.T) {
	cloner, mock := newCloner(t)

	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC"))
	mock.ExpectExec("CREATE OR REPLACE SCHEMA").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC_MIRROR' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows())

	ok, message, summary := cloner.Clone(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")

	assert.False(t, ok)
	assert.Equal(t, "Clone failed - target schema not created", message)
	assert.Nil(t, summary)
}

func TestCloneCommandFailure(t *testing.T) {
	cloner, mock := newCloner(t)

	mock.ExpectQuery("SHOW SCHEMAS LIKE 'PUBLIC' IN DATABASE ORDERS_DB").
		WillReturnRows(showRows("PUBLIC"))
	mock.ExpectExec("CREATE OR REPLACE SCHEMA").
		WillReturnError(errors.New("insufficient privileges"))

	ok, message, summary := cloner.Clone(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")

	assert.False(t, ok)
	assert.Contains(t, message, "Clone failed:")
	assert.Contains(t, message, "insufficient privileges")
	assert.Nil(t, summary)
}

func TestCloneRejectsInvalidTargetName(t *testing.T) {
	cloner, mock := newCloner(t)

	ok, message, summary := cloner.Clone(context.Background(), "ORDERS_DB", "PUBLIC", "X; DROP SCHEMA PUBLIC")

	assert.False(t, ok)
	assert.Contains(t, message, "invalid target schema name")
	assert.Nil(t, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}
