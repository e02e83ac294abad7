package sqlstore_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive_UpsertsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO fabric_records").
		WithArgs("mutable://open/users/alice", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := sqlstore.New(db)
	ctx := context.Background()

	res, err := s.Receive(ctx, "mutable://open/users/alice", map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRead_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT data, ts FROM fabric_records").
		WithArgs("mutable://open/missing").
		WillReturnRows(sqlmock.NewRows([]string{"data", "ts"}))

	s := sqlstore.New(db)
	res, err := s.Read(context.Background(), "mutable://open/missing")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "not-found", res.Error)
}

func TestReadMulti_OverCap(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := sqlstore.New(db)
	uris := make([]string, store.MaxReadMultiURIs+1)
	for i := range uris {
		uris[i] = "mutable://open/x"
	}

	res, err := s.ReadMulti(context.Background(), uris)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, store.MaxReadMultiURIs+1, res.Summary.Total)
	assert.Equal(t, 0, res.Summary.Succeeded)
}

func TestDelete_Root(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := sqlstore.New(db)
	res, err := s.Delete(context.Background(), "mutable://open")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "cannot-delete-root", res.Error)
}
