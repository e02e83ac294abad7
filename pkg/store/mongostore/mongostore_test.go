package mongostore_test

import (
	"context"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/mongostore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestReceive_UpsertsDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("upsert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		s := mongostore.New(mt.Coll)
		res, err := s.Receive(context.Background(), "mutable://open/users/alice", bson.M{"name": "Alice"})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
	})
}

func TestDelete_Root(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("cannot delete root", func(mt *mtest.T) {
		s := mongostore.New(mt.Coll)
		res, err := s.Delete(context.Background(), "mutable://open")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "cannot-delete-root", res.Error)
	})
}

func TestReadMulti_OverCap(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("over cap", func(mt *mtest.T) {
		s := mongostore.New(mt.Coll)
		uris := make([]string, store.MaxReadMultiURIs+1)
		for i := range uris {
			uris[i] = "mutable://open/x"
		}
		res, err := s.ReadMulti(context.Background(), uris)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 0, res.Summary.Succeeded)
	})
}
