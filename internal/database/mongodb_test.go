package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tourcraft/tourcraft/internal/entity"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("one createIndexes per collection", func(mt *mtest.T) {
		reg, err := entity.NewRegistry(
			entity.Schema{Type: "lieu", Collection: entity.Lieux},
			entity.Schema{Type: "date", Collection: entity.Dates},
		)
		require.NoError(t, err)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		err = EnsureIndexes(context.Background(), mt.DB, reg, map[string][]string{
			entity.Dates: {"lieuId"},
		})
		require.NoError(mt, err)
	})

	mt.Run("command error is reported", func(mt *mtest.T) {
		reg, err := entity.NewRegistry(entity.Schema{Type: "lieu", Collection: entity.Lieux})
		require.NoError(t, err)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		err = EnsureIndexes(context.Background(), mt.DB, reg, nil)
		require.Error(mt, err)
		require.Contains(mt, err.Error(), "indexes on lieux")
	})
}
