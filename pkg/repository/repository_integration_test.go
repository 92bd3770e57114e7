package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/store/mongodb"
	"github.com/nimburion/crudkit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoRepository_Integration(t *testing.T) {
	url := testutil.StartMongo(t)
	ctx := context.Background()

	adapter, err := mongodb.NewAdapter(mongodb.Config{
		URL:            url,
		Database:       "crudkit_repository_test",
		ConnectTimeout: 30 * time.Second,
	}, testutil.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	repo := NewMongoRepository[book](adapter, booksCollection)

	created, err := repo.Create(ctx, &book{Title: "Dune", Pages: 412})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.False(t, created.ID.IsZero())
	id := created.ID.Hex()

	for _, title := range []string{"Emma", "Ulysses", "Beloved"} {
		_, err := repo.Create(ctx, &book{Title: title, Pages: len(title) * 100})
		require.NoError(t, err)
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byID, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Dune", byID.Title)

	one, err := repo.FindOne(ctx, model.Filter{"title": "Emma"})
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, 400, one.Pages)

	page, err := repo.Find(ctx, model.Filter{}, &model.FindModelOptions{
		Limit: 2,
		Skip:  1,
		Sort:  model.Sort{{Field: "title", Direction: 1}},
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Dune", page[0].Title)
	assert.Equal(t, "Emma", page[1].Title)

	updated, err := repo.Update(ctx, id, &book{Title: "Dune Messiah", Pages: 256})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Dune Messiah", updated.Title)

	upsertID := primitive.NewObjectID()
	upserted, err := repo.Update(ctx, upsertID.Hex(), &book{Title: "Middlemarch"})
	require.NoError(t, err)
	assert.Equal(t, upsertID, upserted.ID)

	ack, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &model.DeleteResult{OK: 1, N: 1}, ack)

	ack, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ack.N)

	missing, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	none, err := repo.Find(ctx, model.Filter{"title": "Nope"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
