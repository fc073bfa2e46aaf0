package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/database/databasetest"
	"github.com/shubhamforall/petstore-api/models"
)

func TestIdempotencyReserveAndComplete(t *testing.T) {
	store := database.NewIdempotencyStore(databasetest.Open(t))
	ctx := context.Background()

	rec := &models.IdempotencyKey{UserID: "u1", Key: "k1", RequestHash: "h1", Method: "POST", Path: "/pets"}
	got, err := store.Reserve(ctx, rec)
	require.NoError(t, err)
	assert.False(t, got.Completed())

	again, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: "u1", Key: "k1", RequestHash: "h2"})
	require.NoError(t, err)
	assert.Equal(t, "h1", again.RequestHash, "existing record wins")

	require.NoError(t, store.Complete(ctx, "u1", "k1", 201, []byte(`{"ok":true}`)))
	done, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: "u1", Key: "k1", RequestHash: "h1"})
	require.NoError(t, err)
	assert.True(t, done.Completed())
	assert.Equal(t, 201, done.ResponseStatus)
	assert.Equal(t, `{"ok":true}`, string(done.ResponseBody))

	other, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: "u2", Key: "k1", RequestHash: "h9"})
	require.NoError(t, err)
	assert.Equal(t, "h9", other.RequestHash, "keys are per user")
}

func TestIdempotencyReleaseOnlyDropsPending(t *testing.T) {
	store := database.NewIdempotencyStore(databasetest.Open(t))
	ctx := context.Background()

	_, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: "u1", Key: "pending", RequestHash: "h1"})
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "u1", "pending"))

	fresh := &models.IdempotencyKey{UserID: "u1", Key: "pending", RequestHash: "h2"}
	got, err := store.Reserve(ctx, fresh)
	require.NoError(t, err)
	assert.Same(t, fresh, got, "released key can be reserved again")

	_, err = store.Reserve(ctx, &models.IdempotencyKey{UserID: "u1", Key: "done", RequestHash: "h3"})
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "u1", "done", 200, []byte(`{}`)))
	require.NoError(t, store.Release(ctx, "u1", "done"))

	kept, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: "u1", Key: "done", RequestHash: "other"})
	require.NoError(t, err)
	assert.True(t, kept.Completed())
}
