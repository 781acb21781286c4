package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/blob"
)

func TestImageStore_PutGetDelete(t *testing.T) {
	store := newTestDB(t).Images()
	ctx := context.Background()

	b := &blob.Blob{
		Filename:    "me.png",
		ContentType: "image/png",
		UploadedBy:  "user-1",
		Category:    blob.CategoryProfile,
		Data:        []byte{0x89, 'P', 'N', 'G'},
	}
	require.NoError(t, store.Put(ctx, b))
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, int64(4), b.Size)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Data, got.Data)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, "user-1", got.UploadedBy)
	assert.Equal(t, blob.CategoryProfile, got.Category)

	require.NoError(t, store.Delete(ctx, b.ID))

	_, err = store.Get(ctx, b.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, b.ID), apperror.ErrNotFound)
}
