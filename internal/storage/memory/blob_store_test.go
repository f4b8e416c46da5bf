package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "crawls/out.json", "application/json", bytes.NewReader([]byte("[]")))
	require.NoError(t, err)
	assert.Equal(t, "memory://crawls/out.json", uri)

	body, contentType, ok := store.Object("crawls/out.json")
	require.True(t, ok)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, "application/json", contentType)

	body[0] = 'X'
	again, _, _ := store.Object("crawls/out.json")
	assert.Equal(t, "[]", string(again), "returned slices are copies")
	assert.Equal(t, []string{"crawls/out.json"}, store.Paths())
}

func TestBlobStoreMissingObject(t *testing.T) {
	t.Parallel()

	_, _, ok := NewBlobStore().Object("nope")
	assert.False(t, ok)
}
