package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tolelom/headstats/storage"
)

func TestMemLevelDB(t *testing.T) {
	db, err := storage.NewMemLevelDB()
	require.NoError(t, err)

	_, err = db.Get([]byte("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, db.Set([]byte("rec:a"), []byte("1")))
	require.NoError(t, db.Set([]byte("rec:b"), []byte("2")))
	require.NoError(t, db.Set([]byte("other"), []byte("3")))

	v, err := db.Get([]byte("rec:a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	it := db.NewIterator([]byte("rec:"))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"rec:a", "rec:b"}, keys)

	require.NoError(t, db.Close())
	_, err = db.Get([]byte("rec:a"))
	assert.Error(t, err)
}
