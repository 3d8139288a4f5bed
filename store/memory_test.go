package store_test

import (
	"context"
	"testing"

	"github.com/shieldwallet/core/store"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPutDelete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, m.Put(ctx, "wallet:a", []byte("1")))
	require.NoError(t, m.Put(ctx, "wallet:b", []byte("2")))
	require.NoError(t, m.Put(ctx, "other:c", []byte("3")))

	v, err := m.Get(ctx, "wallet:a")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	entries, err := m.ScanPrefix(ctx, "wallet:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "wallet:a", entries[0].Key)
	require.Equal(t, "wallet:b", entries[1].Key)

	require.NoError(t, m.Delete(ctx, "wallet:a"))
	_, err = m.Get(ctx, "wallet:a")
	require.ErrorIs(t, err, store.ErrNotFound)
}
