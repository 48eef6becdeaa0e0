package workload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgraph-io/rowstore/internal/mvcc"
)

func TestStore_PopulateThenLookup(t *testing.T) {
	s := NewStore(1)
	require.NoError(t, s.Populate(context.Background(), 50))
	require.Equal(t, uint64(50), s.Append.Rows())

	for i := uint64(1); i <= 50; i++ {
		value, found := s.Lookup(EncodeKey(i))
		require.True(t, found, "key %d must be found after populate", i)
		require.NotEmpty(t, value)
	}

	_, found := s.Lookup(EncodeKey(51))
	require.False(t, found)
}

func TestStore_AppendAfterPopulateGrowsPastExistingRows(t *testing.T) {
	s := NewStore(10)
	require.NoError(t, s.Populate(context.Background(), 50))

	ordinal := s.Append.Reserve()
	require.Equal(t, uint64(51), ordinal, "reservation after populate must extend past the populated rows, not collide with them")

	txn := s.Oracle.Begin(mvcc.ReadCommitted)
	require.NoError(t, s.Insert(txn, EncodeKey(ordinal), []byte("new"), 5))
	txn.Commit()
	s.Append.Resolve(ordinal)

	value, found := s.Lookup(EncodeKey(1))
	require.True(t, found)
	require.NotEqual(t, "new", string(value), "populated row 1 must be untouched by the append")

	value, found = s.Lookup(EncodeKey(51))
	require.True(t, found)
	require.Equal(t, "new", string(value))
}

func TestStore_InsertThenRemoveIsInvisible(t *testing.T) {
	s := NewStore(2)
	key := EncodeKey(1)

	txn := s.Oracle.Begin(mvcc.ReadCommitted)
	require.NoError(t, s.Insert(txn, key, []byte("v1"), 5))
	txn.Commit()

	value, found := s.Lookup(key)
	require.True(t, found)
	require.Equal(t, "v1", string(value))

	txn2 := s.Oracle.Begin(mvcc.ReadCommitted)
	require.NoError(t, s.Remove(txn2, key, 5))
	txn2.Commit()

	_, found = s.Lookup(key)
	require.False(t, found, "removed key must read back as absent")
}

func TestStore_UpdateOverwritesPriorVersion(t *testing.T) {
	s := NewStore(3)
	key := EncodeKey(1)

	txn := s.Oracle.Begin(mvcc.ReadCommitted)
	require.NoError(t, s.Insert(txn, key, []byte("first"), 5))
	txn.Commit()

	txn2 := s.Oracle.Begin(mvcc.ReadCommitted)
	require.NoError(t, s.Insert(txn2, key, []byte("second"), 5))
	txn2.Commit()

	value, found := s.Lookup(key)
	require.True(t, found)
	require.Equal(t, "second", string(value))
}

func TestStore_ConcurrentInsertsConverge(t *testing.T) {
	s := NewStore(4)
	const n = 64
	done := make(chan error, n)
	for i := uint64(1); i <= n; i++ {
		i := i
		go func() {
			txn := s.Oracle.Begin(mvcc.ReadCommitted)
			err := s.Insert(txn, EncodeKey(i), []byte("v"), 50)
			if err == nil {
				txn.Commit()
			} else {
				txn.Rollback()
			}
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}
	for i := uint64(1); i <= n; i++ {
		_, found := s.Lookup(EncodeKey(i))
		require.True(t, found)
	}
}
