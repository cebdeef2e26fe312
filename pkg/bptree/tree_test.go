package bptree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTree(t *testing.T) *Tree {
	t.Helper()
	dir := t.TempDir()
	tr, err := Open(filepath.Join(dir, "idx.bin"), true)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func kv(i int) (Key, Value) {
	return NewKey(fmt.Sprintf("key-%05d", i)), NewValue([]byte(fmt.Sprintf("val-%05d", i)))
}

func TestTree_InsertAndLookup_ForcesMultipleSplits(t *testing.T) {
	tr := openTree(t)

	const n = 500
	for i := 0; i < n; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}
	require.NoError(t, tr.CheckInvariants())
	require.Greater(t, tr.Info().Height, uint64(1), "500 keys at order 20 should force at least one split")

	for i := 0; i < n; i++ {
		k, want := kv(i)
		got, err := tr.Lookup(k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestTree_Insert_DuplicateRejected(t *testing.T) {
	tr := openTree(t)
	k, v := kv(1)
	require.NoError(t, tr.Insert(k, v))
	require.ErrorIs(t, tr.Insert(k, v), ErrDuplicateKey)
}

func TestTree_Lookup_Missing(t *testing.T) {
	tr := openTree(t)
	_, err := tr.Lookup(NewKey("nope"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTree_Update(t *testing.T) {
	tr := openTree(t)
	k, v := kv(1)
	require.NoError(t, tr.Insert(k, v))

	updated := NewValue([]byte("replacement"))
	require.NoError(t, tr.Update(k, updated))

	got, err := tr.Lookup(k)
	require.NoError(t, err)
	require.Equal(t, updated, got)
}

func TestTree_Update_MissingKey(t *testing.T) {
	tr := openTree(t)
	require.ErrorIs(t, tr.Update(NewKey("absent"), Value{}), ErrNotFound)
}

func TestTree_Update_NoCandidateSlotVsWrongKeyAtSlot(t *testing.T) {
	tr := openTree(t)
	// "key-00010" lands exactly where "key-00011" would be in descent,
	// but they aren't equal: ErrKeyNotEqual, not ErrNotFound.
	k, v := kv(11)
	require.NoError(t, tr.Insert(k, v))
	wrong := NewKey("key-00010")
	require.ErrorIs(t, tr.Update(wrong, Value{}), ErrKeyNotEqual)

	// A query key greater than everything in the leaf has no candidate
	// slot at all.
	require.ErrorIs(t, tr.Update(NewKey("key-99999"), Value{}), ErrNotFound)
}

func TestTree_Range_ResumesAcrossOutBoundary(t *testing.T) {
	tr := openTree(t)
	const n = 200
	for i := 0; i < n; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}

	lo := NewKey("key-00000")
	hi := NewKey("key-99999")
	out := make([]Entry, 7)

	var collected []Entry
	for {
		count, more, err := tr.Range(&lo, hi, out)
		require.NoError(t, err)
		collected = append(collected, out[:count]...)
		if !more {
			break
		}
	}

	require.Len(t, collected, n)
	for i, e := range collected {
		wantK, wantV := kv(i)
		require.Equal(t, wantK, e.Key, "entry %d key", i)
		require.Equal(t, wantV, e.Value, "entry %d value", i)
	}
}

func TestTree_Range_BadRange(t *testing.T) {
	tr := openTree(t)
	lo := NewKey("z")
	hi := NewKey("a")
	_, _, err := tr.Range(&lo, hi, make([]Entry, 4))
	require.ErrorIs(t, err, ErrBadRange)
}

func TestTree_Range_BoundedSubset(t *testing.T) {
	tr := openTree(t)
	for i := 0; i < 50; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}

	lo := NewKey("key-00010")
	hi := NewKey("key-00019")
	out := make([]Entry, 100)
	n, more, err := tr.Range(&lo, hi, out)
	require.NoError(t, err)
	require.False(t, more)
	require.Len(t, out[:n], 10)
	require.Equal(t, NewKey("key-00010"), out[0].Key)
	require.Equal(t, NewKey("key-00019"), out[n-1].Key)
}

func TestTree_Remove_NotFound(t *testing.T) {
	tr := openTree(t)
	require.ErrorIs(t, tr.Remove(NewKey("nope")), ErrNotFound)
}

func TestTree_Remove_SingleKeyEmptiesLeaf(t *testing.T) {
	tr := openTree(t)
	k, v := kv(1)
	require.NoError(t, tr.Insert(k, v))
	require.NoError(t, tr.Remove(k))
	require.NoError(t, tr.CheckInvariants())
	_, err := tr.Lookup(k)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTree_Remove_DrainsWholeTreeInRandomOrder(t *testing.T) {
	tr := openTree(t)
	const n = 600

	for i := 0; i < n; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}
	require.NoError(t, tr.CheckInvariants())

	// A fixed interleaved order so the removal sequence isn't just the
	// reverse of insertion, exercising borrow-from-left, borrow-from-right,
	// and merges on both sides of the key range.
	order := make([]int, n)
	for i := range order {
		order[i] = (i*37 + 11) % n
	}

	for _, i := range order {
		k, _ := kv(i)
		require.NoError(t, tr.Remove(k), "remove %d", i)
		require.NoError(t, tr.CheckInvariants(), "invariants after removing %d", i)
	}

	for i := 0; i < n; i++ {
		k, _ := kv(i)
		_, err := tr.Lookup(k)
		require.ErrorIs(t, err, ErrNotFound, "key %d should be gone", i)
	}

	info := tr.Info()
	require.Equal(t, uint64(1), info.NodeCount)
	require.Equal(t, uint64(1), info.LeafCount)
	require.Equal(t, uint64(1), info.Height)
}

func TestTree_Remove_ThenReinsertStaysConsistent(t *testing.T) {
	tr := openTree(t)
	const n = 300
	for i := 0; i < n; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}
	for i := 0; i < n; i += 2 {
		k, _ := kv(i)
		require.NoError(t, tr.Remove(k))
	}
	require.NoError(t, tr.CheckInvariants())

	for i := 0; i < n; i += 2 {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}
	require.NoError(t, tr.CheckInvariants())

	for i := 0; i < n; i++ {
		k, want := kv(i)
		got, err := tr.Lookup(k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestTree_ReopenPersistsAcrossClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.bin")

	tr, err := Open(path, true)
	require.NoError(t, err)
	const n = 100
	for i := 0; i < n; i++ {
		k, v := kv(i)
		require.NoError(t, tr.Insert(k, v))
	}
	require.NoError(t, tr.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.CheckInvariants())
	for i := 0; i < n; i++ {
		k, want := kv(i)
		got, err := reopened.Lookup(k)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
