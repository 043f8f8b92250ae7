package simvault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/internal/fs"
	"github.com/simvault/simvault/ledger"
)

func testPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "vectors.svx"), filepath.Join(dir, "metadata.json")
}

func TestVault(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAndRetrieve", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)

		ordinal, err := v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)
		assert.Equal(t, 0, ordinal)

		rec, err := v.Record(0)
		require.NoError(t, err)
		assert.Equal(t, "a.png", rec.Filename)
		assert.Equal(t, 1, v.Len())
	})

	t.Run("PersistAndReopen", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)

		_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)
		_, err = v.Insert(ctx, []float32{0, 1, 0, 0}, ledger.Record{Filename: "b.png"})
		require.NoError(t, err)

		reopened, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)
		assert.Equal(t, 2, reopened.Len())

		rec, err := reopened.Record(1)
		require.NoError(t, err)
		assert.Equal(t, "b.png", rec.Filename)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)

		_, err = v.Insert(ctx, []float32{1, 0}, ledger.Record{Filename: "a.png"})

		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 4, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
		assert.Equal(t, 0, v.Len())
	})

	t.Run("RecordOutOfRange", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)

		_, err = v.Record(3)

		var oor *ErrOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, 3, oor.Ordinal)
	})
}

func TestOpenHalfPairing(t *testing.T) {
	ctx := context.Background()

	t.Run("MetadataMissing", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)
		_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)

		require.NoError(t, os.Remove(metadataPath))

		_, err = Open(indexPath, metadataPath, 4)

		var cm *ErrCorruptMetadata
		assert.ErrorAs(t, err, &cm)
	})

	t.Run("IndexMissing", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)
		_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)

		require.NoError(t, os.Remove(indexPath))

		_, err = Open(indexPath, metadataPath, 4)

		var ci *ErrCorruptIndex
		assert.ErrorAs(t, err, &ci)
	})

	t.Run("GarbageIndexFile", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		require.NoError(t, os.WriteFile(indexPath, []byte("garbage garbage garbage garbage garbage"), 0o644))
		require.NoError(t, os.WriteFile(metadataPath, []byte("[]\n"), 0o644))

		_, err := Open(indexPath, metadataPath, 4)

		var ci *ErrCorruptIndex
		assert.ErrorAs(t, err, &ci)
	})

	t.Run("SizeMisalignment", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 4)
		require.NoError(t, err)
		_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)

		// Drop the ledger record while keeping the vector.
		require.NoError(t, os.WriteFile(metadataPath, []byte("[]\n"), 0o644))

		_, err = Open(indexPath, metadataPath, 4)

		var ic *ErrIndexCorruption
		require.ErrorAs(t, err, &ic)
		assert.Equal(t, 1, ic.StoreSize)
		assert.Equal(t, 0, ic.LedgerSize)
	})
}

func TestInsertRollbackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	indexPath, metadataPath := testPaths(t)

	faulty := fs.NewFaultyFS(nil)

	v, err := Open(indexPath, metadataPath, 4, WithFS(faulty))
	require.NoError(t, err)

	_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
	require.NoError(t, err)

	// Vector store write succeeds but the ledger rewrite fails; the insert
	// must not be observable afterwards.
	faulty.AddRule("metadata.json", fs.Fault{FailOnWrite: true})

	_, err = v.Insert(ctx, []float32{0, 1, 0, 0}, ledger.Record{Filename: "b.png"})
	require.Error(t, err)

	assert.Equal(t, 1, v.Len())
	assert.False(t, v.Contains("file:b.png"))

	res, err := v.Search(ctx, []float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "a.png", res.Matches[0].Record.Filename)
}

func TestInsertRollbackKeepsDiskPairAligned(t *testing.T) {
	ctx := context.Background()
	indexPath, metadataPath := testPaths(t)

	faulty := fs.NewFaultyFS(nil)

	v, err := Open(indexPath, metadataPath, 4, WithFS(faulty))
	require.NoError(t, err)

	_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
	require.NoError(t, err)

	// The snapshot persists before the ledger rewrite fails; the rollback
	// must also rewrite the on-disk snapshot or the durable pair is left
	// misaligned.
	faulty.AddRule("metadata.json", fs.Fault{FailOnWrite: true})

	_, err = v.Insert(ctx, []float32{0, 1, 0, 0}, ledger.Record{Filename: "b.png"})
	require.Error(t, err)

	// A fresh open against the same files must not refuse the vault.
	reopened, err := Open(indexPath, metadataPath, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	res, err := reopened.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "a.png", res.Matches[0].Record.Filename)

	_, err = reopened.Insert(ctx, []float32{0, 1, 0, 0}, ledger.Record{Filename: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
}

func TestInsertRollbackOnIndexWriteFailure(t *testing.T) {
	ctx := context.Background()
	indexPath, metadataPath := testPaths(t)

	faulty := fs.NewFaultyFS(nil)

	v, err := Open(indexPath, metadataPath, 4, WithFS(faulty))
	require.NoError(t, err)

	faulty.AddRule("vectors.svx", fs.Fault{FailOnSync: true})

	_, err = v.Insert(ctx, []float32{1, 0, 0, 0}, ledger.Record{Filename: "a.png"})
	require.Error(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestMigrateMetric(t *testing.T) {
	ctx := context.Background()

	t.Run("L2ToCosine", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 2)
		require.NoError(t, err)

		_, err = v.Insert(ctx, []float32{3, 4}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)

		require.NoError(t, v.MigrateMetric(ctx, index.MetricCosine))
		assert.Equal(t, index.MetricCosine, v.Metric())

		// The stored vector is now unit-norm; an identical direction
		// scores a perfect inner product.
		res, err := v.Search(ctx, []float32{6, 8}, 1)
		require.NoError(t, err)
		require.Len(t, res.Matches, 1)
		assert.InDelta(t, 1.0, res.Matches[0].Score, 1e-5)
	})

	t.Run("Idempotent", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 2)
		require.NoError(t, err)

		require.NoError(t, v.MigrateMetric(ctx, index.MetricCosine))
		require.NoError(t, v.MigrateMetric(ctx, index.MetricCosine))
		assert.Equal(t, index.MetricCosine, v.Metric())
	})

	t.Run("CosineToL2Refused", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 2, WithMetric(index.MetricCosine))
		require.NoError(t, err)

		assert.Error(t, v.MigrateMetric(ctx, index.MetricSquaredL2))
	})

	t.Run("MigratesOnOpen", func(t *testing.T) {
		indexPath, metadataPath := testPaths(t)

		v, err := Open(indexPath, metadataPath, 2)
		require.NoError(t, err)
		_, err = v.Insert(ctx, []float32{3, 4}, ledger.Record{Filename: "a.png"})
		require.NoError(t, err)

		reopened, err := Open(indexPath, metadataPath, 2, WithMetric(index.MetricCosine))
		require.NoError(t, err)
		assert.Equal(t, index.MetricCosine, reopened.Metric())

		// The migrated state is durable, so a plain reopen stays cosine.
		again, err := Open(indexPath, metadataPath, 2)
		require.NoError(t, err)
		assert.Equal(t, index.MetricCosine, again.Metric())
	})
}

func TestRecentRecords(t *testing.T) {
	ctx := context.Background()
	indexPath, metadataPath := testPaths(t)

	v, err := Open(indexPath, metadataPath, 2)
	require.NoError(t, err)

	for i, name := range []string{"a", "b", "c"} {
		_, err := v.Insert(ctx, []float32{float32(i), 1}, ledger.Record{Filename: name})
		require.NoError(t, err)
	}

	tail := v.RecentRecords(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "b", tail[0].Filename)
	assert.Equal(t, "c", tail[1].Filename)

	assert.Len(t, v.RecentRecords(0), 3)
}
