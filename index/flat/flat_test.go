package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/metric"
)

func TestFlat(t *testing.T) {
	ctx := context.Background()

	t.Run("Add", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 3 })
		require.NoError(t, err)

		position, err := f.Add(ctx, []float32{1.0, 2.0, 3.0})
		require.NoError(t, err)
		assert.Equal(t, 0, position)
		assert.Equal(t, 1, f.Len())

		// Dimension mismatch
		_, err = f.Add(ctx, []float32{1.0, 2.0})
		assert.Error(t, err)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
	})

	t.Run("SearchEmpty", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 3 })
		require.NoError(t, err)

		results, err := f.Search(ctx, []float32{1.0, 2.0, 3.0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("SearchSquaredL2", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 4 })
		require.NoError(t, err)

		_, _ = f.Add(ctx, []float32{1, 0, 0, 0})
		_, _ = f.Add(ctx, []float32{0, 1, 0, 0})

		results, err := f.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, 0, results[0].Position)
		assert.InDelta(t, float32(0), results[0].Score, 1e-6)
		assert.Equal(t, 1, results[1].Position)
		assert.InDelta(t, float32(2), results[1].Score, 1e-6)
	})

	t.Run("SearchClampsK", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 2 })
		require.NoError(t, err)

		_, _ = f.Add(ctx, []float32{1, 0})

		results, err := f.Search(ctx, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("SearchCosine", func(t *testing.T) {
		f, err := New(func(o *Options) {
			o.Dimension = 2
			o.Metric = index.MetricCosine
		})
		require.NoError(t, err)

		_, _ = f.Add(ctx, []float32{2, 0}) // normalized to [1, 0]
		_, _ = f.Add(ctx, []float32{0, 5}) // normalized to [0, 1]

		results, err := f.Search(ctx, []float32{10, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)

		// Scores are inner products, best-first.
		assert.Equal(t, 0, results[0].Position)
		assert.InDelta(t, float32(1), results[0].Score, 1e-6)
		assert.Equal(t, 1, results[1].Position)
		assert.InDelta(t, float32(0), results[1].Score, 1e-6)
	})

	t.Run("InvalidK", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 2 })
		require.NoError(t, err)

		_, err = f.Search(ctx, []float32{1, 0}, 0)
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("Truncate", func(t *testing.T) {
		f, err := New(func(o *Options) { o.Dimension = 2 })
		require.NoError(t, err)

		_, _ = f.Add(ctx, []float32{1, 0})
		_, _ = f.Add(ctx, []float32{0, 1})
		require.Equal(t, 2, f.Len())

		require.NoError(t, f.Truncate(1))
		assert.Equal(t, 1, f.Len())

		assert.Error(t, f.Truncate(5))
	})

	t.Run("ReconstructAll", func(t *testing.T) {
		f, err := New(func(o *Options) {
			o.Dimension = 2
			o.Metric = index.MetricCosine
		})
		require.NoError(t, err)

		_, _ = f.Add(ctx, []float32{3, 4})

		all := f.ReconstructAll()
		require.Len(t, all, 1)
		assert.InDelta(t, float32(1), metric.Magnitude(all[0]), 1e-6)

		// Mutating the copy must not affect the index.
		all[0][0] = 42
		again := f.ReconstructAll()
		assert.InDelta(t, float32(0.6), again[0][0], 1e-6)
	})

	t.Run("InvalidDimension", func(t *testing.T) {
		_, err := New()
		assert.Error(t, err)
		assert.IsType(t, &index.ErrInvalidDimension{}, err)
	})
}
