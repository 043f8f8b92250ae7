// Package flat provides an exact (brute-force) flat index for vector storage
// and search. Entries are append-only; the position of a vector is its
// identity and is never reassigned.
package flat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/internal/queue"
	"github.com/simvault/simvault/metric"
)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all adds and searches.
	Dimension int

	// Metric selects the ranking metric. Under MetricCosine, vectors are
	// L2-normalized on add and squared L2 distance on unit vectors is used
	// internally; the reported score is the inner product.
	Metric index.Metric
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension: 0,
	Metric:    index.MetricSquaredL2,
}

// indexState holds the immutable vector slab for lock-free reads.
type indexState struct {
	vectors [][]float32
}

// Flat is an exact nearest-neighbor index over an append-only vector slab.
// It uses a copy-on-write pattern: readers load an immutable state snapshot
// and never block behind writers.
type Flat struct {
	state   atomic.Value // holds *indexState
	writeMu sync.Mutex   // serializes writes only
	opts    Options
}

// New creates a new instance of the flat index.
// Dimension is required and must be set at creation time.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.Metric); err != nil {
		return nil, err
	}

	f := &Flat{opts: opts}
	f.state.Store(&indexState{vectors: make([][]float32, 0)})

	return f, nil
}

func (f *Flat) getState() *indexState {
	return f.state.Load().(*indexState)
}

// Dimension returns the fixed dimensionality of the index.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Metric returns the ranking metric of the index.
func (f *Flat) Metric() index.Metric { return f.opts.Metric }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.getState().vectors)
}

// Add appends one vector and returns its position. The input is copied, so
// later changes to v do not affect the index.
func (f *Flat) Add(ctx context.Context, v []float32) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if len(v) == 0 {
		return 0, index.ErrEmptyVector
	}

	if len(v) != f.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(v)}
	}

	vec := make([]float32, len(v))
	copy(vec, v)

	if f.opts.Metric == index.MetricCosine {
		if !metric.NormalizeL2InPlace(vec) {
			return 0, fmt.Errorf("flat: cannot normalize zero vector")
		}
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	oldState := f.getState()
	newVectors := make([][]float32, len(oldState.vectors), len(oldState.vectors)+1)
	copy(newVectors, oldState.vectors)

	position := len(newVectors)
	newVectors = append(newVectors, vec)

	f.state.Store(&indexState{vectors: newVectors})

	return position, nil
}

// Truncate discards all vectors at position n and beyond, restoring the index
// to its first n entries. It is used to roll back an append whose durable
// commit did not complete.
func (f *Flat) Truncate(n int) error {
	if n < 0 {
		return fmt.Errorf("flat: invalid truncate size %d", n)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	oldState := f.getState()
	if n > len(oldState.vectors) {
		return fmt.Errorf("flat: truncate size %d exceeds %d entries", n, len(oldState.vectors))
	}

	newVectors := make([][]float32, n)
	copy(newVectors, oldState.vectors[:n])
	f.state.Store(&indexState{vectors: newVectors})

	return nil
}

// Search returns the k nearest entries by the index metric, best-first.
// If the index is empty it returns no results and no error. If k exceeds the
// number of entries, k is clamped.
func (f *Flat) Search(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(q) == 0 {
		return nil, index.ErrEmptyVector
	}
	if len(q) != f.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: f.opts.Dimension, Actual: len(q)}
	}

	st := f.getState()
	if len(st.vectors) == 0 {
		return nil, nil
	}

	query := q
	if f.opts.Metric == index.MetricCosine {
		norm, ok := metric.NormalizeL2Copy(q)
		if !ok {
			return nil, fmt.Errorf("flat: cannot normalize zero query")
		}
		query = norm
	}

	if k > len(st.vectors) {
		k = len(st.vectors)
	}

	// Stored vectors are unit-norm under cosine, so squared L2 preserves the
	// inner-product ordering for both metrics.
	top := queue.NewMax(k)
	for position, vec := range st.vectors {
		dist, err := metric.SquaredL2(query, vec)
		if err != nil {
			return nil, err
		}

		if top.Len() < k {
			top.Push(queue.Item{Position: position, Distance: dist})
			continue
		}
		if worst, _ := top.Top(); dist < worst.Distance {
			top.Pop()
			top.Push(queue.Item{Position: position, Distance: dist})
		}
	}

	results := make([]index.SearchResult, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		item, _ := top.Pop()
		results[i] = index.SearchResult{Position: item.Position, Score: f.score(item.Distance)}
	}
	return results, nil
}

// score maps an internal squared distance to the metric-native score.
func (f *Flat) score(distance float32) float32 {
	if f.opts.Metric == index.MetricCosine {
		return metric.InnerProductFromDistance(distance)
	}
	return distance
}

// ReconstructAll returns a copy of every stored vector in insertion order.
// It is used during metric migration.
func (f *Flat) ReconstructAll() [][]float32 {
	st := f.getState()
	out := make([][]float32, len(st.vectors))
	for i, v := range st.vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		out[i] = vec
	}
	return out
}
