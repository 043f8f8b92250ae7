package encode

import (
	"context"
	"hash/fnv"
)

// Deterministic is an Encoder that derives embeddings from a hash of the
// input. Identical inputs always produce identical vectors, which makes it
// useful for tests and offline smoke runs; it has no semantic power.
type Deterministic struct {
	Dim int
}

// Dimension implements Encoder.
func (d Deterministic) Dimension() int { return d.Dim }

// EncodeText implements Encoder.
func (d Deterministic) EncodeText(_ context.Context, text string) ([]float32, error) {
	return d.vectorize([]byte(text)), nil
}

// EncodeBytes implements Encoder.
func (d Deterministic) EncodeBytes(_ context.Context, data []byte, _ string) ([]float32, error) {
	return d.vectorize(data), nil
}

func (d Deterministic) vectorize(data []byte) []float32 {
	out := make([]float32, d.Dim)

	h := fnv.New64a()
	_, _ = h.Write(data)
	seed := h.Sum64()

	// Split the hash into per-component values in [0, 1).
	for i := range out {
		seed = seed*6364136223846793005 + 1442695040888963407
		out[i] = float32(seed>>40) / float32(1<<24)
	}

	return out
}

var _ Encoder = Deterministic{}
