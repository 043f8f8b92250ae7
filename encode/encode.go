// Package encode turns artifacts into embedding vectors.
//
// The actual model lives behind an HTTP embedding service; this package
// provides the client, frame-set pooling for video, and a deterministic
// encoder for tests.
package encode

import (
	"context"
	"errors"
	"fmt"

	"github.com/simvault/simvault/internal/math32"
)

// ErrEncoding wraps every failure to produce an embedding.
var ErrEncoding = errors.New("encoding failed")

// Encoder produces fixed-dimension embeddings for artifacts.
type Encoder interface {
	// EncodeText embeds a text passage.
	EncodeText(ctx context.Context, text string) ([]float32, error)

	// EncodeBytes embeds a binary artifact such as an image or a video
	// frame. contentType hints the media type to the model.
	EncodeBytes(ctx context.Context, data []byte, contentType string) ([]float32, error)

	// Dimension returns the embedding dimensionality.
	Dimension() int
}

// MeanPool averages a set of frame embeddings into a single vector. All
// frames must share the same dimension.
func MeanPool(frames [][]float32) ([]float32, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames to pool", ErrEncoding)
	}

	dim := len(frames[0])
	out := make([]float32, dim)

	for i, f := range frames {
		if len(f) != dim {
			return nil, fmt.Errorf("%w: frame %d has dimension %d, want %d", ErrEncoding, i, len(f), dim)
		}
		for j, x := range f {
			out[j] += x
		}
	}

	math32.ScaleInPlace(out, 1/float32(len(frames)))

	return out, nil
}
