package encode

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultFrameConcurrency bounds how many frames are embedded in parallel.
const DefaultFrameConcurrency = 4

// EncodeFrames embeds every frame concurrently and mean-pools the results
// into a single video-level vector.
func EncodeFrames(ctx context.Context, enc Encoder, frames [][]byte, contentType string) ([]float32, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrEncoding)
	}

	vectors := make([][]float32, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultFrameConcurrency)

	for i, frame := range frames {
		g.Go(func() error {
			v, err := enc.EncodeBytes(ctx, frame, contentType)
			if err != nil {
				return err
			}

			// Each goroutine owns exactly one slot.
			vectors[i] = v

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MeanPool(vectors)
}
