// Package anchor uploads registration documents to a content-addressed store
// and returns their content identifiers.
//
// A Store implementation decides where the bytes live (Pinata-pinned IPFS,
// an S3-compatible bucket, or memory for tests); callers only ever see the
// returned CID.
package anchor

import (
	"context"
	"errors"
)

// ErrUpload wraps every failure to pin content.
var ErrUpload = errors.New("anchor upload failed")

// Store pins documents and returns their content identifiers.
type Store interface {
	// PinJSON pins v as a JSON document under the given display name and
	// returns its CID. An empty CID without an error is itself an upload
	// failure; implementations must never return one.
	PinJSON(ctx context.Context, name string, v any) (string, error)

	// PinBytes pins a raw document and returns its CID.
	PinBytes(ctx context.Context, name string, data []byte) (string, error)
}
