// Package minio implements anchor.Store on MinIO and S3-compatible storage.
// Objects are content addressed: the CID is the SHA-256 digest of the
// document, so re-pinning identical content is a no-op.
package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/simvault/simvault/anchor"
)

// Store implements anchor.Store for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO anchor store.
// bucket is the bucket name; rootPrefix is prepended to all object keys
// (e.g. "anchors/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(cid string) string {
	return path.Join(s.prefix, cid)
}

// PinJSON implements anchor.Store.
func (s *Store) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling payload: %v", anchor.ErrUpload, err)
	}
	return s.PinBytes(ctx, name, data)
}

// PinBytes implements anchor.Store.
func (s *Store) PinBytes(ctx context.Context, name string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	cid := hex.EncodeToString(sum[:])

	opts := minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{"name": name},
	}

	if _, err := s.client.PutObject(ctx, s.bucket, s.key(cid), bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("%w: %v", anchor.ErrUpload, err)
	}

	return cid, nil
}

// Fetch returns the pinned content for a CID.
func (s *Store) Fetch(ctx context.Context, cid string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(cid), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

var _ anchor.Store = (*Store)(nil)
