// Package registry records anchored content identifiers in a durable,
// externally verifiable registry.
//
// A Registry is the system of record for "this artifact was anchored as this
// CID": a chain gateway in production, DynamoDB for deployments that prefer
// AWS primitives, or memory for tests. Recording is expected to be slow and
// is always bounded by the caller's context.
package registry

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no entry exists for an identity.
	ErrNotFound = errors.New("registry entry not found")

	// ErrAlreadyRecorded is returned when an identity already has an entry.
	ErrAlreadyRecorded = errors.New("identity already recorded")
)

// Entry is one confirmed registry record.
type Entry struct {
	// Identity is the artifact identity the entry belongs to.
	Identity string

	// CID is the anchored content identifier.
	CID string

	// Ref is the registry-native confirmation reference, such as a
	// transaction hash.
	Ref string
}

// Registry durably maps artifact identities to anchored CIDs.
type Registry interface {
	// Record stores the identity to CID mapping and blocks until the
	// registry confirms it or ctx expires.
	Record(ctx context.Context, identity, cid string) (Entry, error)

	// Lookup returns the entry for an identity, or ErrNotFound.
	Lookup(ctx context.Context, identity string) (Entry, error)
}
