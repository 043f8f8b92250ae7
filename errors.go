package simvault

import (
	"errors"
	"fmt"
	"time"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/ledger"
	"github.com/simvault/simvault/persistence"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrCorruptIndex indicates the vector store file is unreadable or missing
// while its companion metadata ledger exists.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptIndex struct {
	Path  string
	cause error
}

func (e *ErrCorruptIndex) Error() string {
	return fmt.Sprintf("corrupt vector store: %s", e.Path)
}

func (e *ErrCorruptIndex) Unwrap() error { return e.cause }

// ErrCorruptMetadata indicates the metadata ledger is unreadable or missing
// while its companion vector store exists.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptMetadata struct {
	Path  string
	cause error
}

func (e *ErrCorruptMetadata) Error() string {
	return fmt.Sprintf("corrupt metadata ledger: %s", e.Path)
}

func (e *ErrCorruptMetadata) Unwrap() error { return e.cause }

// ErrIndexCorruption indicates the vector store and the metadata ledger have
// drifted out of positional alignment. The pairing is unrecoverable at this
// point and the vault refuses to serve.
type ErrIndexCorruption struct {
	StoreSize  int
	LedgerSize int
}

func (e *ErrIndexCorruption) Error() string {
	return fmt.Sprintf("index corruption: %d vectors vs %d metadata records", e.StoreSize, e.LedgerSize)
}

// ErrOutOfRange indicates a requested ordinal does not exist.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrOutOfRange struct {
	Ordinal int
	Len     int
	cause   error
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("ordinal %d out of range (len %d)", e.Ordinal, e.Len)
}

func (e *ErrOutOfRange) Unwrap() error { return e.cause }

// ErrExtractionFailed indicates that no usable content could be extracted
// from a submitted artifact.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrExtractionFailed struct {
	Reason string
	Cause  error
}

func (e *ErrExtractionFailed) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

func (e *ErrExtractionFailed) Unwrap() error { return e.Cause }

// ErrAnchorUploadFailed indicates the anchoring content store did not return
// a content identifier for an upload.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrAnchorUploadFailed struct {
	Cause error
}

func (e *ErrAnchorUploadFailed) Error() string {
	return "anchor upload failed"
}

func (e *ErrAnchorUploadFailed) Unwrap() error { return e.Cause }

// ErrAnchorTimeout indicates the registry did not confirm an anchor within
// the bounded wait.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrAnchorTimeout struct {
	Wait  time.Duration
	Cause error
}

func (e *ErrAnchorTimeout) Error() string {
	return fmt.Sprintf("anchor not confirmed within %s", e.Wait)
}

func (e *ErrAnchorTimeout) Unwrap() error { return e.Cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Dimension and argument normalization.
	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	if errors.Is(err, index.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	// Ordinal normalization.
	var oor *ledger.OutOfRangeError
	if errors.As(err, &oor) {
		return &ErrOutOfRange{Ordinal: oor.Ordinal, Len: oor.Len, cause: err}
	}

	return err
}

// asCorruptIndex wraps persistence decode failures into the corrupt index
// taxonomy; unrelated errors pass through unchanged.
func asCorruptIndex(path string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) ||
		errors.Is(err, persistence.ErrChecksum) ||
		errors.Is(err, persistence.ErrTruncated) {
		return &ErrCorruptIndex{Path: path, cause: err}
	}

	return err
}
