// Package index provides shared types for vector search indexes.
package index

import (
	"errors"
	"fmt"
)

// Metric represents the similarity metric used for nearest-neighbor ranking.
type Metric int

const (
	// MetricSquaredL2 ranks by smallest squared Euclidean distance.
	MetricSquaredL2 Metric = iota

	// MetricCosine ranks by largest inner product over L2-normalized vectors.
	MetricCosine
)

// String returns a string representation of the Metric.
func (m Metric) String() string {
	switch m {
	case MetricSquaredL2:
		return "SquaredL2"
	case MetricCosine:
		return "Cosine"
	default:
		return "Unknown"
	}
}

// ParseMetric parses a metric name as written by Metric.String.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "SquaredL2":
		return MetricSquaredL2, nil
	case "Cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// SearchResult represents a single nearest-neighbor search result.
type SearchResult struct {
	// Position is the ordinal of the matched vector (insertion order).
	Position int

	// Score is the metric-native score: squared distance under SquaredL2
	// (lower is better), inner product under Cosine (higher is better).
	// Search results are always ordered best-first.
	Score float32
}

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyVector is returned when an empty vector is inserted or queried.
	ErrEmptyVector = errors.New("vector must not be empty")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ValidateBasicOptions validates dimension and metric configuration shared by
// index implementations.
func ValidateBasicOptions(dimension int, metric Metric) error {
	if dimension <= 0 {
		return &ErrInvalidDimension{Dimension: dimension}
	}
	switch metric {
	case MetricSquaredL2, MetricCosine:
		return nil
	default:
		return fmt.Errorf("unsupported metric: %d", metric)
	}
}
