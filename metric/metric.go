// Package metric provides vector distance and similarity calculations.
package metric

import (
	"errors"
	"slices"

	"github.com/simvault/simvault/internal/math32"
)

// ErrSizeMismatch is returned when two vectors have different lengths.
var ErrSizeMismatch = errors.New("vector sizes do not match")

// Magnitude calculates the L2 magnitude (length) of a float32 slice.
func Magnitude(v []float32) float32 {
	return math32.Sqrt(math32.Dot(v, v))
}

// Dot calculates the dot product of two float32 slices.
// Assumes vectors are the same length (caller's responsibility).
func Dot(v1, v2 []float32) float32 {
	return math32.Dot(v1, v2)
}

// SquaredL2 calculates the squared L2 distance between two float32 slices.
func SquaredL2(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}
	return math32.SquaredL2(v1, v2), nil
}

// CosineSimilarity calculates the cosine similarity between two float32 slices.
func CosineSimilarity(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	dotProduct := math32.Dot(v1, v2)
	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return dotProduct / (magnitudeA * magnitudeB), nil
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := math32.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	math32.ScaleInPlace(v, 1/math32.Sqrt(norm2))
	return true
}

// NormalizeL2Copy returns an L2-normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}

// SimilarityFromDistance maps a squared L2 distance to a similarity score in
// (0, 1], monotonically decreasing in distance: 1 / (1 + distance).
func SimilarityFromDistance(distance float32) float32 {
	return 1 / (1 + distance)
}

// InnerProductFromDistance recovers the inner product of two unit vectors
// from their squared L2 distance: for unit u, w it holds |u-w|^2 = 2 - 2*(u.w).
func InnerProductFromDistance(distance float32) float32 {
	return 1 - distance/2
}
