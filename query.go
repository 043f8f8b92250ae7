package simvault

import (
	"context"
	"time"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/ledger"
	"github.com/simvault/simvault/metric"
)

// Match is a single similarity query result joined with its metadata.
type Match struct {
	// Ordinal is the position of the matched entry.
	Ordinal int

	// Record is the metadata record at that ordinal.
	Record ledger.Record

	// Score is the metric-native score: squared L2 distance (lower is
	// better) or inner product (higher is better).
	Score float32

	// Similarity is a normalized closeness value. Under L2 it is
	// 1/(1+distance); under cosine it equals Score.
	Similarity float32
}

// QueryResult is the outcome of a similarity query.
type QueryResult struct {
	// Matches are the deduplicated nearest entries, best-first.
	Matches []Match

	// NoData reports that the vault holds no entries yet. It is
	// informational, not an error.
	NoData bool
}

// Search returns up to k nearest entries, deduplicated by identity. It
// overfetches past k so that collapsing duplicate submissions of the same
// artifact still leaves k distinct candidates.
func (v *Vault) Search(ctx context.Context, query []float32, k int) (*QueryResult, error) {
	start := time.Now()

	res, err := v.search(ctx, query, k)

	v.opts.metricsCollector.RecordQuery(k, time.Since(start), err)
	if res != nil {
		v.opts.logger.LogQuery(ctx, k, len(res.Matches), err)
	} else {
		v.opts.logger.LogQuery(ctx, k, 0, err)
	}

	return res, err
}

func (v *Vault) search(ctx context.Context, query []float32, k int) (*QueryResult, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	size := v.flat.Len()
	if size == 0 {
		return &QueryResult{NoData: true}, nil
	}

	if size != v.ledger.Len() {
		return nil, &ErrIndexCorruption{StoreSize: size, LedgerSize: v.ledger.Len()}
	}

	// Fetch more than asked for so identity dedup does not starve the
	// result set, then clamp to what actually exists.
	fetch := k + 2
	if fetch < v.opts.overfetchFloor {
		fetch = v.opts.overfetchFloor
	}
	if fetch > size {
		fetch = size
	}

	raw, err := v.flat.Search(ctx, query, fetch)
	if err != nil {
		return nil, translateError(err)
	}

	matches := make([]Match, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		rec, err := v.ledger.Get(r.Position)
		if err != nil {
			// A hit pointing past the ledger means the pairing has
			// drifted; refuse rather than serve partial joins.
			return nil, &ErrIndexCorruption{StoreSize: size, LedgerSize: v.ledger.Len()}
		}

		// Results arrive best-first, so the first hit per identity is
		// also the best one.
		if id := rec.Identity(); id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}

		matches = append(matches, Match{
			Ordinal:    r.Position,
			Record:     rec,
			Score:      r.Score,
			Similarity: v.similarity(r.Score),
		})

		if len(matches) == k {
			break
		}
	}

	return &QueryResult{Matches: matches}, nil
}

func (v *Vault) similarity(score float32) float32 {
	if v.flat.Metric() == index.MetricCosine {
		return score
	}
	return metric.SimilarityFromDistance(score)
}

// SimilarityVerdict is the outcome of a near-duplicate check.
type SimilarityVerdict struct {
	// QueryResult carries the underlying matches.
	QueryResult

	// Similar reports whether at least one match crossed the threshold.
	Similar bool

	// Conflicts are the matches that crossed the threshold, best-first.
	// Empty when Similar is false.
	Conflicts []Match

	// Threshold echoes the threshold the verdict was made against.
	Threshold float32
}

// CheckSimilarity runs a search and applies the metric-appropriate threshold:
// under L2 a match is similar when its distance is below the threshold, under
// cosine when its score is at or above it.
func (v *Vault) CheckSimilarity(ctx context.Context, query []float32, k int, threshold float32) (*SimilarityVerdict, error) {
	res, err := v.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	verdict := &SimilarityVerdict{QueryResult: *res, Threshold: threshold}
	if res.NoData {
		return verdict, nil
	}

	cosine := v.Metric() == index.MetricCosine
	for _, m := range res.Matches {
		crossed := m.Score < threshold
		if cosine {
			crossed = m.Score >= threshold
		}
		if crossed {
			verdict.Conflicts = append(verdict.Conflicts, m)
		}
	}
	verdict.Similar = len(verdict.Conflicts) > 0

	return verdict, nil
}
