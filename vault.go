package simvault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/index/flat"
	"github.com/simvault/simvault/ledger"
	"github.com/simvault/simvault/persistence"
)

// Vault pairs an exact-kNN vector store with a positionally aligned metadata
// ledger. The record at ordinal i always describes the vector at position i;
// every mutation either lands in both or in neither.
type Vault struct {
	mu     sync.RWMutex
	flat   *flat.Flat
	ledger *ledger.Ledger

	indexPath    string
	metadataPath string
	dimension    int
	opts         options
}

// Open loads the vault stored at indexPath/metadataPath, or creates an empty
// one if neither file exists. A pairing where exactly one file exists, or
// where the two files disagree on size, is refused.
func Open(indexPath, metadataPath string, dimension int, optFns ...Option) (*Vault, error) {
	opts := applyOptions(optFns)

	if err := index.ValidateBasicOptions(dimension, opts.metric); err != nil {
		return nil, translateError(err)
	}

	indexExists, err := persistence.Exists(opts.fs, indexPath)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", indexPath, err)
	}

	metadataExists := true
	if _, err := opts.fs.Stat(metadataPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("probing %s: %w", metadataPath, err)
		}
		metadataExists = false
	}

	// Half a pairing is worse than none: refuse rather than silently
	// resetting the surviving side.
	if indexExists && !metadataExists {
		return nil, &ErrCorruptMetadata{Path: metadataPath, cause: os.ErrNotExist}
	}
	if !indexExists && metadataExists {
		return nil, &ErrCorruptIndex{Path: indexPath, cause: os.ErrNotExist}
	}

	v := &Vault{
		indexPath:    indexPath,
		metadataPath: metadataPath,
		dimension:    dimension,
		opts:         opts,
	}

	if !indexExists {
		f, err := flat.New(func(o *flat.Options) {
			o.Dimension = dimension
			o.Metric = opts.metric
		})
		if err != nil {
			return nil, translateError(err)
		}

		l, err := ledger.Open(metadataPath, v.ledgerOptions)
		if err != nil {
			return nil, &ErrCorruptMetadata{Path: metadataPath, cause: err}
		}

		v.flat = f
		v.ledger = l

		return v, nil
	}

	snap, err := persistence.Load(opts.fs, indexPath)
	if err != nil {
		return nil, asCorruptIndex(indexPath, err)
	}

	if snap.Dimension != dimension {
		return nil, &ErrDimensionMismatch{Expected: dimension, Actual: snap.Dimension}
	}

	f, err := flat.New(func(o *flat.Options) {
		o.Dimension = snap.Dimension
		o.Metric = snap.Metric
	})
	if err != nil {
		return nil, translateError(err)
	}

	for _, vec := range snap.Vectors {
		if _, err := f.Add(context.Background(), vec); err != nil {
			return nil, asCorruptIndex(indexPath, err)
		}
	}

	l, err := ledger.Open(metadataPath, v.ledgerOptions)
	if err != nil {
		return nil, &ErrCorruptMetadata{Path: metadataPath, cause: err}
	}

	if f.Len() != l.Len() {
		return nil, &ErrIndexCorruption{StoreSize: f.Len(), LedgerSize: l.Len()}
	}

	v.flat = f
	v.ledger = l

	// Persisted metric wins over the configured one; an L2 vault opened
	// under a cosine configuration is migrated on the spot.
	if snap.Metric != opts.metric && opts.metric == index.MetricCosine {
		if err := v.MigrateMetric(context.Background(), index.MetricCosine); err != nil {
			return nil, err
		}
	}

	return v, nil
}

func (v *Vault) ledgerOptions(o *ledger.Options) {
	o.FS = v.opts.fs
	o.Codec = v.opts.codec
}

// Dimension returns the fixed vector dimensionality.
func (v *Vault) Dimension() int { return v.dimension }

// Metric returns the current ranking metric.
func (v *Vault) Metric() index.Metric {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.flat.Metric()
}

// Len returns the number of stored entries.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.flat.Len()
}

// Insert appends a vector and its metadata record as one unit and persists
// both files. If either side cannot be made durable, the in-memory state is
// rolled back and the vault is unchanged.
func (v *Vault) Insert(ctx context.Context, vec []float32, rec ledger.Record) (int, error) {
	start := time.Now()

	ordinal, err := v.insert(ctx, vec, rec)

	v.opts.metricsCollector.RecordInsert(time.Since(start), err)
	v.opts.logger.LogInsert(ctx, ordinal, len(vec), err)

	return ordinal, err
}

func (v *Vault) insert(ctx context.Context, vec []float32, rec ledger.Record) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	storeSize := v.flat.Len()
	ledgerSize := v.ledger.Len()

	if storeSize != ledgerSize {
		return 0, &ErrIndexCorruption{StoreSize: storeSize, LedgerSize: ledgerSize}
	}

	position, err := v.flat.Add(ctx, vec)
	if err != nil {
		return 0, translateError(err)
	}

	ordinal := v.ledger.Append(rec)
	if ordinal != position {
		// Cannot happen while the sizes matched above; treat it as drift.
		_ = v.flat.Truncate(storeSize)
		_ = v.ledger.Truncate(ledgerSize)

		return 0, &ErrIndexCorruption{StoreSize: position + 1, LedgerSize: ordinal + 1}
	}

	if err := v.persistLocked(ctx); err != nil {
		_ = v.flat.Truncate(storeSize)
		_ = v.ledger.Truncate(ledgerSize)

		// The snapshot may already carry the new vector on disk if only
		// the ledger rewrite failed. Rewrite it from the rolled-back
		// state so the durable pair stays aligned and a later Open does
		// not refuse the vault.
		_ = v.saveSnapshotLocked()

		return 0, err
	}

	return ordinal, nil
}

// persistLocked writes both files. The vector store goes first so a crash
// between the two writes leaves the store ahead of the ledger, which Open
// refuses to load rather than serving misaligned results.
func (v *Vault) persistLocked(ctx context.Context) error {
	err := v.saveSnapshotLocked()
	if err == nil {
		err = v.ledger.Persist()
	}

	v.opts.logger.LogPersist(ctx, v.indexPath, v.metadataPath, err)

	return err
}

func (v *Vault) saveSnapshotLocked() error {
	snap := &persistence.Snapshot{
		Metric:    v.flat.Metric(),
		Dimension: v.dimension,
		Vectors:   v.flat.ReconstructAll(),
	}

	return persistence.Save(v.opts.fs, v.indexPath, snap)
}

// Record returns the metadata record at the given ordinal.
func (v *Vault) Record(ordinal int) (ledger.Record, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	rec, err := v.ledger.Get(ordinal)
	if err != nil {
		return ledger.Record{}, translateError(err)
	}

	return rec, nil
}

// Records returns a copy of every metadata record in insertion order.
func (v *Vault) Records() []ledger.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.ledger.All()
}

// RecentRecords returns up to limit of the most recent records, newest last.
// limit <= 0 returns everything.
func (v *Vault) RecentRecords(limit int) []ledger.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.ledger.Tail(limit)
}

// Contains reports whether a record with the given identity already exists.
func (v *Vault) Contains(identity string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.ledger.Contains(identity)
}

// MigrateMetric switches the vault to the target metric, rewriting every
// stored vector. Migrating to the current metric is a no-op; only the L2 to
// cosine direction is supported.
func (v *Vault) MigrateMetric(ctx context.Context, target index.Metric) error {
	start := time.Now()

	count, err := v.migrateMetric(ctx, target)

	v.opts.metricsCollector.RecordMigration(count, time.Since(start), err)

	return err
}

func (v *Vault) migrateMetric(ctx context.Context, target index.Metric) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	from := v.flat.Metric()
	if from == target {
		return 0, nil
	}

	if from != index.MetricSquaredL2 || target != index.MetricCosine {
		err := fmt.Errorf("unsupported metric migration: %s to %s", from, target)
		v.opts.logger.LogMigration(ctx, from.String(), target.String(), 0, err)

		return 0, err
	}

	rebuilt, err := flat.New(func(o *flat.Options) {
		o.Dimension = v.dimension
		o.Metric = target
	})
	if err != nil {
		return 0, translateError(err)
	}

	vectors := v.flat.ReconstructAll()
	for _, vec := range vectors {
		if _, err := rebuilt.Add(ctx, vec); err != nil {
			v.opts.logger.LogMigration(ctx, from.String(), target.String(), 0, err)

			return 0, translateError(err)
		}
	}

	previous := v.flat
	v.flat = rebuilt

	if err := v.persistLocked(ctx); err != nil {
		v.flat = previous
		_ = v.saveSnapshotLocked()
		v.opts.logger.LogMigration(ctx, from.String(), target.String(), 0, err)

		return 0, err
	}

	v.opts.logger.LogMigration(ctx, from.String(), target.String(), len(vectors), nil)

	return len(vectors), nil
}
