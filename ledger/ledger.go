// Package ledger stores the metadata records that accompany stored vectors.
//
// The ledger is positionally aligned with the vector store: the record at
// ordinal i describes the vector at position i. It is persisted as a single
// pretty-printed JSON document and rewritten in full on every change, and it
// keeps a Roaring Bitmap posting list per identity so duplicate submissions
// can be collapsed without a linear scan.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/simvault/simvault/codec"
	"github.com/simvault/simvault/internal/fs"
)

// OutOfRangeError is returned when a record ordinal does not exist.
type OutOfRangeError struct {
	Ordinal int
	Len     int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("ledger: ordinal %d out of range (len %d)", e.Ordinal, e.Len)
}

// Record is one metadata entry. Fields are optional; which ones are set
// depends on the artifact kind that produced the vector.
type Record struct {
	Filename        string `json:"filename,omitempty"`
	PatentID        string `json:"patent_id,omitempty"`
	BookID          string `json:"book_id,omitempty"`
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	Category        string `json:"category,omitempty"`
	Description     string `json:"description,omitempty"`
	PublishedSource string `json:"published_source,omitempty"`
	DateOfCreation  string `json:"date_of_creation,omitempty"`
	WalletAddress   string `json:"wallet_address,omitempty"`
	PDFCID          string `json:"pdf_cid,omitempty"`
}

// Identity returns the key used to collapse duplicate submissions of the
// same artifact. More specific identifiers win over generic ones.
func (r Record) Identity() string {
	switch {
	case r.PatentID != "":
		return "patent:" + r.PatentID
	case r.BookID != "":
		return "book:" + r.BookID
	case r.Filename != "":
		return "file:" + r.Filename
	case r.Title != "":
		return "title:" + r.Title
	default:
		return ""
	}
}

// Ledger is an append-only sequence of records backed by a JSON document.
// It is safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	fsys     fs.FileSystem
	path     string
	codec    codec.Codec
	records  []Record
	postings map[string]*roaring.Bitmap
}

// Options configures a ledger.
type Options struct {
	// FS is the file system used for persistence.
	FS fs.FileSystem

	// Codec serializes the record list. Defaults to pretty JSON so the
	// on-disk document stays reviewable by hand.
	Codec codec.Codec
}

// DefaultOptions are the recommended options.
var DefaultOptions = Options{
	FS:    fs.Default,
	Codec: codec.Default,
}

// Open loads the ledger at path, or starts an empty one if the file does
// not exist yet. A file that exists but cannot be parsed is reported as an
// error so callers can distinguish corruption from a fresh start.
func Open(path string, optFns ...func(o *Options)) (*Ledger, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	l := &Ledger{
		fsys:     opts.FS,
		path:     path,
		codec:    opts.Codec,
		postings: make(map[string]*roaring.Bitmap),
	}

	data, err := opts.FS.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}

		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	var records []Record
	if err := opts.Codec.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding ledger %s: %w", path, err)
	}

	l.records = records
	for i, rec := range records {
		l.index(rec, i)
	}

	return l, nil
}

// Append adds a record and returns its ordinal. The ledger is not persisted
// until Persist is called.
func (l *Ledger) Append(rec Record) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ordinal := len(l.records)
	l.records = append(l.records, rec)
	l.index(rec, ordinal)

	return ordinal
}

// Get returns the record at the given ordinal.
func (l *Ledger) Get(ordinal int) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ordinal < 0 || ordinal >= len(l.records) {
		return Record{}, &OutOfRangeError{Ordinal: ordinal, Len: len(l.records)}
	}

	return l.records[ordinal], nil
}

// All returns a copy of every record in insertion order.
func (l *Ledger) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)

	return out
}

// Tail returns up to n of the most recent records, newest last.
func (l *Ledger) Tail(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}

	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])

	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}

// Positions returns the ordinals of every record sharing the given identity,
// in insertion order.
func (l *Ledger) Positions(identity string) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bm, ok := l.postings[identity]
	if !ok {
		return nil
	}

	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()

	for it.HasNext() {
		out = append(out, int(it.Next()))
	}

	return out
}

// Contains reports whether any record with the given identity exists.
func (l *Ledger) Contains(identity string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bm, ok := l.postings[identity]

	return ok && !bm.IsEmpty()
}

// Truncate discards records from ordinal n onward. It is used to roll back
// an append whose companion vector write failed.
func (l *Ledger) Truncate(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 || n > len(l.records) {
		return &OutOfRangeError{Ordinal: n, Len: len(l.records)}
	}

	for i := n; i < len(l.records); i++ {
		if id := l.records[i].Identity(); id != "" {
			if bm, ok := l.postings[id]; ok {
				bm.Remove(uint32(i))
				if bm.IsEmpty() {
					delete(l.postings, id)
				}
			}
		}
	}

	l.records = l.records[:n]

	return nil
}

// Persist rewrites the backing document atomically.
func (l *Ledger) Persist() error {
	l.mu.RLock()
	records := l.records
	if records == nil {
		records = []Record{}
	}

	data, err := l.codec.Marshal(records)
	l.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := fs.WriteFileAtomic(l.fsys, l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}

	return nil
}

func (l *Ledger) index(rec Record, ordinal int) {
	id := rec.Identity()
	if id == "" {
		return
	}

	bm, ok := l.postings[id]
	if !ok {
		bm = roaring.New()
		l.postings[id] = bm
	}

	bm.Add(uint32(ordinal))
}
