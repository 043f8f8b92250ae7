// Package persistence implements the durable on-disk format for the vector
// store: a fixed header, a zstd-compressed vector block, and a CRC32 footer.
// Writes go through a temp-file-then-rename so a crash never leaves a
// truncated file behind.
package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/internal/fs"
)

const (
	// MagicNumber identifies simvault vector files (ASCII: "SVX1").
	MagicNumber = 0x53565831

	// Version is the current file format version.
	Version = 0x00010000

	headerSize = 24 // magic + version + metric + padding + dimension + count
	footerSize = 4  // crc32
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrTruncated      = errors.New("truncated vector file")
)

// Snapshot is the persisted state of a vector store.
type Snapshot struct {
	Metric    index.Metric
	Dimension int
	Vectors   [][]float32
}

// Encode serializes the snapshot to its on-disk representation.
func Encode(snap *Snapshot) ([]byte, error) {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicNumber)
	binary.LittleEndian.PutUint32(header[4:8], Version)
	header[8] = byte(snap.Metric)
	// header[9:12] padding
	binary.LittleEndian.PutUint32(header[12:16], uint32(snap.Dimension))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(snap.Vectors)))

	raw := make([]byte, 0, len(snap.Vectors)*snap.Dimension*4)
	var scratch [4]byte
	for i, vec := range snap.Vectors {
		if len(vec) != snap.Dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), snap.Dimension)
		}
		for _, f := range vec {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(f))
			raw = append(raw, scratch[:]...)
		}
	}

	var block bytes.Buffer
	zw, err := zstd.NewWriter(&block)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+block.Len()+footerSize)
	out = append(out, header...)
	out = append(out, block.Bytes()...)

	crc := crc32.ChecksumIEEE(out)
	var footer [footerSize]byte
	binary.LittleEndian.PutUint32(footer[:], crc)
	out = append(out, footer[:]...)

	return out, nil
}

// Decode parses the on-disk representation back into a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize+footerSize {
		return nil, ErrTruncated
	}

	if binary.LittleEndian.Uint32(data[0:4]) != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(data[4:8]) != Version {
		return nil, ErrInvalidVersion
	}

	body := data[:len(data)-footerSize]
	wantCRC := binary.LittleEndian.Uint32(data[len(data)-footerSize:])
	if crc32.ChecksumIEEE(body) != wantCRC {
		return nil, ErrChecksum
	}

	m := index.Metric(data[8])
	dimension := int(binary.LittleEndian.Uint32(data[12:16]))
	count := binary.LittleEndian.Uint64(data[16:24])

	if err := index.ValidateBasicOptions(dimension, m); err != nil {
		return nil, err
	}

	zr, err := zstd.NewReader(bytes.NewReader(body[headerSize:]))
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	if uint64(len(raw)) != count*uint64(dimension)*4 {
		return nil, ErrTruncated
	}

	vectors := make([][]float32, count)
	off := 0
	for i := range vectors {
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
		}
		vectors[i] = vec
	}

	return &Snapshot{Metric: m, Dimension: dimension, Vectors: vectors}, nil
}

// Save writes the snapshot to path atomically.
func Save(fsys fs.FileSystem, path string, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(fsys, path, data, 0o644)
}

// Load reads a snapshot from path. It returns os.ErrNotExist (wrapped) if the
// file is absent so callers can distinguish "fresh start" from corruption.
func Load(fsys fs.FileSystem, path string) (*Snapshot, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return snap, nil
}

// Exists reports whether a snapshot file is present at path.
func Exists(fsys fs.FileSystem, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
