// Package dbio manages the on-disk DB_DATA_ARCHIVE/<db>/ directory layout
// and the DB_INFO header, per spec.md §6.
package dbio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Root is the fixed top-level directory all databases live under.
const Root = "DB_DATA_ARCHIVE"

// Layout resolves every path that makes up one database's on-disk state.
type Layout struct {
	base string
}

// NewLayout returns the Layout for db rooted under archiveRoot (callers
// normally pass dbio.Root; tests pass a t.TempDir()).
func NewLayout(archiveRoot, db string) Layout {
	return Layout{base: filepath.Join(archiveRoot, db)}
}

func (l Layout) IndexDir() string      { return filepath.Join(l.base, "index") }
func (l Layout) DictionaryDir() string { return filepath.Join(l.base, "dictionary") }
func (l Layout) DBInfoPath() string    { return filepath.Join(l.IndexDir(), "DB_INFO") }

func (l Layout) PredicateIndexPath() string       { return filepath.Join(l.IndexDir(), "PREDICATE_INDEX") }
func (l Layout) PredicateIndexArraysPath() string { return filepath.Join(l.IndexDir(), "PREDICATE_INDEX_ARRAYS") }
func (l Layout) EntityIndexPath() string          { return filepath.Join(l.IndexDir(), "ENTITY_INDEX") }
func (l Layout) POPredicateMapPath() string        { return filepath.Join(l.IndexDir(), "PO_PREDICATE_MAP") }
func (l Layout) PSPredicateMapPath() string        { return filepath.Join(l.IndexDir(), "PS_PREDICATE_MAP") }
func (l Layout) EntityIndexArraysPath() string     { return filepath.Join(l.IndexDir(), "ENTITY_INDEX_ARRAYS") }

// MkdirAll creates index/ and dictionary/ beneath the database root.
func (l Layout) MkdirAll() error {
	if err := os.MkdirAll(l.IndexDir(), 0755); err != nil {
		return fmt.Errorf("dbio: create %s: %w", l.IndexDir(), err)
	}
	if err := os.MkdirAll(l.DictionaryDir(), 0755); err != nil {
		return fmt.Errorf("dbio: create %s: %w", l.DictionaryDir(), err)
	}
	return nil
}

// Exists reports whether this database's directory is present at all —
// used to produce ErrMissingDatabase before attempting to open any file.
func (l Layout) Exists() bool {
	info, err := os.Stat(l.base)
	return err == nil && info.IsDir()
}

// Info is the DB_INFO header: the six index file byte sizes named in
// spec.md §6, plus three supplemented summary counts (§5 of SPEC_FULL.md —
// triple/entity/predicate counts, for a quick top-line count without
// touching the dictionary).
type Info struct {
	PredicateIndexSize       uint32
	PredicateIndexArraysSize uint32
	EntityIndexSize          uint32
	POPredicateMapSize       uint32
	PSPredicateMapSize       uint32
	EntityIndexArraysSize    uint32

	TripleCount    uint32
	EntityCount    uint32
	PredicateCount uint32
}

const infoWords = 9

// WriteInfo writes the nine little-endian uint32 words to DB_INFO.
func WriteInfo(path string, info Info) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dbio: create DB_INFO: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	words := [infoWords]uint32{
		info.PredicateIndexSize,
		info.PredicateIndexArraysSize,
		info.EntityIndexSize,
		info.POPredicateMapSize,
		info.PSPredicateMapSize,
		info.EntityIndexArraysSize,
		info.TripleCount,
		info.EntityCount,
		info.PredicateCount,
	}
	var buf [4]byte
	for _, v := range words {
		binary.LittleEndian.PutUint32(buf[:], v)
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("dbio: write DB_INFO: %w", err)
		}
	}
	return w.Flush()
}

// ReadInfo reads DB_INFO, which must carry at least the first six words;
// the three supplemented counts default to zero on an older, 6-word file.
func ReadInfo(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("dbio: read DB_INFO: %w", err)
	}
	if len(data) < 6*4 {
		return Info{}, fmt.Errorf("dbio: DB_INFO too short: %d bytes", len(data))
	}
	words := make([]uint32, infoWords)
	for i := 0; i*4+4 <= len(data) && i < infoWords; i++ {
		words[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return Info{
		PredicateIndexSize:       words[0],
		PredicateIndexArraysSize: words[1],
		EntityIndexSize:          words[2],
		POPredicateMapSize:       words[3],
		PSPredicateMapSize:       words[4],
		EntityIndexArraysSize:    words[5],
		TripleCount:              words[6],
		EntityCount:              words[7],
		PredicateCount:           words[8],
	}, nil
}
