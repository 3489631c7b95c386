// Package index is the read-only query-time retriever: it opens the six
// on-disk index files and the dictionary, and exposes the subject/object set
// and adjacency probes the planner and executor need. Grounded on
// original_source/src/engine/store/index_retriever.hpp (see DESIGN.md for
// the stride and bounds-check inconsistencies resolved against spec.md).
package index

import (
	"fmt"

	"github.com/trieql/leapstore/internal/dbio"
	"github.com/trieql/leapstore/internal/dictionary"
	"github.com/trieql/leapstore/internal/errs"
	"github.com/trieql/leapstore/internal/vfile"
)

// Retriever is safe for concurrent reads once Open returns: every backing
// file is mapped read-only and the dictionary is immutable after load.
type Retriever struct {
	info dbio.Info
	dict *dictionary.Dictionary

	predicateIndex       *vfile.File
	predicateIndexArrays *vfile.File
	entityIndex          *vfile.File
	poPredicateMap       *vfile.File
	psPredicateMap       *vfile.File
	entityIndexArrays    *vfile.File

	// Eagerly decoded per-predicate subject/object sets (pre-load step),
	// indexed by pid-1, so repeated queries never re-walk
	// PREDICATE_INDEX_ARRAYS.
	psSets [][]uint32
	poSets [][]uint32
}

// Open maps all six index files and loads the dictionary for db rooted at
// archiveRoot. Returns errs.ErrMissingDatabase if the directory is absent or
// DB_INFO or the dictionary cannot be read. A missing index file is reported
// as errs.ErrIO, not errs.ErrMissingDatabase.
func Open(archiveRoot, db string) (*Retriever, error) {
	layout := dbio.NewLayout(archiveRoot, db)
	if !layout.Exists() {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingDatabase, db)
	}

	info, err := dbio.ReadInfo(layout.DBInfoPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingDatabase, err)
	}

	dict, err := dictionary.Load(layout.DictionaryDir())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingDatabase, err)
	}

	r := &Retriever{info: info, dict: dict}
	if r.predicateIndex, err = vfile.Open(layout.PredicateIndexPath(), info.PredicateIndexSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}
	if r.predicateIndexArrays, err = vfile.Open(layout.PredicateIndexArraysPath(), info.PredicateIndexArraysSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}
	if r.entityIndex, err = vfile.Open(layout.EntityIndexPath(), info.EntityIndexSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}
	if r.poPredicateMap, err = vfile.Open(layout.POPredicateMapPath(), info.POPredicateMapSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}
	if r.psPredicateMap, err = vfile.Open(layout.PSPredicateMapPath(), info.PSPredicateMapSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}
	if r.entityIndexArrays, err = vfile.Open(layout.EntityIndexArraysPath(), info.EntityIndexArraysSize); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}

	r.preloadTree()
	return r, nil
}

// preloadTree decodes every predicate's subject-set and object-set out of
// PREDICATE_INDEX_ARRAYS once at open time. Addressed with stride 2 per
// spec.md §3 (see DESIGN.md Open Question 1 for why the original's stride-4
// accessors are not followed).
func (r *Retriever) preloadTree() {
	n := r.dict.PredicateCount()
	r.psSets = make([][]uint32, n)
	r.poSets = make([][]uint32, n)
	totalWords := r.info.PredicateIndexArraysSize / 4

	for pid := uint32(1); pid <= n; pid++ {
		sOff := r.predicateIndex.Get((pid - 1) * 2)
		oOff := r.predicateIndex.Get((pid-1)*2 + 1)
		sSize := oOff - sOff

		var oSize uint32
		if pid != n {
			oSize = r.predicateIndex.Get(pid*2) - oOff
		} else {
			oSize = totalWords - oOff
		}

		r.psSets[pid-1] = r.predicateIndexArrays.Slice(sOff, sSize)
		r.poSets[pid-1] = r.predicateIndexArrays.Slice(oOff, oSize)
	}
}

// SubjectsOf returns the sorted subject ids where (s,p,?) holds.
func (r *Retriever) SubjectsOf(p uint32) []uint32 {
	if p == 0 || p > uint32(len(r.psSets)) {
		return nil
	}
	return r.psSets[p-1]
}

// ObjectsOf returns the sorted object ids where (?,p,o) holds.
func (r *Retriever) ObjectsOf(p uint32) []uint32 {
	if p == 0 || p > uint32(len(r.poSets)) {
		return nil
	}
	return r.poSets[p-1]
}

// SizeSubjectsOf returns len(SubjectsOf(p)) without materialising it (it's
// already materialised by the pre-load step, so this is just a length read).
func (r *Retriever) SizeSubjectsOf(p uint32) int { return len(r.SubjectsOf(p)) }

// SizeObjectsOf is the ObjectsOf counterpart of SizeSubjectsOf.
func (r *Retriever) SizeObjectsOf(p uint32) int { return len(r.ObjectsOf(p)) }

// ObjectsOfSubject returns the sorted o such that (s,p,o) holds, or an empty
// slice. Grounded on IndexRetriever::GetByPS.
func (r *Retriever) ObjectsOfSubject(p, s uint32) []uint32 {
	if p == 0 || s == 0 || s > r.dict.MaxID() {
		return nil
	}
	offset := r.entityIndex.Get((s - 1) * 2)
	var size uint32
	if s != r.dict.MaxID() {
		size = (r.entityIndex.Get(s*2) - offset) / 3
	} else {
		size = (r.info.POPredicateMapSize/4 - offset) / 3
	}
	return scanPredicateMap(r.poPredicateMap, r.entityIndexArrays, offset, size, p)
}

// SubjectsOfObject returns the sorted s such that (s,p,o) holds, or an empty
// slice. Grounded on IndexRetriever::GetByPO.
func (r *Retriever) SubjectsOfObject(p, o uint32) []uint32 {
	if p == 0 || o == 0 || o > r.dict.MaxID() {
		return nil
	}
	offset := r.entityIndex.Get((o-1)*2 + 1)
	var size uint32
	if o != r.dict.MaxID() {
		size = (r.entityIndex.Get(o*2+1) - offset) / 3
	} else {
		size = (r.info.PSPredicateMapSize/4 - offset) / 3
	}
	return scanPredicateMap(r.psPredicateMap, r.entityIndexArrays, offset, size, p)
}

func scanPredicateMap(predicateMap, arrays *vfile.File, offset, size, p uint32) []uint32 {
	for i := uint32(0); i < size; i++ {
		base := offset + 3*i
		if predicateMap.Get(base) != p {
			continue
		}
		arrOffset := predicateMap.Get(base + 1)
		arrSize := predicateMap.Get(base + 2)
		if arrSize != 1 {
			return arrays.Slice(arrOffset, arrSize)
		}
		return []uint32{arrOffset}
	}
	return nil
}

// SizeObjectsOfSubject and SizeSubjectsOfObject give the count without
// copying the adjacency range.
func (r *Retriever) SizeObjectsOfSubject(p, s uint32) int { return len(r.ObjectsOfSubject(p, s)) }
func (r *Retriever) SizeSubjectsOfObject(p, o uint32) int { return len(r.SubjectsOfObject(p, o)) }

// Dictionary exposes the loaded dictionary for string<->id translation.
func (r *Retriever) Dictionary() *dictionary.Dictionary { return r.dict }

// Info exposes the DB_INFO header, including the supplemented summary
// counts (SPEC_FULL.md §5).
func (r *Retriever) Info() dbio.Info { return r.info }

// Close releases the six memory mappings.
func (r *Retriever) Close() error {
	var firstErr error
	for _, f := range []*vfile.File{
		r.predicateIndex, r.predicateIndexArrays, r.entityIndex,
		r.poPredicateMap, r.psPredicateMap, r.entityIndexArrays,
	} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
