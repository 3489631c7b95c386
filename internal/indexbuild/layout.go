package indexbuild

import (
	"github.com/trieql/leapstore/internal/dbio"
	"github.com/trieql/leapstore/internal/dictionary"
	"github.com/trieql/leapstore/internal/vfile"
)

// predicateOffsets holds the two per-predicate offsets into
// PREDICATE_INDEX_ARRAYS, plus the overall DB_INFO this build will write.
type predicateOffsets struct {
	info   dbio.Info
	sOff   []uint32 // index by pid, subject-set offset
	oOff   []uint32 // index by pid, object-set offset

	subjBlockOffset []uint32 // index by entity id, PO_PREDICATE_MAP block start
	objBlockOffset  []uint32 // index by entity id, PS_PREDICATE_MAP block start
}

// predicateMapLayout carries the running write cursors handed to the
// phase-4 worker pool.
type predicateMapLayout struct {
	cursor []uint32 // index by entity id
}

// entityArraysLayout carries the sealed upper bound for ENTITY_INDEX_ARRAYS.
type entityArraysLayout struct {
	total uint32
}

// computeLayout is spec.md §4.4 steps 3-5: total up every predicate's
// subject/object-set sizes, derive PREDICATE_INDEX offsets, accumulate
// per-entity predicate counts in both directions, and derive ENTITY_INDEX
// offsets from their prefix sums. It also computes the exact
// ENTITY_INDEX_ARRAYS size up front (phase 1 already built every adjacency
// list, so — unlike the original's provisional/upper-bound allocation —
// this implementation knows the final size exactly and never needs to
// shrink).
func computeLayout(dict *dictionary.Dictionary, sets []*predicateSets) (predicateOffsets, predicateMapLayout, predicateMapLayout, entityArraysLayout, error) {
	p := dict.PredicateCount()
	maxID := dict.MaxID()

	sOff := make([]uint32, p+1)
	oOff := make([]uint32, p+1)
	subjectDirCount := make([]uint32, maxID+1)
	objectDirCount := make([]uint32, maxID+1)

	var running uint32
	for pid := uint32(1); pid <= p; pid++ {
		ps := sets[pid]
		sOff[pid] = running
		oOff[pid] = running + uint32(ps.subjects.Len())
		running = oOff[pid] + uint32(ps.objects.Len())

		for s := range ps.subjToObjs {
			subjectDirCount[s]++
		}
		for o := range ps.objToSubjs {
			objectDirCount[o]++
		}
	}
	totalPredicateIndexArrays := running

	subjBlockOffset := make([]uint32, maxID+1)
	objBlockOffset := make([]uint32, maxID+1)
	var poRunning, psRunning uint32
	for e := uint32(1); e <= maxID; e++ {
		subjBlockOffset[e] = poRunning
		objBlockOffset[e] = psRunning
		poRunning += 3 * subjectDirCount[e]
		psRunning += 3 * objectDirCount[e]
	}

	var poArraysTotal, psArraysTotal uint32
	for pid := uint32(1); pid <= p; pid++ {
		ps := sets[pid]
		for _, objList := range ps.subjToObjs {
			if n := objList.Len(); n > 1 {
				poArraysTotal += uint32(n)
			}
		}
		for _, subjList := range ps.objToSubjs {
			if n := subjList.Len(); n > 1 {
				psArraysTotal += uint32(n)
			}
		}
	}

	info := dbio.Info{
		PredicateIndexSize:       p * 2 * 4,
		PredicateIndexArraysSize: totalPredicateIndexArrays * 4,
		EntityIndexSize:          maxID * 2 * 4,
		POPredicateMapSize:       poRunning * 4,
		PSPredicateMapSize:       psRunning * 4,
		EntityIndexArraysSize:    (poArraysTotal + psArraysTotal) * 4,
		TripleCount:              dict.TripleCount(),
		EntityCount:              maxID,
		PredicateCount:           p,
	}

	poCursor := make([]uint32, maxID+1)
	copy(poCursor, subjBlockOffset)
	psCursor := make([]uint32, maxID+1)
	copy(psCursor, objBlockOffset)

	return predicateOffsets{
			info:            info,
			sOff:            sOff,
			oOff:            oOff,
			subjBlockOffset: subjBlockOffset,
			objBlockOffset:  objBlockOffset,
		},
		predicateMapLayout{cursor: poCursor},
		predicateMapLayout{cursor: psCursor},
		entityArraysLayout{total: poArraysTotal + psArraysTotal},
		nil
}

// writePredicateIndex writes spec.md §3's PREDICATE_INDEX offsets and the
// concatenated PREDICATE_INDEX_ARRAYS content, in ascending predicate-id
// order (not rank order — the on-disk layout is defined by id adjacency,
// "the object-set ends at the next predicate's subject offset").
func writePredicateIndex(pi, pia *vfile.File, sets []*predicateSets, lay predicateOffsets) {
	p := uint32(len(sets) - 1)
	for pid := uint32(1); pid <= p; pid++ {
		pi.Set((pid-1)*2, lay.sOff[pid])
		pi.Set((pid-1)*2+1, lay.oOff[pid])

		ps := sets[pid]
		for i, v := range ps.subjects.ToSlice() {
			pia.Set(lay.sOff[pid]+uint32(i), v)
		}
		for i, v := range ps.objects.ToSlice() {
			pia.Set(lay.oOff[pid]+uint32(i), v)
		}
	}
}

// writeEntityIndex writes spec.md §3's ENTITY_INDEX: two offsets per
// entity, already computed as prefix sums by computeLayout.
func writeEntityIndex(ei *vfile.File, lay predicateOffsets) {
	maxID := uint32(len(lay.subjBlockOffset) - 1)
	for e := uint32(1); e <= maxID; e++ {
		ei.Set((e-1)*2, lay.subjBlockOffset[e])
		ei.Set((e-1)*2+1, lay.objBlockOffset[e])
	}
}
