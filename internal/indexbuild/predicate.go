package indexbuild

import "github.com/trieql/leapstore/internal/sortedrun"

// pair is one (subject, object) occurrence of a predicate, with final
// (post-remap) entity ids.
type pair struct {
	s, o uint32
}

// predicateSets is everything phase 1 derives for one predicate: its
// subject-set and object-set (spec.md §4.4 step 3), and its per-entity
// adjacency lists (step 6), all built with the linked sorted-run structure.
type predicateSets struct {
	pid uint32

	subjects *sortedrun.List // S_p
	objects  *sortedrun.List // O_p

	subjToObjs map[uint32]*sortedrun.List // s -> sorted list of o under pid
	objToSubjs map[uint32]*sortedrun.List // o -> sorted list of s under pid
}

// buildPredicateSets is the pure, per-predicate computation dispatched to
// the phase-1 worker pool. It touches no shared state, so it needs no
// synchronisation at all.
func buildPredicateSets(pid uint32, pairs []pair) *predicateSets {
	ps := &predicateSets{
		pid:         pid,
		subjects:    &sortedrun.List{},
		objects:     &sortedrun.List{},
		subjToObjs:  make(map[uint32]*sortedrun.List),
		objToSubjs:  make(map[uint32]*sortedrun.List),
	}
	for _, pr := range pairs {
		ps.subjects.Add(pr.s)
		ps.objects.Add(pr.o)

		so, ok := ps.subjToObjs[pr.s]
		if !ok {
			so = &sortedrun.List{}
			ps.subjToObjs[pr.s] = so
		}
		so.Add(pr.o)

		os, ok := ps.objToSubjs[pr.o]
		if !ok {
			os = &sortedrun.List{}
			ps.objToSubjs[pr.o] = os
		}
		os.Add(pr.s)
	}
	return ps
}
