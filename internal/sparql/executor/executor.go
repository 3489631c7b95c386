// Package executor runs a planner.Plan against an index.Retriever: a
// backtracking depth-first search over the plan's variable levels, each
// level resolved via leapfrog.Intersect, with DISTINCT handled by cutting
// the search as soon as every projected variable is bound rather than by
// materializing and re-sorting the full result set. Grounded on spec.md
// §4.9, with the recursive binding-map idiom following the teacher's
// internal/sparql/evaluator package.
package executor

import (
	"sort"

	"github.com/trieql/leapstore/internal/dictionary"
	"github.com/trieql/leapstore/internal/index"
	"github.com/trieql/leapstore/internal/sparql/leapfrog"
	"github.com/trieql/leapstore/internal/sparql/planner"
)

// Execute runs plan and returns the projected, decoded result rows — one
// string per entry of selectVars, in that order. A plan.Empty or a failed
// ground fact both yield a nil, nil result: zero rows, no error, per
// spec.md §7's classification of unknown-term lookups.
func Execute(plan *planner.Plan, r *index.Retriever, selectVars []string, distinct bool, limit int, hasLimit bool) ([][]string, error) {
	if plan.Empty {
		return nil, nil
	}
	for _, gf := range plan.GroundFacts {
		if gf.Unsatisfiable {
			return nil, nil
		}
		objs := r.ObjectsOfSubject(gf.Predicate, gf.Subject)
		i := sort.Search(len(objs), func(i int) bool { return objs[i] >= gf.Object })
		if i >= len(objs) || objs[i] != gf.Object {
			return nil, nil
		}
	}

	e := &exec{
		plan:       plan,
		r:          r,
		dict:       r.Dictionary(),
		selectVars: selectVars,
		distinct:   distinct,
		limit:      limit,
		hasLimit:   hasLimit,
		cache:      map[uint64][]uint32{},
		levelCache: map[uint64][]uint32{},
	}

	if len(plan.Levels) == 0 {
		// No variables at all: the ground facts above already hold, so the
		// BGP is satisfied exactly once with an empty binding.
		return [][]string{{}}, nil
	}

	current := map[string]uint32{}
	limitReached := false
	e.search(0, current, &limitReached)
	return e.rows, nil
}

type exec struct {
	plan       *planner.Plan
	r          *index.Retriever
	dict       *dictionary.Dictionary
	selectVars []string
	distinct   bool
	limit      int
	hasLimit   bool

	cache map[uint64][]uint32 // per-item probe cache (PS/PO), keyed by planner.CacheKey

	// levelCache is spec.md §4.7's pre-join cache: the intersected
	// candidate set for a level whose items are entirely None (no bound
	// sibling at all, so the set is a pure function of the level's
	// predicates/directions) reused across every backtracking revisit of
	// that level instead of being recomputed.
	levelCache map[uint64][]uint32

	rows  [][]string
	count int
}

func (e *exec) search(levelIdx int, current map[string]uint32, limitReached *bool) {
	if *limitReached {
		return
	}
	if levelIdx == len(e.plan.Levels) {
		e.emit(current)
		if e.hasLimit && e.count >= e.limit {
			*limitReached = true
		}
		return
	}

	level := e.plan.Levels[levelIdx]
	cands := e.candidatesFor(level, current)

	for _, val := range cands {
		if *limitReached {
			return
		}
		current[level.Variable] = val

		if e.distinct && e.allSelectVarsBound(current) {
			if e.probeRestExists(levelIdx+1, current) {
				e.emit(current)
				if e.hasLimit && e.count >= e.limit {
					*limitReached = true
				}
			}
		} else {
			e.search(levelIdx+1, current, limitReached)
		}
	}
	delete(current, level.Variable)
}

// probeRestExists checks, without enumerating, whether at least one
// completion of the remaining levels exists — the DISTINCT cut only needs
// existence, not every witness, once all projected variables are bound.
func (e *exec) probeRestExists(levelIdx int, current map[string]uint32) bool {
	if levelIdx == len(e.plan.Levels) {
		return true
	}
	level := e.plan.Levels[levelIdx]
	cands := e.candidatesFor(level, current)
	for _, val := range cands {
		current[level.Variable] = val
		if e.probeRestExists(levelIdx+1, current) {
			delete(current, level.Variable)
			return true
		}
	}
	delete(current, level.Variable)
	return false
}

func (e *exec) allSelectVarsBound(current map[string]uint32) bool {
	for _, v := range e.selectVars {
		if _, ok := current[v]; !ok {
			return false
		}
	}
	return true
}

func (e *exec) candidatesFor(level planner.Level, current map[string]uint32) []uint32 {
	// spec.md §4.9 step 2: a level whose items are entirely None depends on
	// no runtime binding, so its intersection is the same on every
	// backtracking visit — consult the pre-join cache before recomputing.
	if planner.AllNone(level.Items) {
		key := planner.LevelCacheKey(level.Items)
		if v, ok := e.levelCache[key]; ok {
			return v
		}
		v := e.intersectItems(level.Items, current)
		e.levelCache[key] = v
		return v
	}
	return e.intersectItems(level.Items, current)
}

func (e *exec) intersectItems(items []planner.PlanItem, current map[string]uint32) []uint32 {
	if len(items) == 1 {
		return e.candidateSet(items[0], current)
	}
	seqs := make([][]uint32, len(items))
	for i, item := range items {
		seqs[i] = e.candidateSet(item, current)
	}
	return leapfrog.Intersect(seqs)
}

func (e *exec) candidateSet(item planner.PlanItem, current map[string]uint32) []uint32 {
	switch item.Type {
	case planner.ItemNone:
		if item.TargetIsSubject {
			return e.r.SubjectsOf(item.Predicate)
		}
		return e.r.ObjectsOf(item.Predicate)
	case planner.ItemPS:
		sib := e.sibling(item, current)
		key := planner.CacheKey(item.Predicate, item.Type, sib)
		if v, ok := e.cache[key]; ok {
			return v
		}
		v := e.r.ObjectsOfSubject(item.Predicate, sib)
		e.cache[key] = v
		return v
	case planner.ItemPO:
		sib := e.sibling(item, current)
		key := planner.CacheKey(item.Predicate, item.Type, sib)
		if v, ok := e.cache[key]; ok {
			return v
		}
		v := e.r.SubjectsOfObject(item.Predicate, sib)
		e.cache[key] = v
		return v
	default:
		return nil
	}
}

func (e *exec) sibling(item planner.PlanItem, current map[string]uint32) uint32 {
	if item.OtherVariable != "" {
		return current[item.OtherVariable]
	}
	return item.OtherConstant
}

func (e *exec) emit(current map[string]uint32) {
	row := make([]string, len(e.selectVars))
	for i, v := range e.selectVars {
		id := current[v]
		s, err := e.dict.IDToString(id, dictionary.PosSubject)
		if err != nil {
			s = ""
		}
		row[i] = s
	}
	if e.distinct {
		for _, prev := range e.rows {
			if rowsEqual(prev, row) {
				return
			}
		}
	}
	e.rows = append(e.rows, row)
	e.count++
}

func rowsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
