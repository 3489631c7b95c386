// Package planner orders a basic graph pattern's variables for leapfrog
// triejoin execution. Grounded on spec.md §4.7, with the greedy
// reorder-by-selectivity idea carried over from the teacher's
// internal/sparql/optimizer package (whose estimateSelectivity/
// reorderBySelectivity this generalizes into the concrete C/U/M scoring
// spec.md §4.7 names) and the underlying cardinality source from
// original_source/src/engine/query/query_plan.hpp.
package planner

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/trieql/leapstore/internal/dictionary"
	"github.com/trieql/leapstore/internal/index"
	"github.com/trieql/leapstore/internal/sparql/parser"
)

// ItemType names which of the two index directions a level's plan item
// probes, or whether neither side is yet bound.
type ItemType int

const (
	// ItemNone: neither this pattern's subject nor object is bound yet —
	// probe the full predicate-direction set.
	ItemNone ItemType = iota
	// ItemPS: predicate+subject known, producing the object candidates.
	ItemPS
	// ItemPO: predicate+object known, producing the subject candidates.
	ItemPO
)

func (t ItemType) String() string {
	switch t {
	case ItemPS:
		return "PS"
	case ItemPO:
		return "PO"
	default:
		return "None"
	}
}

// PlanItem is one triple pattern's contribution to a Level: a retrieval
// recipe, resolved down to ids, that the executor turns into a concrete
// sorted candidate set once any sibling variable's current binding is
// known.
type PlanItem struct {
	Type      ItemType
	Pattern   parser.TriplePattern
	Predicate uint32 // 0 means the predicate term didn't resolve — always empty

	// TargetIsSubject is true when this level's variable occupies the
	// pattern's subject position, false when it occupies the object
	// position.
	TargetIsSubject bool

	// Exactly one of OtherVariable/OtherConstant applies, and only when
	// Type != ItemNone: OtherVariable names the already-ordered sibling
	// variable to read a binding from; OtherConstant is a resolved id to
	// use when the sibling position held a literal term instead.
	OtherVariable string
	OtherConstant uint32
}

// Level is one step of the backtracking join: bind Variable by intersecting
// the candidate sets produced by Items.
type Level struct {
	Variable string
	Items    []PlanItem
}

// GroundFact is a fully-constant triple pattern (no variables at all) that
// must hold independent of any variable binding; spec.md's BGP allows this
// degenerate case even though it contributes nothing to the join.
type GroundFact struct {
	Predicate      uint32
	Subject        uint32
	Object         uint32
	Unsatisfiable bool // true if any term failed to resolve
}

// Plan is the ordered sequence of levels plus any ground facts to verify.
type Plan struct {
	Levels      []Level
	GroundFacts []GroundFact
	// Empty is true when some part of the pattern can statically never
	// match (an unresolved constant or predicate) — the executor should
	// short-circuit to zero rows without running the join at all.
	Empty bool
}

// resolvedTriple is one triple pattern with its constant terms already
// looked up against the dictionary; subjVar/objVar are empty when that
// position held a constant instead of a variable.
type resolvedTriple struct {
	pattern parser.TriplePattern
	pred    uint32
	subj    uint32 // 0 if variable
	obj     uint32 // 0 if variable
	subjVar string // "" if constant
	objVar  string // "" if constant
}

// Build orders patterns' variables and resolves their constant terms
// against the dictionary, producing an executable Plan. Only triple
// patterns participate; callers should reject OPTIONAL/FILTER clauses
// before planning (spec.md §9 — not evaluated).
func Build(patterns []parser.TriplePattern, r *index.Retriever) (*Plan, error) {
	dict := r.Dictionary()
	plan := &Plan{}

	var triples []resolvedTriple
	variableOccurs := map[string]int{}   // C(v)
	variableSingleUse := map[string]int{} // U(v)
	var firstSeenOrder []string          // first-occurrence order, for deterministic tie-breaking

	seen := map[string]bool{}
	noteSeen := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			firstSeenOrder = append(firstSeenOrder, v)
		}
	}

	for _, tp := range patterns {
		if tp.Predicate.IsVariable() {
			return nil, fmt.Errorf("planner: predicate variables are not supported (%q)", tp.Predicate.Text)
		}
		pid := dict.StringToID(tp.Predicate.Text, dictionary.PosPredicate)
		if pid == 0 {
			plan.Empty = true
		}

		rt := resolvedTriple{pattern: tp, pred: pid}

		nvars := 0
		if tp.Subject.IsVariable() {
			rt.subjVar = varName(tp.Subject)
			nvars++
			noteSeen(rt.subjVar)
		} else {
			id := dict.StringToID(tp.Subject.Text, dictionary.PosSubject)
			if id == 0 {
				plan.Empty = true
			}
			rt.subj = id
		}
		if tp.Object.IsVariable() {
			rt.objVar = varName(tp.Object)
			nvars++
			noteSeen(rt.objVar)
		} else {
			id := dict.StringToID(tp.Object.Text, dictionary.PosObject)
			if id == 0 {
				plan.Empty = true
			}
			rt.obj = id
		}

		if nvars == 0 {
			plan.GroundFacts = append(plan.GroundFacts, GroundFact{
				Predicate:     rt.pred,
				Subject:       rt.subj,
				Object:        rt.obj,
				Unsatisfiable: rt.pred == 0 || rt.subj == 0 || rt.obj == 0,
			})
			continue
		}

		triples = append(triples, rt)
		for _, v := range []string{rt.subjVar, rt.objVar} {
			if v != "" {
				variableOccurs[v]++
			}
		}
		if nvars == 1 {
			if rt.subjVar != "" {
				variableSingleUse[rt.subjVar]++
			} else {
				variableSingleUse[rt.objVar]++
			}
		}
	}

	assigned := map[string]bool{}
	for len(assigned) < len(variableOccurs) {
		v, items, err := pickNext(triples, assigned, variableOccurs, variableSingleUse, firstSeenOrder, r)
		if err != nil {
			return nil, err
		}
		if v == "" {
			break // no remaining variable has an eligible pattern: disconnected pattern, nothing left to order
		}
		assigned[v] = true
		plan.Levels = append(plan.Levels, Level{Variable: v, Items: items})
	}

	return plan, nil
}

func varName(t parser.Term) string {
	if len(t.Text) > 0 && t.Text[0] == '?' {
		return t.Text[1:]
	}
	return t.Text
}

// pickNext scores every not-yet-assigned variable over all the patterns it
// occurs in (itemFor accepts every such pattern, using ItemNone when the
// sibling position is a not-yet-ordered variable) and returns the winner
// by spec.md §4.7's C/U/M ordering: descending
// occurrence count, descending single-variable-pattern count, ascending
// minimum probe cardinality. Candidates are walked in firstSeenOrder
// (first-occurrence order across the original pattern list) rather than
// map iteration order, so that a full (C,U,M) tie — e.g. the fully
// symmetric triangle pattern — resolves the same way on every run instead
// of depending on Go's randomized map ordering.
func pickNext(
	triples []resolvedTriple,
	assigned map[string]bool,
	occurs, singleUse map[string]int,
	firstSeenOrder []string,
	r *index.Retriever,
) (string, []PlanItem, error) {
	type candidate struct {
		v     string
		items []PlanItem
		m     uint32
	}
	var best *candidate

	for _, v := range firstSeenOrder {
		if assigned[v] {
			continue
		}
		var items []PlanItem
		var minCard uint32 = ^uint32(0)
		for _, t := range triples {
			if t.subjVar == v {
				item, card, eligible := itemFor(t, true, assigned)
				if eligible {
					items = append(items, item)
					if c := estimateCard(item, card, r); c < minCard {
						minCard = c
					}
				}
			}
			if t.objVar == v {
				item, card, eligible := itemFor(t, false, assigned)
				if eligible {
					items = append(items, item)
					if c := estimateCard(item, card, r); c < minCard {
						minCard = c
					}
				}
			}
		}
		if len(items) == 0 {
			continue
		}
		cand := &candidate{v: v, items: items, m: minCard}
		if best == nil || better(occurs[v], singleUse[v], cand.m, occurs[best.v], singleUse[best.v], best.m) {
			best = cand
		}
	}
	if best == nil {
		return "", nil, nil
	}
	return best.v, best.items, nil
}

// better reports whether candidate a (C=ca, U=ua, M=ma) ranks ahead of b per
// spec.md §4.7: descending C, then descending U, then ascending M.
func better(ca, ua int, ma uint32, cb, ub int, mb uint32) bool {
	if ca != cb {
		return ca > cb
	}
	if ua != ub {
		return ua > ub
	}
	return ma < mb
}

func itemFor(
	t resolvedTriple,
	targetIsSubject bool,
	assigned map[string]bool,
) (PlanItem, uint32, bool) {
	item := PlanItem{Pattern: t.pattern, Predicate: t.pred, TargetIsSubject: targetIsSubject}

	if targetIsSubject {
		switch {
		case t.objVar == "":
			item.Type = ItemPO
			item.OtherConstant = t.obj
			return item, t.obj, true
		case assigned[t.objVar]:
			item.Type = ItemPO
			item.OtherVariable = t.objVar
			return item, 0, true
		default:
			item.Type = ItemNone
			return item, 0, true
		}
	}

	switch {
	case t.subjVar == "":
		item.Type = ItemPS
		item.OtherConstant = t.subj
		return item, t.subj, true
	case assigned[t.subjVar]:
		item.Type = ItemPS
		item.OtherVariable = t.subjVar
		return item, 0, true
	default:
		item.Type = ItemNone
		return item, 0, true
	}
}

// estimateCard returns a planning-time cardinality estimate for item. A
// constant sibling (OtherConstant, siblingID != 0) yields an exact probe;
// an already-ordered sibling variable's *runtime* value isn't known yet at
// plan time, so the full predicate-direction size is used as a conservative
// upper bound; ItemNone likewise uses the full direction size.
func estimateCard(item PlanItem, siblingID uint32, r *index.Retriever) uint32 {
	if item.Predicate == 0 {
		return 0
	}
	switch item.Type {
	case ItemPS:
		if item.OtherVariable == "" {
			return uint32(r.SizeObjectsOfSubject(item.Predicate, siblingID))
		}
		return uint32(r.SizeObjectsOf(item.Predicate))
	case ItemPO:
		if item.OtherVariable == "" {
			return uint32(r.SizeSubjectsOfObject(item.Predicate, siblingID))
		}
		return uint32(r.SizeSubjectsOf(item.Predicate))
	default:
		if item.TargetIsSubject {
			return uint32(r.SizeSubjectsOf(item.Predicate))
		}
		return uint32(r.SizeObjectsOf(item.Predicate))
	}
}

// CacheKey hashes a (predicate, direction, bound-sibling-id) probe
// signature so the executor can memoize repeated index lookups made along
// different backtracking branches that happen to reuse the same bound
// value. Keys are built in ascending predicate-id-then-direction order so
// that the same logical probe always hashes identically regardless of
// which level issued it.
func CacheKey(predicate uint32, direction ItemType, boundID uint32) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], predicate)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(direction))
	binary.LittleEndian.PutUint32(buf[8:12], boundID)
	return xxh3.Hash(buf[:])
}

// LevelCacheKey is spec.md §4.7's pre-join cache key for a level whose items
// are entirely None: such a level's candidate set is the intersection of
// full predicate-direction ranges that depend on no runtime binding at all,
// so the same key must be produced regardless of which backtracking branch
// reaches the level. Per-item signatures (predicate, direction bit) are
// sorted ascending before hashing (spec.md §9 "fix on ... ascending-by-
// predicate-id for determinism") so concatenation order doesn't matter.
func LevelCacheKey(items []PlanItem) uint64 {
	sigs := make([]uint64, len(items))
	for i, item := range items {
		dir := uint32(0)
		if item.TargetIsSubject {
			dir = 1
		}
		sigs[i] = CacheKey(item.Predicate, ItemNone, dir)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })

	buf := make([]byte, 8*len(sigs))
	for i, s := range sigs {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], s)
	}
	return xxh3.Hash(buf)
}

// AllNone reports whether every item in items is of type None — spec.md
// §4.9 step 2's trigger for consulting the pre-join cache instead of
// intersecting fresh.
func AllNone(items []PlanItem) bool {
	for _, item := range items {
		if item.Type != ItemNone {
			return false
		}
	}
	return true
}
