// Package dictionary implements the two-way mapping between textual RDF
// terms and the integer identifier space described in spec.md §3: shared
// terms first, then subject-only terms, then object-only terms, with
// predicates in a disjoint space.
package dictionary

import "fmt"

// Pos identifies which role a term is being looked up or interned under.
type Pos int

const (
	PosSubject Pos = iota
	PosObject
	PosPredicate
)

// Dictionary is the read-only, query-time view of a built dictionary: the
// partition boundaries plus the four string<->id tables. It is safe for
// concurrent reads — nothing mutates it after Load.
type Dictionary struct {
	sharedCount     uint32
	subjectCount    uint32
	objectCount     uint32
	predicateCount  uint32
	tripleCount     uint32

	id2shared      []string // index i -> id i+1
	id2subjectOnly []string // index i -> id sharedCount+i+1
	id2objectOnly  []string // index i -> id sharedCount+subjectCount+i+1
	id2predicate   []string // index i -> id i+1

	shared2id      map[string]uint32
	subjectOnly2id map[string]uint32
	objectOnly2id  map[string]uint32
	predicate2id   map[string]uint32
}

// SharedCount, SubjectCount, ObjectCount, PredicateCount, TripleCount expose
// the dict_info counters.
func (d *Dictionary) SharedCount() uint32    { return d.sharedCount }
func (d *Dictionary) SubjectCount() uint32   { return d.subjectCount }
func (d *Dictionary) ObjectCount() uint32    { return d.objectCount }
func (d *Dictionary) PredicateCount() uint32 { return d.predicateCount }
func (d *Dictionary) TripleCount() uint32    { return d.tripleCount }

// MaxID returns the largest entity (subject/object-space) id in use.
func (d *Dictionary) MaxID() uint32 {
	return d.sharedCount + d.subjectCount + d.objectCount
}

// IDToString decodes an entity or predicate id back to its term text. The
// caller selects which space to consult via role; for entity ids the
// partition (shared/subject-only/object-only) is inferred from the id's
// numeric range, which is why subject and object share one role-agnostic
// lookup here.
func (d *Dictionary) IDToString(id uint32, role Pos) (string, error) {
	if role == PosPredicate {
		if id == 0 || id > d.predicateCount {
			return "", fmt.Errorf("dictionary: predicate id %d out of range [1,%d]", id, d.predicateCount)
		}
		return d.id2predicate[id-1], nil
	}
	switch {
	case id >= 1 && id <= d.sharedCount:
		return d.id2shared[id-1], nil
	case id > d.sharedCount && id <= d.sharedCount+d.subjectCount:
		return d.id2subjectOnly[id-d.sharedCount-1], nil
	case id > d.sharedCount+d.subjectCount && id <= d.MaxID():
		return d.id2objectOnly[id-d.sharedCount-d.subjectCount-1], nil
	default:
		return "", fmt.Errorf("dictionary: entity id %d out of range [1,%d]", id, d.MaxID())
	}
}

// StringToID looks up a term's id under the given role. Returns 0 (the
// sentinel "no match") if the term is absent — per spec §4.2 this is not an
// error, it signals the caller to treat the lookup as an empty intersection.
func (d *Dictionary) StringToID(s string, role Pos) uint32 {
	switch role {
	case PosPredicate:
		return d.predicate2id[s]
	case PosSubject:
		if id, ok := d.shared2id[s]; ok {
			return id
		}
		return d.subjectOnly2id[s]
	case PosObject:
		if id, ok := d.shared2id[s]; ok {
			return id
		}
		return d.objectOnly2id[s]
	default:
		return 0
	}
}

// IsShared reports whether id falls in the shared partition.
func (d *Dictionary) IsShared(id uint32) bool {
	return id >= 1 && id <= d.sharedCount
}
