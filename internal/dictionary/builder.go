package dictionary

// Builder performs the build-time, single-pass-then-remap encoding
// described in spec.md §4.2 and §9 "Dictionary id-remap pass": terms are
// assigned provisional ids as they're first seen, a term is promoted from
// subject-only or object-only to shared the moment it's observed in both
// roles, and once the full input has been scanned, Finalize assigns the
// final shared-first/subject-only/object-only sequential ids and returns a
// remap table from every provisional id ever handed out to its final id.
type Builder struct {
	allTerms   map[string]uint32 // term -> provisional id (stable once assigned)
	provToTerm []string          // index provID-1 -> term

	subjectOnly map[string]bool
	objectOnly  map[string]bool
	shared      map[string]bool

	predicate2id map[string]uint32
	predOrder    []string

	tripleCount uint32
}

// NewBuilder returns an empty dictionary builder.
func NewBuilder() *Builder {
	return &Builder{
		allTerms:     make(map[string]uint32),
		subjectOnly:  make(map[string]bool),
		objectOnly:   make(map[string]bool),
		shared:       make(map[string]bool),
		predicate2id: make(map[string]uint32),
	}
}

func (b *Builder) provisionalID(term string) uint32 {
	if id, ok := b.allTerms[term]; ok {
		return id
	}
	b.provToTerm = append(b.provToTerm, term)
	id := uint32(len(b.provToTerm))
	b.allTerms[term] = id
	return id
}

// InternSubject assigns (or reuses) a provisional id for term in subject
// position, promoting it to shared if it was previously seen as an object.
func (b *Builder) InternSubject(term string) uint32 {
	id := b.provisionalID(term)
	if b.shared[term] {
		return id
	}
	if b.objectOnly[term] {
		delete(b.objectOnly, term)
		b.shared[term] = true
		return id
	}
	b.subjectOnly[term] = true
	return id
}

// InternObject is the symmetric counterpart of InternSubject.
func (b *Builder) InternObject(term string) uint32 {
	id := b.provisionalID(term)
	if b.shared[term] {
		return id
	}
	if b.subjectOnly[term] {
		delete(b.subjectOnly, term)
		b.shared[term] = true
		return id
	}
	b.objectOnly[term] = true
	return id
}

// InternPredicate assigns a final, sequential predicate id immediately —
// the predicate space is disjoint from the entity space and needs no
// promotion or remap.
func (b *Builder) InternPredicate(term string) uint32 {
	if id, ok := b.predicate2id[term]; ok {
		return id
	}
	id := uint32(len(b.predOrder)) + 1
	b.predicate2id[term] = id
	b.predOrder = append(b.predOrder, term)
	return id
}

// CountTriple records one more observed (possibly duplicate) input triple;
// the duplicate-tolerant count is what's persisted as dict_info's triple
// count (spec §4.4 step 1: "duplicates across lines are tolerated").
func (b *Builder) CountTriple() {
	b.tripleCount++
}

// Remap is the result of Finalize: translate a provisional entity id
// (returned earlier by InternSubject/InternObject) to its final id.
type Remap struct {
	table []uint32 // index provID -> final id, 1-based (index 0 unused)
}

// Final translates a provisional id to its final id.
func (r Remap) Final(provID uint32) uint32 {
	if provID == 0 || int(provID) >= len(r.table) {
		return 0
	}
	return r.table[provID]
}

// Finalize assigns final sequential ids (shared first, then subject-only,
// then object-only, each in discovery order) and returns both the query-time
// Dictionary and the provisional->final Remap needed to rewrite the
// in-memory pso map built during streaming.
func (b *Builder) Finalize() (*Dictionary, Remap) {
	var sharedTerms, subjectTerms, objectTerms []string
	for _, term := range b.provToTerm {
		switch {
		case b.shared[term]:
			sharedTerms = append(sharedTerms, term)
		case b.subjectOnly[term]:
			subjectTerms = append(subjectTerms, term)
		case b.objectOnly[term]:
			objectTerms = append(objectTerms, term)
		}
	}

	remapTable := make([]uint32, len(b.provToTerm)+1)
	shared2id := make(map[string]uint32, len(sharedTerms))
	subjectOnly2id := make(map[string]uint32, len(subjectTerms))
	objectOnly2id := make(map[string]uint32, len(objectTerms))

	var finalID uint32
	for _, term := range sharedTerms {
		finalID++
		shared2id[term] = finalID
		remapTable[b.allTerms[term]] = finalID
	}
	for _, term := range subjectTerms {
		finalID++
		subjectOnly2id[term] = finalID
		remapTable[b.allTerms[term]] = finalID
	}
	for _, term := range objectTerms {
		finalID++
		objectOnly2id[term] = finalID
		remapTable[b.allTerms[term]] = finalID
	}

	id2predicate := make([]string, len(b.predOrder))
	copy(id2predicate, b.predOrder)

	dict := &Dictionary{
		sharedCount:    uint32(len(sharedTerms)),
		subjectCount:   uint32(len(subjectTerms)),
		objectCount:    uint32(len(objectTerms)),
		predicateCount: uint32(len(b.predOrder)),
		tripleCount:    b.tripleCount,

		id2shared:      sharedTerms,
		id2subjectOnly: subjectTerms,
		id2objectOnly:  objectTerms,
		id2predicate:   id2predicate,

		shared2id:      shared2id,
		subjectOnly2id: subjectOnly2id,
		objectOnly2id:  objectOnly2id,
		predicate2id:   b.predicate2id,
	}
	return dict, Remap{table: remapTable}
}
