// Package sortedrun implements the linked chain of bounded sorted vectors
// used during index build to accumulate per-(predicate,entity) adjacency in
// sorted order, per spec.md §4.3. Grounded on
// original_source/src/engine/store/linked_array.hpp.
package sortedrun

import "sort"

// MaxChunk bounds the number of elements held by a single node before it
// splits. ~20,000 matches the original's MAX_SIZE.
const MaxChunk = 20000

type node struct {
	elems []uint32
	next  *node
}

// List is a linked chain of bounded sorted nodes. The zero value is an
// empty, ready-to-use list.
type List struct {
	head *node
	size int
}

// Add inserts v in sorted position, deduplicating equal values, splitting
// whichever node fills to MaxChunk by moving its upper half into a new node
// spliced in right after it.
func (l *List) Add(v uint32) {
	if l.head == nil {
		l.head = &node{elems: make([]uint32, 0, MaxChunk/2)}
	}

	cur := l.head
	for {
		if len(cur.elems) == 0 || cur.elems[len(cur.elems)-1] >= v {
			inserted := insertSorted(cur, v)
			if inserted {
				l.size++
				l.maybeSplit(cur)
			}
			return
		}
		if cur.next == nil {
			break
		}
		cur = cur.next
	}
	// v is larger than every element seen so far: append to the tail node.
	cur.elems = append(cur.elems, v)
	l.size++
	l.maybeSplit(cur)
}

func insertSorted(n *node, v uint32) bool {
	if len(n.elems) == 0 {
		n.elems = append(n.elems, v)
		return true
	}
	i := sort.Search(len(n.elems), func(i int) bool { return n.elems[i] >= v })
	if i < len(n.elems) && n.elems[i] == v {
		return false
	}
	n.elems = append(n.elems, 0)
	copy(n.elems[i+1:], n.elems[i:])
	n.elems[i] = v
	return true
}

func (l *List) maybeSplit(n *node) {
	if len(n.elems) != MaxChunk {
		return
	}
	mid := len(n.elems) / 2
	newNode := &node{next: n.next}
	newNode.elems = append(newNode.elems, n.elems[mid:]...)
	n.elems = n.elems[:mid:mid]
	n.next = newNode
}

// Len returns the number of distinct elements stored.
func (l *List) Len() int { return l.size }

// ToSlice flattens the list into one contiguous sorted slice. The nodes
// themselves are already individually sorted and chained in ascending
// order, so this is a straight concatenation.
func (l *List) ToSlice() []uint32 {
	out := make([]uint32, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.elems...)
	}
	return out
}
