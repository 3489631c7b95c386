// Package leapfrog implements the leapfrog-triejoin multi-way sorted-set
// intersection primitive, per spec.md §4.8. Grounded on
// original_source/src/engine/query/leapfrog_join.hpp.
package leapfrog

import "sort"

// cursor walks one input sequence.
type cursor struct {
	seq []uint32
	pos int
}

func (c *cursor) atEnd() bool { return c.pos >= len(c.seq) }
func (c *cursor) value() uint32 { return c.seq[c.pos] }

// seek advances c to the first element >= target, using a galloping stride
// of two followed by a binary search over the remaining range — matches the
// "exponential-and-then-binary, stride two" behaviour spec §4.8 allows.
func (c *cursor) seek(target uint32) {
	if c.atEnd() || c.seq[c.pos] >= target {
		return
	}
	lo := c.pos
	step := 2
	hi := lo + 1
	for hi < len(c.seq) && c.seq[hi] < target {
		lo = hi
		hi += step
		step *= 2
	}
	if hi > len(c.seq) {
		hi = len(c.seq)
	}
	c.pos = lo + sort.Search(hi-lo, func(i int) bool { return c.seq[lo+i] >= target })
}

// Intersect computes the sorted set intersection of the given ascending
// sequences. Returns an empty (non-nil) slice if any input is empty. A
// single input is returned as a copy, per spec §4.8's edge cases.
func Intersect(seqs [][]uint32) []uint32 {
	for _, s := range seqs {
		if len(s) == 0 {
			return []uint32{}
		}
	}
	if len(seqs) == 0 {
		return []uint32{}
	}
	if len(seqs) == 1 {
		out := make([]uint32, len(seqs[0]))
		copy(out, seqs[0])
		return out
	}

	cursors := make([]*cursor, len(seqs))
	for i, s := range seqs {
		cursors[i] = &cursor{seq: s}
	}
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].value() < cursors[j].value() })

	var result []uint32
	max := cursors[len(cursors)-1].value()
	idx := 0
	for {
		c := cursors[idx]
		if c.value() == max {
			result = append(result, max)
			c.pos++
		} else {
			c.seek(max)
		}
		if c.atEnd() {
			break
		}
		max = c.value()
		idx = (idx + 1) % len(cursors)
	}
	if result == nil {
		result = []uint32{}
	}
	return result
}
