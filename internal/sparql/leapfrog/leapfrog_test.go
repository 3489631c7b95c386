package leapfrog

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func TestIntersectBasic(t *testing.T) {
	got := Intersect([][]uint32{
		{1, 2, 3, 4, 5, 6},
		{2, 4, 6, 8},
		{2, 3, 4, 6, 7},
	})
	want := []uint32{2, 4, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Intersect() = %v, want %v", got, want)
	}
}

func TestIntersectEmptyInput(t *testing.T) {
	got := Intersect([][]uint32{{1, 2}, {}})
	if len(got) != 0 {
		t.Fatalf("Intersect() = %v, want empty", got)
	}
}

func TestIntersectSingleSequence(t *testing.T) {
	got := Intersect([][]uint32{{1, 2, 3}})
	want := []uint32{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Intersect() = %v, want %v", got, want)
	}
}

func TestIntersectNoOverlap(t *testing.T) {
	got := Intersect([][]uint32{{1, 2}, {3, 4}})
	if len(got) != 0 {
		t.Fatalf("Intersect() = %v, want empty", got)
	}
}

func TestIntersectAgainstBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		numSeqs := 2 + r.Intn(3)
		seqs := make([][]uint32, numSeqs)
		counts := map[uint32]int{}
		for i := range seqs {
			seen := map[uint32]bool{}
			var s []uint32
			n := r.Intn(20)
			for j := 0; j < n; j++ {
				v := uint32(r.Intn(30))
				if !seen[v] {
					seen[v] = true
					s = append(s, v)
				}
			}
			sort.Slice(s, func(a, b int) bool { return s[a] < s[b] })
			seqs[i] = s
			for _, v := range s {
				counts[v]++
			}
		}
		var want []uint32
		for v, c := range counts {
			if c == numSeqs {
				want = append(want, v)
			}
		}
		sort.Slice(want, func(a, b int) bool { return want[a] < want[b] })
		if want == nil {
			want = []uint32{}
		}

		got := Intersect(seqs)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: Intersect(%v) = %v, want %v", trial, seqs, got, want)
		}
	}
}
