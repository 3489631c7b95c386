package sortedrun

import (
	"math/rand"
	"sort"
	"testing"
)

func TestAddSortedNoDuplicates(t *testing.T) {
	var l List
	for _, v := range []uint32{5, 1, 3, 1, 5, 2, 4} {
		l.Add(v)
	}
	got := l.ToSlice()
	want := []uint32{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice() = %v, want %v", got, want)
		}
	}
	if l.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", l.Len(), len(want))
	}
}

func TestSplitsAcrossChunks(t *testing.T) {
	var l List
	n := MaxChunk*2 + 17
	for i := n - 1; i >= 0; i-- {
		l.Add(uint32(i))
	}
	got := l.ToSlice()
	if len(got) != n {
		t.Fatalf("ToSlice() len = %d, want %d", len(got), n)
	}
	for i := 0; i < n; i++ {
		if got[i] != uint32(i) {
			t.Fatalf("ToSlice()[%d] = %d, want %d", i, got[i], i)
		}
	}
}

func TestRandomMatchesStdlibSort(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	seen := map[uint32]bool{}
	var want []uint32
	var l List
	for i := 0; i < 5000; i++ {
		v := uint32(r.Intn(3000))
		l.Add(v)
		if !seen[v] {
			seen[v] = true
			want = append(want, v)
		}
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	got := l.ToSlice()
	if len(got) != len(want) {
		t.Fatalf("len mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}
