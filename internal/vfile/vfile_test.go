package vfile

import (
	"path/filepath"
	"testing"
)

func TestCreateWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INTS")
	vf, err := Create(path, 4*3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	vf.Set(0, 10)
	vf.Set(1, 20)
	vf.Set(2, 4294967295)
	if err := vf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	vf2, err := Open(path, 4*3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer vf2.Close()

	if got := vf2.Get(0); got != 10 {
		t.Errorf("Get(0) = %d, want 10", got)
	}
	if got := vf2.Get(1); got != 20 {
		t.Errorf("Get(1) = %d, want 20", got)
	}
	if got := vf2.Get(2); got != 4294967295 {
		t.Errorf("Get(2) = %d, want max uint32", got)
	}
}

func TestOutOfBoundsReadReturnsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INTS")
	vf, err := Create(path, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vf.Close()
	vf.Set(0, 99)

	if got := vf.Get(1); got != 0 {
		t.Errorf("Get(1) (OOB) = %d, want 0", got)
	}
	if got := vf.Get(1000); got != 0 {
		t.Errorf("Get(1000) (OOB) = %d, want 0", got)
	}
}

func TestResizeGrows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INTS")
	vf, err := Create(path, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vf.Close()
	vf.Set(0, 1)

	if err := vf.Resize(4 * 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if vf.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", vf.Len())
	}
	if got := vf.Get(0); got != 1 {
		t.Errorf("Get(0) after resize = %d, want 1 (data preserved)", got)
	}
	vf.Set(3, 42)
	if got := vf.Get(3); got != 42 {
		t.Errorf("Get(3) = %d, want 42", got)
	}
}

func TestZeroLengthCreateThenResize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INTS")
	vf, err := Create(path, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vf.Close()
	if vf.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", vf.Len())
	}
	if err := vf.Resize(8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	vf.Set(1, 7)
	if got := vf.Get(1); got != 7 {
		t.Errorf("Get(1) = %d, want 7", got)
	}
}

func TestSlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "INTS")
	vf, err := Create(path, 4*5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer vf.Close()
	for i := uint32(0); i < 5; i++ {
		vf.Set(i, i*10)
	}
	got := vf.Slice(1, 3)
	want := []uint32{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("Slice len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slice[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
