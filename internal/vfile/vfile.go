// Package vfile implements the memory-mapped fixed-stride uint32 array file
// that backs every on-disk index structure.
package vfile

import (
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

const wordSize = 4

// File is a file mapped into memory and viewed as an array of 32-bit
// little-endian unsigned integers. It is safe for concurrent reads once
// opened read-only; it is not safe for concurrent writes.
type File struct {
	path     string
	f        *os.File
	m        mmap.MMap
	writable bool
}

// Create opens path for read-write access, truncating (or extending) it to
// byteLen bytes, and maps it into memory. Any failure is fatal to the
// caller — build-time I/O errors are not recoverable per spec.
func Create(path string, byteLen uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("vfile: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(byteLen)); err != nil {
		f.Close()
		return nil, fmt.Errorf("vfile: truncate %s to %d bytes: %w", path, byteLen, err)
	}
	return mapFile(path, f, true, byteLen)
}

// Open maps an existing file read-only. byteLen must be the declared size
// from the DB_INFO header — the file is not trusted to carry its own length.
func Open(path string, byteLen uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("vfile: open %s: %w", path, err)
	}
	return mapFile(path, f, false, byteLen)
}

func mapFile(path string, f *os.File, writable bool, byteLen uint32) (*File, error) {
	if byteLen == 0 {
		// mmap refuses to map a zero-length region; keep the handle around
		// so Resize can grow it later without reopening.
		return &File{path: path, f: f, writable: writable}, nil
	}
	flag := mmap.RDONLY
	if writable {
		flag = mmap.RDWR
	}
	m, err := mmap.MapRegion(f, int(byteLen), flag, 0, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("vfile: mmap %s: %w", path, err)
	}
	return &File{path: path, f: f, m: m, writable: writable}, nil
}

// Resize adjusts the backing file length to newBytes and remaps it. Only
// valid on a writable File.
func (vf *File) Resize(newBytes uint32) error {
	if !vf.writable {
		return fmt.Errorf("vfile: Resize on read-only file %s", vf.path)
	}
	if vf.m != nil {
		if err := vf.m.Unmap(); err != nil {
			return fmt.Errorf("vfile: unmap %s before resize: %w", vf.path, err)
		}
		vf.m = nil
	}
	if err := vf.f.Truncate(int64(newBytes)); err != nil {
		return fmt.Errorf("vfile: truncate %s to %d bytes: %w", vf.path, newBytes, err)
	}
	if newBytes == 0 {
		return nil
	}
	m, err := mmap.MapRegion(vf.f, int(newBytes), mmap.RDWR, 0, 0)
	if err != nil {
		return fmt.Errorf("vfile: remap %s: %w", vf.path, err)
	}
	vf.m = m
	return nil
}

// Len returns the number of uint32 words currently mapped.
func (vf *File) Len() int {
	if vf.m == nil {
		return 0
	}
	return len(vf.m) / wordSize
}

// ByteLen returns the mapped byte length.
func (vf *File) ByteLen() int {
	if vf.m == nil {
		return 0
	}
	return len(vf.m)
}

// Get returns the uint32 at word index i. Out-of-bounds reads return 0
// rather than panicking — this matches the source's sentinel-zero-on-OOB
// behaviour. internal/index bounds its reads with the DB_INFO lengths and
// does not depend on it.
func (vf *File) Get(i uint32) uint32 {
	off := int(i) * wordSize
	if vf.m == nil || off < 0 || off+wordSize > len(vf.m) {
		return 0
	}
	return uint32(vf.m[off]) | uint32(vf.m[off+1])<<8 | uint32(vf.m[off+2])<<16 | uint32(vf.m[off+3])<<24
}

// Set writes v at word index i. Panics on out-of-bounds, since the builder
// always writes within pre-allocated ranges and a write past the end is a
// builder bug, not an expected probe miss.
func (vf *File) Set(i uint32, v uint32) {
	off := int(i) * wordSize
	if off < 0 || off+wordSize > len(vf.m) {
		panic(fmt.Sprintf("vfile: Set(%d) out of bounds for %s (%d words mapped)", i, vf.path, vf.Len()))
	}
	vf.m[off] = byte(v)
	vf.m[off+1] = byte(v >> 8)
	vf.m[off+2] = byte(v >> 16)
	vf.m[off+3] = byte(v >> 24)
}

// Slice returns the range [start,start+n) as a freshly decoded []uint32.
// Used by the index retriever's pre-load step and by adjacency reads.
func (vf *File) Slice(start, n uint32) []uint32 {
	out := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		out[i] = vf.Get(start + i)
	}
	return out
}

// Close flushes dirty pages and releases the mapping.
func (vf *File) Close() error {
	var err error
	if vf.m != nil {
		if e := vf.m.Flush(); e != nil {
			err = e
		}
		if e := vf.m.Unmap(); e != nil && err == nil {
			err = e
		}
	}
	if e := vf.f.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return fmt.Errorf("vfile: close %s: %w", vf.path, err)
	}
	return nil
}
