package serdes

import (
	"fmt"
	"math"
)

// Word is the element type of a buffer.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Unbounded asks WordsN and StoreWords to use the full capacity of the slice.
const Unbounded = math.MaxInt

type store interface {
	elementBits() uint
	elements() int
	put(off uint64, n uint, v uint64)
	get(off uint64, n uint) uint64
}

type words[W Word] []W

func (w words[W]) elementBits() uint                { return wordBits[W]() }
func (w words[W]) elements() int                    { return len(w) }
func (w words[W]) put(off uint64, n uint, v uint64) { putWords([]W(w), off, n, v) }
func (w words[W]) get(off uint64, n uint) uint64    { return getWords([]W(w), off, n) }

// Buffer is a non-owning view of caller memory. The zero Buffer has no capacity.
type Buffer struct {
	s store
}

// Bytes views b as a byte buffer.
func Bytes(b []byte) Buffer {
	return Words(b)
}

// Words views every element of s.
func Words[W Word](s []W) Buffer {
	return Buffer{s: words[W](s)}
}

// WordsN views the first maxElements elements of s, extending into spare slice
// capacity when needed. Unbounded views all of cap(s). Negative counts yield an
// empty view.
func WordsN[W Word](s []W, maxElements int) Buffer {
	switch {
	case maxElements < 0:
		maxElements = 0
	case maxElements > cap(s):
		maxElements = cap(s)
	}
	return Buffer{s: words[W](s[:maxElements])}
}

func (b Buffer) ElementBits() uint {
	if b.s == nil {
		return 8
	}
	return b.s.elementBits()
}

// Elements is the number of buffer elements in view.
func (b Buffer) Elements() int {
	if b.s == nil {
		return 0
	}
	return b.s.elements()
}

// Size is the view size in bytes.
func (b Buffer) Size() int {
	return b.Elements() * int(b.ElementBits()/8)
}

func (b Buffer) BitCapacity() uint64 {
	return uint64(b.Elements()) * uint64(b.ElementBits())
}

// AppendBytes appends n bytes starting at byte start to dst, rendering each
// element most significant byte first. The range is clamped to the view.
func (b Buffer) AppendBytes(dst []byte, start, n int) []byte {
	size := b.Size()
	if start < 0 || start >= size || n <= 0 {
		return dst
	}
	if n > size-start {
		n = size - start
	}
	for i := start; i < start+n; i++ {
		dst = append(dst, byte(b.s.get(uint64(i)*8, 8)))
	}
	return dst
}

func (b Buffer) String() string {
	return fmt.Sprintf("Buffer{elements=%d element_bits=%d}", b.Elements(), b.ElementBits())
}

// SizedPointer pairs a typed slice with the number of elements that are in use.
type SizedPointer[W Word] struct {
	Value []W
	Size  int
}

// Sized wraps a fixed-size block.
func Sized[W Word](v []W) SizedPointer[W] {
	return SizedPointer[W]{Value: v, Size: len(v)}
}

// NewSizedPointer wraps v with an explicit element count, clamped to cap(v).
func NewSizedPointer[W Word](v []W, n int) SizedPointer[W] {
	if n < 0 {
		n = 0
	}
	if n > cap(v) {
		n = cap(v)
	}
	return SizedPointer[W]{Value: v[:n], Size: n}
}

func (sp SizedPointer[W]) BitCapacity() uint64 {
	return uint64(sp.Size) * uint64(wordBits[W]())
}

func (sp SizedPointer[W]) Buffer() Buffer {
	return WordsN(sp.Value, sp.Size)
}
