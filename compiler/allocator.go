package compiler

import (
	"fmt"

	"github.com/colang/co/pkg/bytecode"
)

// AddressAllocator hands out virtual addresses within one segment, one
// counter per type band. A recycling allocator (used for temporaries) also
// takes addresses back and reuses them.
type AddressAllocator struct {
	segment   bytecode.Segment
	recycling bool
	counters  bytecode.BandCounts
	high      bytecode.BandCounts
	freed     [bytecode.NumBands]map[int]struct{}
}

// NewAllocator returns a monotonic allocator for segment.
func NewAllocator(segment bytecode.Segment) *AddressAllocator {
	return &AddressAllocator{segment: segment}
}

// NewTempAllocator returns a recycling allocator for the temp segment.
func NewTempAllocator() *AddressAllocator {
	a := &AddressAllocator{segment: bytecode.SegmentTemp, recycling: true}
	for i := range a.freed {
		a.freed[i] = make(map[int]struct{})
	}
	return a
}

// Segment returns the segment this allocator serves.
func (a *AddressAllocator) Segment() bytecode.Segment {
	return a.segment
}

// Next returns a fresh address in the band of t. A recycling allocator
// prefers the lowest freed address of that band.
func (a *AddressAllocator) Next(t bytecode.DataType) (int, error) {
	band, ok := t.Band()
	if !ok {
		return bytecode.NoAddress, fmt.Errorf("no storage band for type %s", t)
	}

	if a.recycling && len(a.freed[band]) > 0 {
		lowest := -1
		for off := range a.freed[band] {
			if lowest < 0 || off < lowest {
				lowest = off
			}
		}
		delete(a.freed[band], lowest)
		return bytecode.Address(a.segment, band, lowest), nil
	}

	off := a.counters[band]
	if off >= bytecode.BandSize {
		return bytecode.NoAddress, fmt.Errorf("%s %s band exhausted (%d slots)", a.segment, band, bytecode.BandSize)
	}
	a.counters[band]++
	if a.counters[band] > a.high[band] {
		a.high[band] = a.counters[band]
	}
	return bytecode.Address(a.segment, band, off), nil
}

// Recycle returns addr to the pool. Addresses outside this allocator's
// segment, never handed out, or already free are ignored, so callers may
// recycle every operand without checking where it came from.
func (a *AddressAllocator) Recycle(addr int) {
	if !a.recycling {
		return
	}
	seg, band, err := bytecode.Classify(addr)
	if err != nil || seg != a.segment {
		return
	}
	off := bytecode.Offset(addr)
	if off >= a.counters[band] {
		return
	}
	if _, free := a.freed[band][off]; free {
		return
	}

	if off != a.counters[band]-1 {
		a.freed[band][off] = struct{}{}
		return
	}
	a.counters[band]--
	// Fold freed addresses that now sit at the top back into the counter.
	for a.counters[band] > 0 {
		top := a.counters[band] - 1
		if _, free := a.freed[band][top]; !free {
			break
		}
		delete(a.freed[band], top)
		a.counters[band]--
	}
}

// Live returns the number of addresses currently handed out in band.
func (a *AddressAllocator) Live(band bytecode.Band) int {
	n := a.counters[band]
	if a.recycling {
		n -= len(a.freed[band])
	}
	return n
}

// HighWater returns the largest number of slots ever in use, per band.
func (a *AddressAllocator) HighWater() bytecode.BandCounts {
	return a.high
}
