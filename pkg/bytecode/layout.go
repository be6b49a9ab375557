package bytecode

import "fmt"

// Segment identifies the storage class of a virtual address.
type Segment uint8

const (
	SegmentGlobal Segment = iota
	SegmentLocal
	SegmentTemp
	SegmentLiteral
)

var segmentNames = [...]string{"global", "local", "temp", "literal"}

// segmentPrefixes are the one-letter tags used by FormatAddress.
var segmentPrefixes = [...]byte{'g', 'l', 't', 'c'}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", s)
}

// Band identifies the type range of an address within its segment.
type Band uint8

const (
	BandInt Band = iota
	BandFloat
	BandChar
	BandBool
	BandFunc
	BandList
)

// NumBands is the number of type bands per segment.
const NumBands = 6

var bandNames = [NumBands]string{"int", "float", "char", "bool", "func", "list"}

func (b Band) String() string {
	if int(b) < NumBands {
		return bandNames[b]
	}
	return fmt.Sprintf("Band(%d)", b)
}

// Address layout. Every segment holds NumBands bands of BandSize slots.
const (
	BandSize    = 1000
	SegmentSize = BandSize * NumBands

	GlobalBase   = 0
	LocalBase    = GlobalBase + SegmentSize
	TempBase     = LocalBase + SegmentSize
	LiteralBase  = TempBase + SegmentSize
	AddressLimit = LiteralBase + SegmentSize
)

// NoAddress marks an unused operand slot or a nil list link.
const NoAddress = -1

// BandCounts holds one counter per band, indexed by Band.
type BandCounts [NumBands]int

// Total returns the sum of all counters.
func (c BandCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// SegmentBase returns the first address of a segment.
func SegmentBase(s Segment) int {
	return int(s) * SegmentSize
}

// BandBase returns the first address of a band within a segment.
func BandBase(s Segment, b Band) int {
	return SegmentBase(s) + int(b)*BandSize
}

// Address composes a virtual address from its parts.
func Address(s Segment, b Band, offset int) int {
	return BandBase(s, b) + offset
}

// Classify recovers the segment and band of a virtual address.
func Classify(addr int) (Segment, Band, error) {
	if addr < 0 || addr >= AddressLimit {
		return 0, 0, fmt.Errorf("address %d out of range", addr)
	}
	seg := Segment(addr / SegmentSize)
	band := Band((addr % SegmentSize) / BandSize)
	return seg, band, nil
}

// Offset returns the slot index of addr within its band.
func Offset(addr int) int {
	return addr % BandSize
}

// IsFrameAddress reports whether addr lives in a call frame (local or temp).
func IsFrameAddress(addr int) bool {
	return addr >= LocalBase && addr < LiteralBase
}

// FormatAddress renders addr as a short symbolic name such as "g.int[3]"
// or "c.list[0]" (c for constant, the literal segment). Invalid addresses
// render as their number.
func FormatAddress(addr int) string {
	if addr == NoAddress {
		return "_"
	}
	seg, band, err := Classify(addr)
	if err != nil {
		return fmt.Sprintf("%d", addr)
	}
	return fmt.Sprintf("%c.%s[%d]", segmentPrefixes[seg], band, Offset(addr))
}
