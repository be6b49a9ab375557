package bytecode

import "testing"

func TestClassifyRoundTrip(t *testing.T) {
	segments := []Segment{SegmentGlobal, SegmentLocal, SegmentTemp, SegmentLiteral}
	for _, seg := range segments {
		for b := Band(0); b < NumBands; b++ {
			for _, off := range []int{0, 1, BandSize - 1} {
				addr := Address(seg, b, off)
				gotSeg, gotBand, err := Classify(addr)
				if err != nil {
					t.Fatalf("Classify(%d): %v", addr, err)
				}
				if gotSeg != seg || gotBand != b {
					t.Errorf("Classify(%d) = %s.%s, want %s.%s", addr, gotSeg, gotBand, seg, b)
				}
				if Offset(addr) != off {
					t.Errorf("Offset(%d) = %d, want %d", addr, Offset(addr), off)
				}
			}
		}
	}
}

func TestClassifyOutOfRange(t *testing.T) {
	for _, addr := range []int{-1, AddressLimit, AddressLimit + 5} {
		if _, _, err := Classify(addr); err == nil {
			t.Errorf("Classify(%d) should fail", addr)
		}
	}
}

func TestSegmentBases(t *testing.T) {
	tests := []struct {
		seg  Segment
		want int
	}{
		{SegmentGlobal, 0},
		{SegmentLocal, 6000},
		{SegmentTemp, 12000},
		{SegmentLiteral, 18000},
	}
	for _, tc := range tests {
		if got := SegmentBase(tc.seg); got != tc.want {
			t.Errorf("SegmentBase(%s) = %d, want %d", tc.seg, got, tc.want)
		}
	}
}

func TestIsFrameAddress(t *testing.T) {
	tests := []struct {
		addr int
		want bool
	}{
		{Address(SegmentGlobal, BandInt, 0), false},
		{Address(SegmentLocal, BandInt, 0), true},
		{Address(SegmentTemp, BandList, 999), true},
		{Address(SegmentLiteral, BandInt, 0), false},
	}
	for _, tc := range tests {
		if got := IsFrameAddress(tc.addr); got != tc.want {
			t.Errorf("IsFrameAddress(%d) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		addr int
		want string
	}{
		{NoAddress, "_"},
		{Address(SegmentGlobal, BandInt, 3), "g.int[3]"},
		{Address(SegmentTemp, BandFloat, 0), "t.float[0]"},
		{Address(SegmentLiteral, BandList, 1), "c.list[1]"},
		{Address(SegmentLocal, BandFunc, 2), "l.func[2]"},
		{99999, "99999"},
	}
	for _, tc := range tests {
		if got := FormatAddress(tc.addr); got != tc.want {
			t.Errorf("FormatAddress(%d) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}
