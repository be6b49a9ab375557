package bytecode

import "testing"

func TestInstructionQueuePush(t *testing.T) {
	q := NewInstructionQueue()
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}

	i0 := q.Emit(OpAdd, 1, 2, 3)
	i1 := q.Emit(OpPrint, 3, NoAddress, NoAddress)
	if i0 != 0 || i1 != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", i0, i1)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if got := q.At(0); got != Quad(OpAdd, 1, 2, 3) {
		t.Errorf("At(0) = %+v", got)
	}
}

func TestFillResultPatchesOnlyJumps(t *testing.T) {
	q := NewInstructionQueue()
	jf := q.Emit(OpGoToFalse, 5, NoAddress, NoAddress)
	add := q.Emit(OpAdd, 1, 2, 3)
	g := q.Emit(OpGoTo, NoAddress, NoAddress, NoAddress)

	if err := q.FillResult(jf, 3); err != nil {
		t.Fatalf("FillResult(goToFalse): %v", err)
	}
	if err := q.FillResult(g, 3); err != nil {
		t.Fatalf("FillResult(goTo): %v", err)
	}
	if err := q.FillResult(add, 0); err == nil {
		t.Errorf("FillResult on a non-jump should fail")
	}
	if err := q.FillResult(10, 0); err == nil {
		t.Errorf("FillResult out of range should fail")
	}

	if got := q.At(jf).Result; got != 3 {
		t.Errorf("goToFalse target = %d, want 3", got)
	}
	if got := q.At(add); got != Quad(OpAdd, 1, 2, 3) {
		t.Errorf("non-jump was modified: %+v", got)
	}
}

func TestQuadruplesReturnsCopy(t *testing.T) {
	q := NewInstructionQueue()
	q.Emit(OpGoTo, NoAddress, NoAddress, 0)
	out := q.Quadruples()
	out[0].Result = 99
	if q.At(0).Result != 0 {
		t.Errorf("Quadruples() aliased the queue")
	}
}
