package bytecode

import (
	"errors"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer(0)

	if b.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", b.Cap(), DefaultCapacity)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if b.Count() != 0 {
		t.Errorf("Count() = %d, want 0", b.Count())
	}
}

func TestBufferAppend(t *testing.T) {
	b := NewBuffer(64)

	if err := b.Append(Inst(0x20, 0x00)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}

	if err := b.Append(Inst(0x04, 0x03, 0x00, 0x00, 0x00, 0x2A)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if b.Len() != 8 {
		t.Errorf("Len() = %d, want 8", b.Len())
	}
	if b.Count() != 2 {
		t.Errorf("Count() = %d, want 2", b.Count())
	}
}

// The write position must never pass the allocated capacity, no matter how
// the appends are sized.
func TestBufferWritePosInvariant(t *testing.T) {
	b := NewBuffer(4)

	for i := 0; i < 500; i++ {
		in := Inst(byte(i), 0x00, make([]byte, i%13)...)
		if err := b.Append(in); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if b.Len() > b.Cap() {
			t.Fatalf("after append %d: Len() %d exceeds Cap() %d", i, b.Len(), b.Cap())
		}
	}
}

// Appending N instructions and finalizing must yield exactly those N
// instructions regardless of how many growth events happened.
func TestBufferGrowthInvariance(t *testing.T) {
	small := NewBuffer(2) // forces many expansions
	big := NewBuffer(1 << 16)

	const n = 300
	for i := 0; i < n; i++ {
		in := Inst(0x04, 0x03, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
		if err := small.Append(in); err != nil {
			t.Fatalf("small append %d: %v", i, err)
		}
		if err := big.Append(in); err != nil {
			t.Fatalf("big append %d: %v", i, err)
		}
	}

	ps := small.Finalize()
	pb := big.Finalize()

	if len(ps.Instructions()) != n {
		t.Errorf("small instruction count = %d, want %d", len(ps.Instructions()), n)
	}
	if !ps.Equal(pb) {
		t.Error("programs differ depending on growth history")
	}
}

// A jump target recorded before growth must decode to the same logical
// offset afterwards.
func TestBufferJumpRelocation(t *testing.T) {
	b := NewBuffer(8)

	if err := b.Append(Jump(0x1D, 0x00, 0)); err != nil {
		t.Fatalf("Append jump: %v", err)
	}
	// Fill until several growths have occurred.
	for i := 0; i < 100; i++ {
		if err := b.Append(Inst(0x2D, 0x00)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	target := uint32(b.Len())
	if err := b.Append(Inst(0x20, 0x00)); err != nil {
		t.Fatalf("Append retn: %v", err)
	}
	if err := b.PatchJump(0, target); err != nil {
		t.Fatalf("PatchJump: %v", err)
	}

	p := b.Finalize()
	in := p.Instructions()[0]
	if !in.IsJump() {
		t.Fatal("instruction 0 lost its jump marker")
	}
	if uint32(in.JumpTarget) != target {
		t.Errorf("JumpTarget = %d, want %d", in.JumpTarget, target)
	}
	// Encoded operand must agree with the record.
	code := p.Bytes()
	got := uint32(code[2])<<24 | uint32(code[3])<<16 | uint32(code[4])<<8 | uint32(code[5])
	if got != target {
		t.Errorf("encoded target = %d, want %d", got, target)
	}
}

func TestBufferPatchJumpErrors(t *testing.T) {
	b := NewBuffer(64)
	if err := b.Append(Inst(0x20, 0x00)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := b.PatchJump(5, 0); err == nil {
		t.Error("PatchJump out of range did not fail")
	}
	if err := b.PatchJump(0, 0); err == nil {
		t.Error("PatchJump on non-jump did not fail")
	}
}

func TestBufferOutOfMemory(t *testing.T) {
	b := NewBuffer(4)
	b.SetMaxCapacity(8)

	if err := b.Append(Inst(0x01, 0x01, 1, 2, 3, 4)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	lenBefore := b.Len()
	countBefore := b.Count()

	err := b.Append(Inst(0x01, 0x01, 1, 2, 3, 4))
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	// Last valid state preserved.
	if b.Len() != lenBefore {
		t.Errorf("Len() changed on failed append: %d -> %d", lenBefore, b.Len())
	}
	if b.Count() != countBefore {
		t.Errorf("Count() changed on failed append: %d -> %d", countBefore, b.Count())
	}
}

func TestBufferFinalizeTruncates(t *testing.T) {
	b := NewBuffer(1024)
	if err := b.Append(Inst(0x20, 0x00)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	b.SetEntry(0)

	p := b.Finalize()
	if p.Len() != 2 {
		t.Errorf("program Len() = %d, want 2", p.Len())
	}

	// Buffer is frozen afterwards.
	if err := b.Append(Inst(0x20, 0x00)); !errors.Is(err, ErrFinalized) {
		t.Errorf("Append after Finalize: err = %v, want ErrFinalized", err)
	}
	if err := b.PatchJump(0, 0); !errors.Is(err, ErrFinalized) {
		t.Errorf("PatchJump after Finalize: err = %v, want ErrFinalized", err)
	}
}
