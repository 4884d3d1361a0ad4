package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Assembler builds JVM code arrays. Branch operands are relative to the
// start of the branching instruction.
type Assembler struct {
	code  []byte
	lines [][2]int
	err   error
}

// Label is a jump destination that may be referenced before it is marked.
type Label struct {
	resolved bool
	position int
	refs     []labelRef
}

type labelRef struct {
	base  int // offset of the branching opcode
	at    int // operand position to patch
	width int // 2 or 4 bytes
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{code: make([]byte, 0, 64)}
}

// Pos returns the offset the next instruction will be written at.
func (a *Assembler) Pos() int {
	return len(a.code)
}

// Line records that the next instruction starts source line n.
func (a *Assembler) Line(n int) *Assembler {
	a.lines = append(a.lines, [2]int{len(a.code), n})
	return a
}

// LineTable returns the recorded (start_pc, line) pairs.
func (a *Assembler) LineTable() [][2]int {
	return a.lines
}

// Emit appends an opcode followed by raw operand bytes.
func (a *Assembler) Emit(op byte, operands ...byte) *Assembler {
	a.code = append(a.code, op)
	a.code = append(a.code, operands...)
	return a
}

// EmitU1 appends an opcode with a one-byte operand.
func (a *Assembler) EmitU1(op byte, v int) *Assembler {
	return a.Emit(op, byte(v))
}

// EmitU2 appends an opcode with a big-endian two-byte operand.
func (a *Assembler) EmitU2(op byte, v int) *Assembler {
	return a.Emit(op, byte(v>>8), byte(v))
}

// EmitIInc appends iinc index, delta.
func (a *Assembler) EmitIInc(index, delta int) *Assembler {
	return a.Emit(IINC, byte(index), byte(int8(delta)))
}

// EmitInvokeInterface appends invokeinterface with its count and zero byte.
func (a *Assembler) EmitInvokeInterface(index, count int) *Assembler {
	return a.Emit(INVOKEINTERFACE, byte(index>>8), byte(index), byte(count), 0)
}

// EmitInvokeDynamic appends invokedynamic with its two zero bytes.
func (a *Assembler) EmitInvokeDynamic(index int) *Assembler {
	return a.Emit(INVOKEDYNAMIC, byte(index>>8), byte(index), 0, 0)
}

// NewLabel creates an unresolved label.
func (a *Assembler) NewLabel() *Label {
	return &Label{refs: make([]labelRef, 0, 2)}
}

// Mark resolves label to the current position and patches pending references.
func (a *Assembler) Mark(l *Label) *Assembler {
	if l.resolved {
		a.fail(fmt.Errorf("label already marked at %d", l.position))
		return a
	}
	l.resolved = true
	l.position = len(a.code)
	for _, ref := range l.refs {
		a.patch(ref, l.position)
	}
	l.refs = nil
	return a
}

// EmitJump appends a branch with a two-byte displacement to l.
func (a *Assembler) EmitJump(op byte, l *Label) *Assembler {
	base := len(a.code)
	a.code = append(a.code, op, 0, 0)
	a.reference(l, labelRef{base: base, at: base + 1, width: 2})
	return a
}

// EmitJumpWide appends goto_w or jsr_w to l.
func (a *Assembler) EmitJumpWide(op byte, l *Label) *Assembler {
	base := len(a.code)
	a.code = append(a.code, op, 0, 0, 0, 0)
	a.reference(l, labelRef{base: base, at: base + 1, width: 4})
	return a
}

// EmitTableSwitch appends a tableswitch covering low..low+len(targets)-1.
func (a *Assembler) EmitTableSwitch(low int, dflt *Label, targets ...*Label) *Assembler {
	base := len(a.code)
	a.code = append(a.code, TABLESWITCH)
	a.code = append(a.code, make([]byte, SwitchPadding(base))...)
	a.reference(dflt, labelRef{base: base, at: a.grow4(0), width: 4})
	a.grow4(low)
	a.grow4(low + len(targets) - 1)
	for _, t := range targets {
		a.reference(t, labelRef{base: base, at: a.grow4(0), width: 4})
	}
	return a
}

// EmitLookupSwitch appends a lookupswitch; keys must be sorted.
func (a *Assembler) EmitLookupSwitch(dflt *Label, keys []int, targets []*Label) *Assembler {
	if len(keys) != len(targets) {
		a.fail(fmt.Errorf("lookupswitch: %d keys, %d targets", len(keys), len(targets)))
		return a
	}
	base := len(a.code)
	a.code = append(a.code, LOOKUPSWITCH)
	a.code = append(a.code, make([]byte, SwitchPadding(base))...)
	a.reference(dflt, labelRef{base: base, at: a.grow4(0), width: 4})
	a.grow4(len(keys))
	for i, k := range keys {
		a.grow4(k)
		a.reference(targets[i], labelRef{base: base, at: a.grow4(0), width: 4})
	}
	return a
}

// Bytes returns the assembled code or the first encoding error.
func (a *Assembler) Bytes() ([]byte, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.code, nil
}

// MustBytes is Bytes for test fixtures.
func (a *Assembler) MustBytes() []byte {
	code, err := a.Bytes()
	if err != nil {
		panic(err)
	}
	return code
}

// Check reports labels that are referenced but never marked.
func (a *Assembler) Check(labels ...*Label) error {
	for _, l := range labels {
		if !l.resolved && len(l.refs) > 0 {
			return fmt.Errorf("label referenced at %d was never marked", l.refs[0].base)
		}
	}
	return a.err
}

func (a *Assembler) grow4(v int) int {
	at := len(a.code)
	a.code = binary.BigEndian.AppendUint32(a.code, uint32(int32(v)))
	return at
}

func (a *Assembler) reference(l *Label, ref labelRef) {
	if l.resolved {
		a.patch(ref, l.position)
		return
	}
	l.refs = append(l.refs, ref)
}

func (a *Assembler) patch(ref labelRef, target int) {
	delta := target - ref.base
	if ref.width == 2 {
		if delta < -32768 || delta > 32767 {
			a.fail(fmt.Errorf("branch at %d: displacement %d overflows", ref.base, delta))
			return
		}
		binary.BigEndian.PutUint16(a.code[ref.at:], uint16(int16(delta)))
		return
	}
	binary.BigEndian.PutUint32(a.code[ref.at:], uint32(int32(delta)))
}

func (a *Assembler) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}
