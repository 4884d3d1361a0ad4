package instruction

import (
	"testing"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(offset, index int) *Load {
	return &Load{Header: Header{Opcode: bytecode.ILOAD, Offset: offset, LineNumber: 1}, Index: index, Signature: "I"}
}

func iconst(offset int, v int32) *IConst {
	return &IConst{Header: Header{Opcode: bytecode.ICONST_0, Offset: offset, LineNumber: 1}, Value: v}
}

func TestComplexIfInvert(t *testing.T) {
	a := &IfCmp{Header: Header{Opcode: bytecode.IF_ICMPNE, Offset: 2}, Cmp: CmpNE, Left: load(0, 1), Right: iconst(1, 1)}
	b := &If{Header: Header{Opcode: bytecode.IFGE, Offset: 6}, Cmp: CmpGE, Value: load(5, 2)}
	c := &ComplexIf{Header: Header{Opcode: bytecode.COMPLEXIF, Offset: 6}, Cmp: CmpOR, Branches: []Instruction{a, b}}

	c.Invert()
	assert.Equal(t, CmpAND, c.Cmp)
	assert.Equal(t, CmpEQ, a.Cmp)
	assert.Equal(t, CmpLT, b.Cmp)

	c.Invert()
	assert.Equal(t, CmpOR, c.Cmp)
	assert.Equal(t, CmpNE, a.Cmp)
	assert.Equal(t, CmpGE, b.Cmp)
}

func TestTernaryConditionInvert(t *testing.T) {
	b := &If{Header: Header{Opcode: bytecode.IFEQ, Offset: 5}, Cmp: CmpEQ, Value: load(4, 1)}
	c := &If{Header: Header{Opcode: bytecode.IFEQ, Offset: 12}, Cmp: CmpEQ, Value: load(11, 2)}
	op := &TernaryOp{Header: Header{Opcode: bytecode.TERNARYOP, Offset: 8}, Test: load(0, 0), Value1: b, Value2: c}
	cond := &If{Header: Header{Opcode: bytecode.IF, Offset: 12}, Cmp: CmpNE, Value: op}

	cond.Invert()
	assert.Equal(t, CmpNE, cond.Cmp)
	assert.Equal(t, CmpNE, b.Cmp)
	assert.Equal(t, CmpNE, c.Cmp)

	// arms that are not conditions negate the whole value
	plain := &If{Header: Header{Opcode: bytecode.IF, Offset: 12}, Cmp: CmpNE,
		Value: &TernaryOp{Header: Header{Opcode: bytecode.TERNARYOP, Offset: 8}, Test: b, Value1: iconst(6, 1), Value2: iconst(9, 0)}}
	plain.Invert()
	assert.Equal(t, CmpEQ, plain.Cmp)
}

func TestBranchOffsets(t *testing.T) {
	g := &Goto{Header: Header{Opcode: bytecode.GOTO, Offset: 10}, Branch: -4}
	assert.Equal(t, 6, g.JumpOffset())
	g.SetJumpOffset(20)
	assert.Equal(t, 10, g.Branch)
	assert.Equal(t, CmpNone, CmpOf(bytecode.GOTO))
	assert.Equal(t, CmpEQ, CmpOf(bytecode.IFNULL))
	assert.Equal(t, "&&", CmpAND.String())
}

func TestReplaceOperand(t *testing.T) {
	l := load(0, 1)
	sum := &BinaryOp{Header: Header{Opcode: bytecode.IADD, Offset: 2}, Operator: "+", Left: l, Right: iconst(1, 2)}
	store := &Store{Header: Header{Opcode: bytecode.ISTORE, Offset: 3}, Index: 2, Value: sum}

	repl := iconst(0, 7)
	require.True(t, ReplaceOperand(store, l, repl))
	assert.Same(t, repl, sum.Left)
	assert.False(t, ReplaceOperand(store, l, repl))
	assert.True(t, Contains(store, repl))
}

func TestFirstOffsetSkipsDupLoads(t *testing.T) {
	dl := &DupLoad{Header: Header{Opcode: bytecode.DUPLOAD, Offset: 1}, StoreID: 0}
	store := &Store{Header: Header{Opcode: bytecode.ISTORE, Offset: 8}, Value: &BinaryOp{
		Header: Header{Opcode: bytecode.IADD, Offset: 7}, Left: dl, Right: iconst(6, 1),
	}}
	assert.Equal(t, 6, FirstOffset(store))
}

func TestCheckOffsets(t *testing.T) {
	ok := []Instruction{
		&Store{Header: Header{Opcode: bytecode.ISTORE, Offset: 1}, Value: iconst(0, 1)},
		&Return{Header: Header{Opcode: bytecode.RETURN, Offset: 2}},
	}
	require.NoError(t, CheckOffsets(ok))

	shared := iconst(0, 1)
	dup := []Instruction{
		&Store{Header: Header{Opcode: bytecode.ISTORE, Offset: 1}, Value: shared},
		&Pop{Header: Header{Opcode: bytecode.POP, Offset: 2}, Value: iconst(0, 2)},
	}
	assert.Error(t, CheckOffsets(dup))
}

func TestCloneSimple(t *testing.T) {
	orig := load(3, 4)
	c := CloneSimple(orig, 9, 12)
	require.NotNil(t, c)
	assert.NotSame(t, orig, c)
	assert.Equal(t, 9, Offset(c))
	assert.Equal(t, 12, Line(c))
	assert.Equal(t, 3, orig.Offset)
	assert.Equal(t, 4, c.(*Load).Index)

	assert.Nil(t, CloneSimple(&ArrayLength{Array: orig}, 0, 0))
	assert.True(t, IsSimpleValue(&ClassLiteral{}))
	assert.False(t, IsSimpleValue(&Invoke{}))
}

func TestZeroValue(t *testing.T) {
	h := Header{Offset: 5, LineNumber: 2}
	assert.Equal(t, "J", ValueSignature(ZeroValue("J", h)))
	assert.Equal(t, "Z", ValueSignature(ZeroValue("Z", h)))
	z := ZeroValue("Ljava/lang/String;", h)
	_, isNull := z.(*AConstNull)
	assert.True(t, isNull)
	assert.True(t, IsPseudo(z))
}
