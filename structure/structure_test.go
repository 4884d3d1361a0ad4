package structure

import (
	"testing"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hdr(op, off int) instruction.Header {
	return instruction.Header{Opcode: op, Offset: off, LineNumber: 1}
}

func load(off, index int) *instruction.Load {
	return &instruction.Load{Header: hdr(bytecode.ILOAD, off), Index: index, Signature: "I"}
}

func ifeq(off, target int, v instruction.Instruction) *instruction.If {
	return &instruction.If{Header: hdr(bytecode.IFEQ, off), Cmp: instruction.CmpEQ, Value: v, Branch: target - off}
}

func iflt(off, target int) *instruction.IfCmp {
	return &instruction.IfCmp{
		Header: hdr(bytecode.IF_ICMPLT, off), Cmp: instruction.CmpLT,
		Left: load(off-3, 0), Right: &instruction.IConst{Header: hdr(bytecode.BIPUSH, off-2), Value: 10},
		Branch: target - off,
	}
}

func jump(off, target int) *instruction.Goto {
	return &instruction.Goto{Header: hdr(bytecode.GOTO, off), Branch: target - off}
}

func inc(off int) *instruction.IInc {
	return &instruction.IInc{Header: hdr(bytecode.IINC, off), Index: 0, Count: 1}
}

func store(off, index int, v int32) *instruction.Store {
	return &instruction.Store{
		Header: hdr(bytecode.ISTORE, off), Index: index, Signature: "I",
		Value: &instruction.IConst{Header: hdr(bytecode.ICONST_0, off-1), Value: v},
	}
}

func ret(off int) *instruction.Return {
	return &instruction.Return{Header: hdr(bytecode.RETURN, off)}
}

func TestBottomTestWhile(t *testing.T) {
	// 0 goto 6; 3 iinc; 6 iload_0; 7 bipush 10; 9 if_icmplt 3; 12 return
	cond := iflt(9, 3)
	list := []instruction.Instruction{jump(0, 6), inc(3), cond, ret(12)}
	out := Statements(list, 13)
	require.Len(t, out, 2)
	w, ok := out[0].(*instruction.WhileStatement)
	require.True(t, ok)
	assert.Same(t, cond, w.Condition)
	assert.Equal(t, instruction.CmpLT, cond.Cmp)
	require.Len(t, w.Body, 1)
	assert.IsType(t, &instruction.IInc{}, w.Body[0])
	assert.Equal(t, bytecode.WHILESTATEMENT, w.Opcode)
}

func TestTopTestWhile(t *testing.T) {
	// 0 iload_0; 1 ifeq 10; 4 iinc; 7 goto 0; 10 return
	cond := ifeq(1, 10, load(0, 0))
	list := []instruction.Instruction{cond, inc(4), jump(7, 0), ret(10)}
	out := Statements(list, 11)
	require.Len(t, out, 2)
	w, ok := out[0].(*instruction.WhileStatement)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpNE, cond.Cmp)
	require.Len(t, w.Body, 1)
	assert.IsType(t, &instruction.IInc{}, w.Body[0])
}

func TestDoWhile(t *testing.T) {
	// 0 iinc; 3 iload_0; 4 bipush 10; 6 if_icmplt 0; 9 return
	cond := iflt(6, 0)
	list := []instruction.Instruction{inc(0), cond, ret(9)}
	out := Statements(list, 10)
	require.Len(t, out, 2)
	dw, ok := out[0].(*instruction.DoWhileStatement)
	require.True(t, ok)
	assert.Same(t, cond, dw.Condition)
	require.Len(t, dw.Body, 1)
}

func TestInfiniteLoop(t *testing.T) {
	list := []instruction.Instruction{inc(0), jump(3, 0)}
	out := Statements(list, 6)
	require.Len(t, out, 1)
	w, ok := out[0].(*instruction.WhileStatement)
	require.True(t, ok)
	assert.Nil(t, w.Condition)
	require.Len(t, w.Body, 1)
}

func TestIfElse(t *testing.T) {
	// 0 iload_0; 1 ifeq 9; 4 iconst_1; 5 istore_1; 6 goto 11; 9 iconst_2; 10 istore_1; 11 return
	cond := ifeq(1, 9, load(0, 0))
	list := []instruction.Instruction{cond, store(5, 1, 1), jump(6, 11), store(10, 1, 2), ret(11)}
	out := Statements(list, 12)
	require.Len(t, out, 2)
	ie, ok := out[0].(*instruction.IfElseStatement)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpNE, cond.Cmp)
	require.Len(t, ie.Then, 1)
	require.Len(t, ie.Else, 1)
	assert.Equal(t, int32(1), ie.Then[0].(*instruction.Store).Value.(*instruction.IConst).Value)
	assert.Equal(t, int32(2), ie.Else[0].(*instruction.Store).Value.(*instruction.IConst).Value)
}

func TestNestedIf(t *testing.T) {
	// if (a) { if (b) x = 1; } return
	outer := ifeq(1, 10, load(0, 0))
	inner := ifeq(5, 10, load(4, 1))
	list := []instruction.Instruction{outer, inner, store(9, 2, 1), ret(10)}
	out := Statements(list, 11)
	require.Len(t, out, 2)
	o, ok := out[0].(*instruction.IfStatement)
	require.True(t, ok)
	require.Len(t, o.Then, 1)
	i, ok := o.Then[0].(*instruction.IfStatement)
	require.True(t, ok)
	require.Len(t, i.Then, 1)
}

func TestLabelsForUnstructuredBranches(t *testing.T) {
	// The inner branch leaves the if block, so it stays a branch and
	// its target gets a label.
	c1 := ifeq(1, 9, load(0, 0))
	c2 := ifeq(7, 13, load(6, 1))
	list := []instruction.Instruction{c1, store(4, 1, 1), c2, store(10, 2, 2), ret(13)}
	out := Statements(list, 14)
	require.Len(t, out, 4)
	ifs, ok := out[0].(*instruction.IfStatement)
	require.True(t, ok)
	require.Len(t, ifs.Then, 2)
	assert.Same(t, c2, ifs.Then[1])
	lbl, ok := out[2].(*instruction.Label)
	require.True(t, ok)
	assert.Equal(t, 13, lbl.Offset)
	assert.Equal(t, bytecode.LABEL, lbl.Opcode)
}

func TestTrailingLabel(t *testing.T) {
	// a goto to the end of the code that cannot be structured
	g := jump(3, 6)
	list := []instruction.Instruction{inc(0), g}
	out := Statements(list, 6)
	require.Len(t, out, 3)
	assert.Equal(t, 6, out[2].(*instruction.Label).Offset)
}

func TestStraightLineUnchanged(t *testing.T) {
	list := []instruction.Instruction{store(1, 1, 3), ret(2)}
	out := Statements(list, 3)
	assert.Equal(t, list, out)
}
