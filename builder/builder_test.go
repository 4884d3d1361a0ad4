package builder

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(t *testing.T, desc string, a *bytecode.Assembler, table ...classfile.CodeException) *classfile.Method {
	t.Helper()
	code, err := a.Bytes()
	require.NoError(t, err)
	var lines []classfile.LineNumber
	for _, l := range a.LineTable() {
		lines = append(lines, classfile.LineNumber{StartPC: l[0], Line: l[1]})
	}
	return &classfile.Method{
		AccessFlags: classfile.ACC_STATIC,
		Name:        "m",
		Descriptor:  desc,
		Code:        &classfile.Code{MaxStack: 8, MaxLocals: 8, Bytecode: code, ExceptionTable: table, LineNumbers: lines},
	}
}

func TestStackBalance(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Line(3).Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_1).Emit(bytecode.IADD).Emit(bytecode.ISTORE_2)
	a.Line(4).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "(I)V", a))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	require.Len(t, res.List, 2)

	store, ok := res.List[0].(*instruction.Store)
	require.True(t, ok)
	assert.Equal(t, 2, store.Index)
	assert.Equal(t, 3, store.LineNumber)
	add, ok := store.Value.(*instruction.BinaryOp)
	require.True(t, ok)
	assert.Equal(t, "+", add.Operator)
	assert.Equal(t, "I", add.Signature)
	assert.Equal(t, 1, add.Left.(*instruction.Load).Index)
	assert.Equal(t, int32(1), add.Right.(*instruction.IConst).Value)

	_, ok = res.List[1].(*instruction.Return)
	assert.True(t, ok)
	assert.Equal(t, 4, instruction.Line(res.List[1]))
}

func TestTernaryStore(t *testing.T) {
	// iload_1; iconst_1; if_icmpne L1; iconst_1; goto L2; L1: iconst_0; L2: istore_2
	a := bytecode.NewAssembler()
	l1, l2 := a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPNE, l1)
	a.Emit(bytecode.ICONST_1).EmitJump(bytecode.GOTO, l2)
	a.Mark(l1).Emit(bytecode.ICONST_0)
	a.Mark(l2).Emit(bytecode.ISTORE_2).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "(I)V", a))
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	require.Len(t, res.List, 4)

	cmp, ok := res.List[0].(*instruction.IfCmp)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpNE, cmp.Cmp)
	assert.Equal(t, 9, cmp.JumpOffset())

	tos, ok := res.List[1].(*instruction.TernaryOpStore)
	require.True(t, ok)
	assert.Equal(t, int32(1), tos.Value.(*instruction.IConst).Value)
	assert.Equal(t, 10, tos.JumpOffset())

	store := res.List[2].(*instruction.Store)
	assert.Same(t, tos.SecondValue, store.Value)
	assert.Equal(t, int32(0), store.Value.(*instruction.IConst).Value)

	assert.True(t, res.JumpTargets.Test(9))
	assert.True(t, res.JumpTargets.Test(10))
}

func TestLongCompareBecomesIfCmp(t *testing.T) {
	a := bytecode.NewAssembler()
	end := a.NewLabel()
	a.Emit(bytecode.LLOAD_0).Emit(bytecode.LCONST_1).Emit(bytecode.LCMP).EmitJump(bytecode.IFLE, end)
	a.Emit(bytecode.RETURN)
	a.Mark(end).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "(J)V", a))
	require.NoError(t, err)
	cmp, ok := res.List[0].(*instruction.IfCmp)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpLE, cmp.Cmp)
	assert.Equal(t, "J", cmp.Left.(*instruction.Load).Signature)
	_, ok = cmp.Right.(*instruction.LConst)
	assert.True(t, ok)
}

func TestDupCreatesStoreAndLoads(t *testing.T) {
	// int b = a = 5;
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_5).Emit(bytecode.DUP).Emit(bytecode.ISTORE_1).Emit(bytecode.ISTORE_2).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "()V", a))
	require.NoError(t, err)
	require.Len(t, res.List, 4)
	ds, ok := res.List[0].(*instruction.DupStore)
	require.True(t, ok)
	assert.Equal(t, 1, res.NextDupID)
	for _, ins := range res.List[1:3] {
		dl, ok := ins.(*instruction.Store).Value.(*instruction.DupLoad)
		require.True(t, ok)
		assert.Equal(t, ds.ID, dl.StoreID)
		assert.Equal(t, "I", dl.Signature)
	}
	stores, loads := instruction.CountDups(res.List)
	assert.Equal(t, 1, stores)
	assert.Equal(t, 2, loads)
}

func TestDup2Category2(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.LCONST_1).Emit(bytecode.DUP2).Emit(bytecode.LSTORE_0).Emit(bytecode.LSTORE_2).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "()V", a))
	require.NoError(t, err)
	stores, loads := instruction.CountDups(res.List)
	assert.Equal(t, 1, stores)
	assert.Equal(t, 2, loads)
	assert.False(t, res.Degraded)
}

func TestPop2TwoValues(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_1).Emit(bytecode.ICONST_2).Emit(bytecode.POP2).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "()V", a))
	require.NoError(t, err)
	require.Len(t, res.List, 3)
	assert.Equal(t, int32(1), res.List[0].(*instruction.Pop).Value.(*instruction.IConst).Value)
	assert.Equal(t, int32(2), res.List[1].(*instruction.Pop).Value.(*instruction.IConst).Value)
	require.NoError(t, instruction.CheckOffsets(res.List))
}

func TestExceptionLoadAtHandler(t *testing.T) {
	pool := classfile.NewConstantPool()
	ioe := pool.AddClass("java/io/IOException")
	a := bytecode.NewAssembler()
	end := a.NewLabel()
	a.Emit(bytecode.NOP).EmitJump(bytecode.GOTO, end) // 0..3
	a.Emit(bytecode.ASTORE_1)                         // 4: catch IOException
	a.EmitJump(bytecode.GOTO, end)                    // 5
	a.Emit(bytecode.ASTORE_1)                         // 8: catch any
	a.Mark(end).Emit(bytecode.RETURN)                 // 9
	m := method(t, "()V", a,
		classfile.CodeException{StartPC: 0, EndPC: 1, HandlerPC: 4, CatchType: ioe},
		classfile.CodeException{StartPC: 0, EndPC: 1, HandlerPC: 8},
	)

	res, err := Build(pool, m)
	require.NoError(t, err)
	assert.True(t, res.Handlers.Test(4))
	assert.True(t, res.Handlers.Test(8))

	first := res.List[1].(*instruction.Store).Value.(*instruction.ExceptionLoad)
	assert.Equal(t, "Ljava/io/IOException;", first.Signature)
	assert.Equal(t, 4, first.Offset)
	second := res.List[3].(*instruction.Store).Value.(*instruction.ExceptionLoad)
	assert.Equal(t, "Ljava/lang/Throwable;", second.Signature)
	assert.False(t, res.Degraded)
}

func TestJsrPushesReturnAddress(t *testing.T) {
	a := bytecode.NewAssembler()
	sub := a.NewLabel()
	a.EmitJump(bytecode.JSR, sub).Emit(bytecode.RETURN)
	a.Mark(sub).Emit(bytecode.ASTORE_1).EmitU1(bytecode.RET, 1)

	res, err := Build(classfile.NewConstantPool(), method(t, "()V", a))
	require.NoError(t, err)
	require.Len(t, res.List, 4)
	store := res.List[2].(*instruction.Store)
	_, ok := store.Value.(*instruction.ReturnAddressLoad)
	assert.True(t, ok)
	assert.Equal(t, "ReturnAddress", store.Signature)
	assert.False(t, res.Degraded)
}

func TestWideInstructions(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.WIDE, bytecode.IINC, 0x01, 0x2c, 0x03, 0xe8) // iinc 300, 1000
	a.Emit(bytecode.WIDE, bytecode.ILOAD, 0x01, 0x2c)
	a.Emit(bytecode.IRETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "()I", a))
	require.NoError(t, err)
	require.Len(t, res.List, 2)
	inc := res.List[0].(*instruction.IInc)
	assert.Equal(t, 300, inc.Index)
	assert.Equal(t, 1000, inc.Count)
	ret := res.List[1].(*instruction.XReturn)
	load := ret.Value.(*instruction.Load)
	assert.Equal(t, 300, load.Index)
	assert.Equal(t, 6, load.Offset)
}

func TestSwitches(t *testing.T) {
	a := bytecode.NewAssembler()
	c0, c1, dflt := a.NewLabel(), a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_0).EmitTableSwitch(5, dflt, c0, c1)
	a.Mark(c0).Emit(bytecode.RETURN)
	a.Mark(c1).Emit(bytecode.RETURN)
	a.Mark(dflt).Emit(bytecode.ILOAD_0).EmitLookupSwitch(dflt, []int{-1, 7}, []*bytecode.Label{c0, c1})

	res, err := Build(classfile.NewConstantPool(), method(t, "(I)V", a))
	require.NoError(t, err)
	ts := res.List[0].(*instruction.TableSwitch)
	assert.Equal(t, 5, ts.Low)
	require.Len(t, ts.Offsets, 2)
	assert.Equal(t, instruction.Offset(res.List[1]), ts.Offset+ts.Offsets[0])
	assert.Equal(t, instruction.Offset(res.List[2]), ts.Offset+ts.Offsets[1])

	ls := res.List[3].(*instruction.LookupSwitch)
	assert.Equal(t, []int{-1, 7}, ls.Keys)
	assert.Equal(t, instruction.Offset(res.List[1]), ls.Offset+ls.Offsets[0])
	assert.Equal(t, ls.Offset-1, ts.Offset+ts.Default)
}

func TestDegradedWhenStackNotEmpty(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_1).Emit(bytecode.RETURN)

	res, err := Build(classfile.NewConstantPool(), method(t, "()V", a))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, res.Leftover)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		code   []byte
		want   error
		offset int
	}{
		{"underflow", []byte{bytecode.ICONST_0, bytecode.ISTORE_0, bytecode.ISTORE_0}, jderrors.ErrBStackUnderflow, 2},
		{"unsupported", []byte{bytecode.NOP, 0xfe}, jderrors.ErrBUnsupportedOpcode, 1},
		{"truncated", []byte{bytecode.NOP, bytecode.SIPUSH, 1}, jderrors.ErrBTruncatedCode, 1},
		{"bad target", []byte{bytecode.GOTO, 0x7f, 0x00}, jderrors.ErrBBadBranchTarget, 0},
		{"bad constant", []byte{bytecode.LDC, 9, bytecode.POP, bytecode.RETURN}, jderrors.ErrCInvalidConstantIndex, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &classfile.Method{Name: "m", Descriptor: "()V", Code: &classfile.Code{Bytecode: tt.code}}
			_, err := Build(classfile.NewConstantPool(), m)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var me *jderrors.MethodError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.offset, me.Offset)
		})
	}
}

func TestInvokeArguments(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/A", "foo", "(IJ)Ljava/lang/String;")
	bar := pool.AddMethodref("p/A", "bar", "()V")
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ALOAD_0).Emit(bytecode.ICONST_1).Emit(bytecode.LCONST_0).EmitU2(bytecode.INVOKEVIRTUAL, foo).Emit(bytecode.POP)
	a.EmitU2(bytecode.INVOKESTATIC, bar).Emit(bytecode.RETURN)

	res, err := Build(pool, method(t, "()V", a))
	require.NoError(t, err)
	require.Len(t, res.List, 3)
	inv := res.List[0].(*instruction.Pop).Value.(*instruction.Invoke)
	assert.Equal(t, "foo", inv.Ref.Name)
	require.Len(t, inv.Args, 2)
	assert.Equal(t, 0, inv.Object.(*instruction.Load).Index)
	assert.Equal(t, "Ljava/lang/String;", instruction.ValueSignature(inv))

	static := res.List[1].(*instruction.Invoke)
	assert.Nil(t, static.Object)
	assert.Equal(t, "bar", static.Ref.Name)
}
