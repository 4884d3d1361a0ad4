package reconstruct

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/jdcore/builder"
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(t *testing.T, desc string, a *bytecode.Assembler, table ...classfile.CodeException) *classfile.Method {
	t.Helper()
	code, err := a.Bytes()
	require.NoError(t, err)
	return &classfile.Method{
		AccessFlags: classfile.ACC_STATIC,
		Name:        "m",
		Descriptor:  desc,
		Code:        &classfile.Code{MaxStack: 8, MaxLocals: 8, Bytecode: code, ExceptionTable: table},
	}
}

func classOf(pool *classfile.ConstantPool, methods ...*classfile.Method) *classfile.ClassFile {
	return &classfile.ClassFile{Pool: pool, ThisClass: "p/T", SuperClass: "java/lang/Object", Methods: methods}
}

// reconstruct builds m and runs the pipeline, returning the method context
// for inspection of the unstructured list.
func reconstruct(t *testing.T, pool *classfile.ConstantPool, m *classfile.Method) (*ClassContext, *MethodContext, *Body) {
	t.Helper()
	ctx := NewClassContext(classOf(pool, m), nil)
	res, err := builder.Build(pool, m)
	require.NoError(t, err)
	mc := NewMethodContext(m, res)
	body, err := Run(ctx, mc)
	require.NoError(t, err)
	stores, loads := instruction.CountDups(body.Statements())
	assert.Zero(t, stores+loads)
	return ctx, mc, body
}

// offsets flattens the tree in evaluation order, real opcodes only.
func offsets(list []instruction.Instruction) []int {
	var out []int
	var visit func(ins instruction.Instruction)
	visit = func(ins instruction.Instruction) {
		for _, op := range instruction.Operands(ins) {
			visit(*op)
		}
		if !instruction.IsPseudo(ins) {
			out = append(out, instruction.Offset(ins))
		}
		for _, body := range instruction.Bodies(ins) {
			for _, s := range *body {
				visit(s)
			}
		}
	}
	for _, s := range list {
		visit(s)
	}
	return out
}

func assertIncreasing(t *testing.T, list []instruction.Instruction) {
	t.Helper()
	offs := offsets(list)
	for i := 1; i < len(offs); i++ {
		assert.Less(t, offs[i-1], offs[i], "offsets %v", offs)
	}
	assert.NoError(t, instruction.CheckOffsets(list))
}

func ternaryMethod(t *testing.T) *classfile.Method {
	// iload_1; iconst_1; if_icmpne L1; iconst_1; goto L2; L1: iconst_0; L2: istore_2; return
	a := bytecode.NewAssembler()
	l1, l2 := a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPNE, l1)
	a.Emit(bytecode.ICONST_1).EmitJump(bytecode.GOTO, l2)
	a.Mark(l1).Emit(bytecode.ICONST_0)
	a.Mark(l2).Emit(bytecode.ISTORE_2).Emit(bytecode.RETURN)
	return method(t, "(I)V", a)
}

func TestTernaryScenario(t *testing.T) {
	_, _, body := reconstruct(t, classfile.NewConstantPool(), ternaryMethod(t))
	stmts := body.Statements()
	require.Len(t, stmts, 2)

	store, ok := stmts[0].(*instruction.Store)
	require.True(t, ok)
	assert.Equal(t, 2, store.Index)
	op, ok := store.Value.(*instruction.TernaryOp)
	require.True(t, ok)
	test, ok := op.Test.(*instruction.IfCmp)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpEQ, test.Cmp)
	assert.Equal(t, 1, test.Left.(*instruction.Load).Index)
	assert.Equal(t, int32(1), test.Right.(*instruction.IConst).Value)
	assert.Equal(t, int32(1), op.Value1.(*instruction.IConst).Value)
	assert.Equal(t, int32(0), op.Value2.(*instruction.IConst).Value)

	assert.Equal(t, "var2 = (var1 == 1) ? 1 : 0", printer.New(nil, nil).Expr(store))
	assertIncreasing(t, stmts)
}

func aggregationMethod(t *testing.T, pool *classfile.ConstantPool) *classfile.Method {
	// if (a == 1 && b == 2) foo();
	foo := pool.AddMethodref("p/T", "foo", "()V")
	a := bytecode.NewAssembler()
	end := a.NewLabel()
	a.Line(5).Emit(bytecode.ILOAD_0).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPNE, end)
	a.Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_2).EmitJump(bytecode.IF_ICMPNE, end)
	a.Line(6).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Mark(end).Line(7).Emit(bytecode.RETURN)
	m := method(t, "(II)V", a)
	for _, l := range a.LineTable() {
		m.Code.LineNumbers = append(m.Code.LineNumbers, classfile.LineNumber{StartPC: l[0], Line: l[1]})
	}
	return m
}

func TestAggregationScenario(t *testing.T) {
	pool := classfile.NewConstantPool()
	_, _, body := reconstruct(t, pool, aggregationMethod(t, pool))
	stmts := body.Statements()
	require.Len(t, stmts, 2)

	ifs, ok := stmts[0].(*instruction.IfStatement)
	require.True(t, ok)
	cond, ok := ifs.Condition.(*instruction.ComplexIf)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpAND, cond.Cmp)
	require.Len(t, cond.Branches, 2)
	first := cond.Branches[0].(*instruction.IfCmp)
	second := cond.Branches[1].(*instruction.IfCmp)
	assert.Equal(t, instruction.CmpEQ, first.Cmp)
	assert.Equal(t, instruction.CmpEQ, second.Cmp)
	assert.Equal(t, 0, first.Left.(*instruction.Load).Index)
	assert.Equal(t, 1, second.Left.(*instruction.Load).Index)
	assert.Equal(t, 5, ifs.LineNumber)

	require.Len(t, ifs.Then, 1)
	inv, ok := ifs.Then[0].(*instruction.Invoke)
	require.True(t, ok)
	assert.Equal(t, "foo", inv.Ref.Name)

	assert.Equal(t, "if (var0 == 1 && var1 == 2)", printer.New(pool, nil).Expr(ifs))
	assertIncreasing(t, stmts)
}

func TestOrAggregation(t *testing.T) {
	// if (a == 1 || b == 2) foo();  compiles to if_icmpeq BODY; if_icmpne END; BODY: foo
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "()V")
	a := bytecode.NewAssembler()
	then, end := a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_0).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPEQ, then)
	a.Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_2).EmitJump(bytecode.IF_ICMPNE, end)
	a.Mark(then).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Mark(end).Emit(bytecode.RETURN)

	_, _, body := reconstruct(t, pool, method(t, "(II)V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	ifs, ok := stmts[0].(*instruction.IfStatement)
	require.True(t, ok)
	assert.Equal(t, "if (var0 == 1 || var1 == 2)", printer.New(pool, nil).Expr(ifs))
	assertIncreasing(t, stmts)
}

func TestEmptySynchronized(t *testing.T) {
	x := &instruction.Load{Header: instruction.Header{Opcode: bytecode.ALOAD_1, Offset: 0, LineNumber: 3}, Index: 1, Signature: "Ljava/lang/Object;"}
	ds := &instruction.DupStore{Header: instruction.Header{Opcode: bytecode.DUPSTORE, Offset: 1, LineNumber: 3}, ID: 0, Value: x}
	dl := func() *instruction.DupLoad {
		return &instruction.DupLoad{Header: instruction.Header{Opcode: bytecode.DUPLOAD, Offset: 1, LineNumber: 3}, StoreID: 0}
	}
	list := []instruction.Instruction{
		ds,
		&instruction.MonitorEnter{Header: instruction.Header{Opcode: bytecode.MONITORENTER, Offset: 2, LineNumber: 3}, Object: dl()},
		&instruction.MonitorExit{Header: instruction.Header{Opcode: bytecode.MONITOREXIT, Offset: 3, LineNumber: 3}, Object: dl()},
		&instruction.Return{Header: instruction.Header{Opcode: bytecode.RETURN, Offset: 4, LineNumber: 4}},
	}
	m := &classfile.Method{Name: "m", Descriptor: "()V", Code: &classfile.Code{Bytecode: make([]byte, 5)}}
	mc := NewMethodContext(m, &builder.Result{List: list})

	out, changed := synchronizedPass(nil, mc, list)
	require.True(t, changed)
	require.Len(t, out, 2)
	sync, ok := out[0].(*instruction.Synchronized)
	require.True(t, ok)
	assert.Same(t, x, sync.Monitor)
	assert.NotNil(t, sync.Body)
	assert.Empty(t, sync.Body)
	assert.Equal(t, bytecode.SYNCHRONIZED, sync.Opcode)
	_, alive := mc.DupStore(0)
	assert.False(t, alive)

	_, again := synchronizedPass(nil, mc, out)
	assert.False(t, again)
}

func TestJavacSynchronized(t *testing.T) {
	// synchronized (o) { foo(); }
	build := func(table ...classfile.CodeException) (*classfile.ConstantPool, *classfile.Method) {
		pool := classfile.NewConstantPool()
		foo := pool.AddMethodref("p/T", "foo", "()V")
		a := bytecode.NewAssembler()
		handler, end := a.NewLabel(), a.NewLabel()
		a.Emit(bytecode.ALOAD_0).Emit(bytecode.DUP).Emit(bytecode.ASTORE_1).Emit(bytecode.MONITORENTER)
		a.EmitU2(bytecode.INVOKESTATIC, foo)
		a.Emit(bytecode.ALOAD_1).Emit(bytecode.MONITOREXIT)
		a.EmitJump(bytecode.GOTO, end)
		a.Mark(handler).Emit(bytecode.ASTORE_2).Emit(bytecode.ALOAD_1).Emit(bytecode.MONITOREXIT).Emit(bytecode.ALOAD_2).Emit(bytecode.ATHROW)
		a.Mark(end).Emit(bytecode.RETURN)
		return pool, method(t, "(Ljava/lang/Object;)V", a, table...)
	}

	// body 4..9, handler at 12
	pool, m := build(classfile.CodeException{StartPC: 4, EndPC: 9, HandlerPC: 12})
	_, _, body := reconstruct(t, pool, m)
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	sync, ok := stmts[0].(*instruction.Synchronized)
	require.True(t, ok)
	assert.Equal(t, 0, sync.Monitor.(*instruction.Load).Index)
	require.Len(t, sync.Body, 1)
	assert.Equal(t, "foo", sync.Body[0].(*instruction.Invoke).Ref.Name)
	_, ok = stmts[1].(*instruction.Return)
	assert.True(t, ok)
	assertIncreasing(t, stmts)

	for _, tc := range []struct {
		name  string
		entry func(pool *classfile.ConstantPool) classfile.CodeException
	}{
		{"typed catch", func(pool *classfile.ConstantPool) classfile.CodeException {
			return classfile.CodeException{StartPC: 4, EndPC: 9, HandlerPC: 12, CatchType: pool.AddClass("java/lang/RuntimeException")}
		}},
		{"body not covered", func(*classfile.ConstantPool) classfile.CodeException {
			return classfile.CodeException{StartPC: 9, EndPC: 12, HandlerPC: 12}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pool, m := build()
			m.Code.ExceptionTable = []classfile.CodeException{tc.entry(pool)}
			_, mc, _ := reconstruct(t, pool, m)
			for _, stmt := range mc.list {
				_, ok := stmt.(*instruction.Synchronized)
				assert.False(t, ok, "handler does not release the monitor on every exception")
			}
		})
	}
}

func arrayInitMethod(t *testing.T) *classfile.Method {
	// int[] a = {7, 8, 9};
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_3).EmitU1(bytecode.NEWARRAY, bytecode.T_INT)
	for i, v := range []int{7, 8, 9} {
		a.Emit(bytecode.DUP).Emit(byte(bytecode.ICONST_0+i)).EmitU1(bytecode.BIPUSH, v).Emit(bytecode.IASTORE)
	}
	a.Emit(bytecode.ASTORE_0).Emit(bytecode.RETURN)
	return method(t, "()V", a)
}

func TestArrayInitializerScenario(t *testing.T) {
	_, _, body := reconstruct(t, classfile.NewConstantPool(), arrayInitMethod(t))
	stmts := body.Statements()
	require.Len(t, stmts, 2)

	store := stmts[0].(*instruction.Store)
	init, ok := store.Value.(*instruction.InitArray)
	require.True(t, ok)
	assert.Equal(t, "[I", instruction.ValueSignature(init))
	require.Len(t, init.Values, 3)
	for i, want := range []int32{7, 8, 9} {
		assert.Equal(t, want, init.Values[i].(*instruction.IConst).Value)
	}
	assertIncreasing(t, stmts)
}

func TestArrayInitializerPadsZeros(t *testing.T) {
	// new int[4] with only index 1 stored
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_4).EmitU1(bytecode.NEWARRAY, bytecode.T_INT)
	a.Emit(bytecode.DUP).Emit(bytecode.ICONST_1).EmitU1(bytecode.BIPUSH, 5).Emit(bytecode.IASTORE)
	a.Emit(bytecode.ASTORE_0).Emit(bytecode.RETURN)

	_, _, body := reconstruct(t, classfile.NewConstantPool(), method(t, "()V", a))
	init := body.Statements()[0].(*instruction.Store).Value.(*instruction.InitArray)
	require.Len(t, init.Values, 4)
	assert.Equal(t, "new int[] {0, 5, 0, 0}", printer.New(nil, nil).Expr(init))
}

func TestArrayInitIdempotent(t *testing.T) {
	m := arrayInitMethod(t)
	res, err := builder.Build(classfile.NewConstantPool(), m)
	require.NoError(t, err)
	mc := NewMethodContext(m, res)
	once, changed := arrayInitPass(nil, mc, res.List)
	require.True(t, changed)
	twice, changed := arrayInitPass(nil, mc, once)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
}

// built returns the builder output of m, before any pass ran.
func built(t *testing.T, pool *classfile.ConstantPool, m *classfile.Method) (*ClassContext, *MethodContext, []instruction.Instruction) {
	t.Helper()
	res, err := builder.Build(pool, m)
	require.NoError(t, err)
	return NewClassContext(classOf(pool, m), nil), NewMethodContext(m, res), res.List
}

func orAndTernaryMethod(t *testing.T) *classfile.Method {
	// var3 = ((a || b) && c) ? 1 : 2
	a := bytecode.NewAssembler()
	second, other, end := a.NewLabel(), a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_0).EmitJump(bytecode.IFNE, second)
	a.Emit(bytecode.ILOAD_1).EmitJump(bytecode.IFEQ, other)
	a.Mark(second).Emit(bytecode.ILOAD_2).EmitJump(bytecode.IFEQ, other)
	a.Emit(bytecode.ICONST_1).EmitJump(bytecode.GOTO, end)
	a.Mark(other).Emit(bytecode.ICONST_2)
	a.Mark(end).Emit(bytecode.ISTORE_3).Emit(bytecode.RETURN)
	return method(t, "(III)V", a)
}

func TestPassesIdempotent(t *testing.T) {
	for _, tc := range []struct {
		name   string
		method func(t *testing.T) *classfile.Method
	}{
		{"ternary", ternaryMethod},
		{"or-and-ternary", orAndTernaryMethod},
		{"nested-ternary", func(t *testing.T) *classfile.Method { return nestedTernaryMethod(t, thenNested) }},
		{"ternary-condition", func(t *testing.T) *classfile.Method { return ternaryConditionMethod(t, classfile.NewConstantPool()) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pool := classfile.NewConstantPool()
			ctx, mc, list := built(t, pool, tc.method(t))
			once, changed := aggregatePass(ctx, mc, list)
			require.True(t, changed)
			twice, changed := aggregatePass(ctx, mc, once)
			assert.False(t, changed)
			assert.Equal(t, once, twice)

			ctx, mc, _ = reconstruct(t, pool, tc.method(t))
			for _, p := range passes {
				_, changed := p.run(ctx, mc, mc.list)
				assert.False(t, changed, p.name)
			}
		})
	}
}

func TestOrAndTernary(t *testing.T) {
	_, _, body := reconstruct(t, classfile.NewConstantPool(), orAndTernaryMethod(t))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	store, ok := stmts[0].(*instruction.Store)
	require.True(t, ok)
	op, ok := store.Value.(*instruction.TernaryOp)
	require.True(t, ok)
	test, ok := op.Test.(*instruction.ComplexIf)
	require.True(t, ok)
	assert.Equal(t, instruction.CmpAND, test.Cmp)
	assert.Equal(t, "var3 = ((var0 != 0 || var1 != 0) && var2 != 0) ? 1 : 2", printer.New(nil, nil).Expr(store))
	assertIncreasing(t, stmts)
}

type nesting int

const (
	thenNested nesting = iota
	elseNested
	bothNested
)

// nestedTernaryMethod assembles var3 = a ? x : y where x, y or both are
// ternaries over b and c, with every arm jumping straight to the store.
func nestedTernaryMethod(t *testing.T, n nesting) *classfile.Method {
	a := bytecode.NewAssembler()
	elseA, end := a.NewLabel(), a.NewLabel()
	inner := func(load, v1, v2 byte) {
		other := a.NewLabel()
		a.Emit(load).EmitJump(bytecode.IFEQ, other)
		a.Emit(v1).EmitJump(bytecode.GOTO, end)
		a.Mark(other).Emit(v2)
	}
	a.Emit(bytecode.ILOAD_0).EmitJump(bytecode.IFEQ, elseA)
	switch n {
	case thenNested:
		inner(bytecode.ILOAD_1, bytecode.ICONST_1, bytecode.ICONST_2)
		a.EmitJump(bytecode.GOTO, end)
		a.Mark(elseA).Emit(bytecode.ICONST_3)
	case elseNested:
		a.Emit(bytecode.ICONST_1).EmitJump(bytecode.GOTO, end)
		a.Mark(elseA)
		inner(bytecode.ILOAD_1, bytecode.ICONST_2, bytecode.ICONST_3)
	case bothNested:
		inner(bytecode.ILOAD_1, bytecode.ICONST_1, bytecode.ICONST_2)
		a.EmitJump(bytecode.GOTO, end)
		a.Mark(elseA)
		inner(bytecode.ILOAD_2, bytecode.ICONST_3, bytecode.ICONST_4)
	}
	a.Mark(end).Emit(bytecode.ISTORE_3).Emit(bytecode.RETURN)
	return method(t, "(III)V", a)
}

func TestNestedTernary(t *testing.T) {
	for _, tc := range []struct {
		name string
		n    nesting
		want string
	}{
		{"then", thenNested, "var3 = (var0 != 0) ? ((var1 != 0) ? 1 : 2) : 3"},
		{"else", elseNested, "var3 = (var0 != 0) ? 1 : ((var1 != 0) ? 2 : 3)"},
		{"both", bothNested, "var3 = (var0 != 0) ? ((var1 != 0) ? 1 : 2) : ((var2 != 0) ? 3 : 4)"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, mc, body := reconstruct(t, classfile.NewConstantPool(), nestedTernaryMethod(t, tc.n))
			stmts := body.Statements()
			require.Len(t, stmts, 2)
			assert.Equal(t, tc.want, printer.New(nil, nil).Expr(stmts[0]))
			for _, stmt := range mc.list {
				assert.NotContains(t, []int{bytecode.GOTO, bytecode.TERNARYOPSTORE}, stmt.Base().Opcode)
			}
			assertIncreasing(t, stmts)
		})
	}
}

func ternaryConditionMethod(t *testing.T, pool *classfile.ConstantPool) *classfile.Method {
	// if (a ? b : c) foo();
	foo := pool.AddMethodref("p/T", "foo", "()V")
	a := bytecode.NewAssembler()
	elseL, then, end := a.NewLabel(), a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_0).EmitJump(bytecode.IFEQ, elseL)
	a.Emit(bytecode.ILOAD_1).EmitJump(bytecode.IFEQ, end)
	a.EmitJump(bytecode.GOTO, then)
	a.Mark(elseL).Emit(bytecode.ILOAD_2).EmitJump(bytecode.IFEQ, end)
	a.Mark(then).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Mark(end).Emit(bytecode.RETURN)
	return method(t, "(III)V", a)
}

func TestTernaryCondition(t *testing.T) {
	pool := classfile.NewConstantPool()
	_, _, body := reconstruct(t, pool, ternaryConditionMethod(t, pool))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	ifs, ok := stmts[0].(*instruction.IfStatement)
	require.True(t, ok)
	assert.Equal(t, "if ((var0 != 0) ? (var1 != 0) : (var2 != 0))", printer.New(pool, nil).Expr(ifs))
	require.Len(t, ifs.Then, 1)
	_, ok = ifs.Then[0].(*instruction.Invoke)
	assert.True(t, ok)
	assertIncreasing(t, stmts)
}

func TestTernaryConditionEnteredFromOutside(t *testing.T) {
	// a second branch into the else arm keeps the goto form
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "()V")
	a := bytecode.NewAssembler()
	elseL, then, end := a.NewLabel(), a.NewLabel(), a.NewLabel()
	a.Emit(bytecode.ILOAD_3).EmitJump(bytecode.IFNE, elseL)
	a.Emit(bytecode.ILOAD_0).EmitJump(bytecode.IFEQ, elseL)
	a.Emit(bytecode.ILOAD_1).EmitJump(bytecode.IFEQ, end)
	a.EmitJump(bytecode.GOTO, then)
	a.Mark(elseL).Emit(bytecode.ILOAD_2).EmitJump(bytecode.IFEQ, end)
	a.Mark(then).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Mark(end).Emit(bytecode.RETURN)
	_, mc, list := built(t, pool, method(t, "(IIII)V", a))

	out, changed := ternaryConditionPass(mc, list)
	assert.False(t, changed)
	assert.Len(t, out, len(list))
}

func TestDupEliminationSimpleValue(t *testing.T) {
	// foo(a, a) via dup
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "(II)V")
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ILOAD_0).Emit(bytecode.DUP).EmitU2(bytecode.INVOKESTATIC, foo).Emit(bytecode.RETURN)

	_, _, body := reconstruct(t, pool, method(t, "(I)V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	inv := stmts[0].(*instruction.Invoke)
	require.Len(t, inv.Args, 2)
	orig := inv.Args[0].(*instruction.Load)
	clone := inv.Args[1].(*instruction.Load)
	assert.Equal(t, bytecode.ILOAD_0, orig.Opcode)
	assert.Equal(t, bytecode.REPLICA, clone.Opcode)
	assert.Equal(t, 0, clone.Index)
	assertIncreasing(t, stmts)
}

func TestDupClobberedFallsBackToTemp(t *testing.T) {
	h := func(op, off int) instruction.Header { return instruction.Header{Opcode: op, Offset: off, LineNumber: 1} }
	ds := &instruction.DupStore{Header: h(bytecode.DUPSTORE, 1), ID: 0, Value: &instruction.Load{Header: h(bytecode.ILOAD_0, 0), Signature: "I"}}
	inc := &instruction.IInc{Header: h(bytecode.IINC, 2), Index: 0, Count: 1}
	call := &instruction.Invoke{
		Header: h(bytecode.INVOKESTATIC, 5), Bootstrap: -1,
		Ref: classfile.MemberRef{Owner: "p/T", Name: "foo", Descriptor: "(II)V"},
		Args: []instruction.Instruction{
			&instruction.DupLoad{Header: h(bytecode.DUPLOAD, 1), StoreID: 0, Signature: "I"},
			&instruction.DupLoad{Header: h(bytecode.DUPLOAD, 1), StoreID: 0, Signature: "I"},
		},
	}
	list := []instruction.Instruction{ds, inc, call}
	m := &classfile.Method{Name: "m", Descriptor: "(I)V", Code: &classfile.Code{Bytecode: make([]byte, 8)}}
	mc := NewMethodContext(m, &builder.Result{List: list})

	out, changed := dupEliminationPass(nil, mc, list)
	assert.False(t, changed)
	out, changed = dupFallbackPass(nil, mc, out)
	require.True(t, changed)
	require.NoError(t, finalize(out))

	temp, ok := out[0].(*instruction.TempStore)
	require.True(t, ok)
	for _, arg := range out[2].(*instruction.Invoke).Args {
		assert.Equal(t, temp.ID, arg.(*instruction.TempLoad).ID)
	}
}

func TestAssignmentChain(t *testing.T) {
	// b = a = 5
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_5).Emit(bytecode.DUP).Emit(bytecode.ISTORE_1).Emit(bytecode.ISTORE_2).Emit(bytecode.RETURN)
	_, _, body := reconstruct(t, classfile.NewConstantPool(), method(t, "()V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, "var2 = var1 = 5", printer.New(nil, nil).Expr(stmts[0]))
}

func TestPostIncrement(t *testing.T) {
	// foo(i++)
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "(I)V")
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ILOAD_0).EmitIInc(0, 1).EmitU2(bytecode.INVOKESTATIC, foo).Emit(bytecode.RETURN)
	_, _, body := reconstruct(t, pool, method(t, "(I)V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, "T.foo(var0++)", printer.New(pool, nil).Expr(stmts[0]))
}

func TestBooleanReturn(t *testing.T) {
	build := func(desc string) []instruction.Instruction {
		a := bytecode.NewAssembler()
		l := a.NewLabel()
		a.Emit(bytecode.ILOAD_0).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPNE, l)
		a.Emit(bytecode.ICONST_1).Emit(bytecode.IRETURN)
		a.Mark(l).Emit(bytecode.ICONST_0).Emit(bytecode.IRETURN)
		_, _, body := reconstruct(t, classfile.NewConstantPool(), method(t, desc, a))
		return body.Statements()
	}

	stmts := build("(I)Z")
	require.Len(t, stmts, 1)
	ret := stmts[0].(*instruction.XReturn)
	assert.Equal(t, "return var0 == 1", printer.New(nil, nil).Expr(ret))

	stmts = build("(I)I")
	require.Len(t, stmts, 2)
	ifs, ok := stmts[0].(*instruction.IfStatement)
	require.True(t, ok)
	assert.Equal(t, "if (var0 == 1)", printer.New(nil, nil).Expr(ifs))
}

func TestClassLiteralGotoShape(t *testing.T) {
	// Class c = String.class; as emitted by javac 1.4
	pool := classfile.NewConstantPool()
	cache := pool.AddFieldref("p/T", "class$java$lang$String", "Ljava/lang/Class;")
	name := pool.AddString("java.lang.String")
	lookup := pool.AddMethodref("p/T", "class$", "(Ljava/lang/String;)Ljava/lang/Class;")
	a := bytecode.NewAssembler()
	cached, done := a.NewLabel(), a.NewLabel()
	a.EmitU2(bytecode.GETSTATIC, cache).EmitJump(bytecode.IFNONNULL, cached)
	a.EmitU1(bytecode.LDC, name).EmitU2(bytecode.INVOKESTATIC, lookup).Emit(bytecode.DUP).EmitU2(bytecode.PUTSTATIC, cache)
	a.EmitJump(bytecode.GOTO, done)
	a.Mark(cached).EmitU2(bytecode.GETSTATIC, cache)
	a.Mark(done).Emit(bytecode.ASTORE_0).Emit(bytecode.RETURN)

	ctx, _, body := reconstruct(t, pool, method(t, "()V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	lit, ok := stmts[0].(*instruction.Store).Value.(*instruction.ClassLiteral)
	require.True(t, ok)
	assert.Equal(t, "java/lang/String", lit.ClassName)
	assert.True(t, ctx.IsSyntheticField("class$java$lang$String"))
	assert.True(t, ctx.IsSyntheticMethod("class$", "(Ljava/lang/String;)Ljava/lang/Class;"))
}

func TestNewInstance(t *testing.T) {
	// Object o = new StringBuilder("x");
	pool := classfile.NewConstantPool()
	sb := pool.AddClass("java/lang/StringBuilder")
	init := pool.AddMethodref("java/lang/StringBuilder", "<init>", "(Ljava/lang/String;)V")
	x := pool.AddString("x")
	a := bytecode.NewAssembler()
	a.EmitU2(bytecode.NEW, sb).Emit(bytecode.DUP).EmitU1(bytecode.LDC, x).EmitU2(bytecode.INVOKESPECIAL, init)
	a.Emit(bytecode.ASTORE_0).Emit(bytecode.RETURN)

	_, _, body := reconstruct(t, pool, method(t, "()V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	n, ok := stmts[0].(*instruction.Store).Value.(*instruction.InvokeNew)
	require.True(t, ok)
	assert.Equal(t, "java/lang/StringBuilder", n.ClassName)
	assert.Equal(t, `var0 = new StringBuilder("x")`, printer.New(pool, nil).Expr(stmts[0]))
}

func TestDiscardedNewInstance(t *testing.T) {
	// new Object();
	pool := classfile.NewConstantPool()
	obj := pool.AddClass("java/lang/Object")
	init := pool.AddMethodref("java/lang/Object", "<init>", "()V")
	a := bytecode.NewAssembler()
	a.EmitU2(bytecode.NEW, obj).Emit(bytecode.DUP).EmitU2(bytecode.INVOKESPECIAL, init).Emit(bytecode.POP).Emit(bytecode.RETURN)

	_, _, body := reconstruct(t, pool, method(t, "()V", a))
	stmts := body.Statements()
	require.Len(t, stmts, 2)
	_, ok := stmts[0].(*instruction.InvokeNew)
	assert.True(t, ok)
}

func TestMissingDupStore(t *testing.T) {
	dl := &instruction.DupLoad{Header: instruction.Header{Opcode: bytecode.DUPLOAD, Offset: 4}, StoreID: 5}
	list := []instruction.Instruction{&instruction.Pop{Header: instruction.Header{Opcode: bytecode.POP, Offset: 5}, Value: dl}}
	m := &classfile.Method{Name: "m", Descriptor: "()V", Code: &classfile.Code{Bytecode: make([]byte, 6)}}
	ctx := NewClassContext(classOf(classfile.NewConstantPool(), m), nil)

	_, err := Run(ctx, NewMethodContext(m, &builder.Result{List: list}))
	require.Error(t, err)
	assert.ErrorIs(t, err, jderrors.ErrPDupStoreMissing)
	var me *jderrors.MethodError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 4, me.Offset)
}

func TestMethodWrapsBuildErrors(t *testing.T) {
	m := &classfile.Method{Name: "bad", Descriptor: "()V", Code: &classfile.Code{Bytecode: []byte{bytecode.NOP, 0xfe}}}
	ctx := NewClassContext(classOf(classfile.NewConstantPool(), m), nil)
	_, err := Method(ctx, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, jderrors.ErrBUnsupportedOpcode)
	var me *jderrors.MethodError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "p/T", me.Class)
	assert.Equal(t, "bad", me.Method)
	assert.Equal(t, 1, me.Offset)
}
