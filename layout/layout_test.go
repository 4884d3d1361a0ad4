package layout

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/reconstruct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, desc string, a *bytecode.Assembler) *classfile.Method {
	t.Helper()
	code, err := a.Bytes()
	require.NoError(t, err)
	m := &classfile.Method{
		AccessFlags: classfile.ACC_STATIC,
		Name:        "m",
		Descriptor:  desc,
		Code:        &classfile.Code{MaxStack: 8, MaxLocals: 8, Bytecode: code},
	}
	for _, l := range a.LineTable() {
		m.Code.LineNumbers = append(m.Code.LineNumbers, classfile.LineNumber{StartPC: l[0], Line: l[1]})
	}
	return m
}

func layoutOf(t *testing.T, pool *classfile.ConstantPool, m *classfile.Method, nested NestedBodyLayouter) []Block {
	t.Helper()
	cf := &classfile.ClassFile{Pool: pool, ThisClass: "p/T", SuperClass: "java/lang/Object", Methods: []*classfile.Method{m}}
	body, err := reconstruct.Method(reconstruct.NewClassContext(cf, nil), m)
	require.NoError(t, err)
	blocks := NewProducer(nested).Method(body, pool)
	require.NoError(t, Check(blocks))
	for _, b := range blocks {
		assert.LessOrEqual(t, b.MinimalLineCount, b.PreferedLineCount, b.String())
		assert.LessOrEqual(t, b.PreferedLineCount, b.MaximalLineCount, b.String())
		if known(b.FirstLineNumber) && known(b.LastLineNumber) {
			assert.LessOrEqual(t, b.FirstLineNumber, b.LastLineNumber, b.String())
		}
	}
	return blocks
}

func tags(blocks []Block) []Tag {
	out := make([]Tag, len(blocks))
	for i, b := range blocks {
		out[i] = b.Tag
	}
	return out
}

func TestIfLayout(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "()V")
	a := bytecode.NewAssembler()
	end := a.NewLabel()
	a.Line(5).Emit(bytecode.ILOAD_0).Emit(bytecode.ICONST_1).EmitJump(bytecode.IF_ICMPNE, end)
	a.Emit(bytecode.ILOAD_1).Emit(bytecode.ICONST_2).EmitJump(bytecode.IF_ICMPNE, end)
	a.Line(6).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Mark(end).Line(7).Emit(bytecode.RETURN)

	blocks := layoutOf(t, pool, assemble(t, "(II)V", a), nil)
	assert.Equal(t, []Tag{
		TagMethodBodyStart,
		TagFragmentIf, TagStatementsBlockStart, TagInstruction, TagStatementsBlockEnd,
		TagSeparator,
		TagInstruction,
		TagMethodBodyEnd,
	}, tags(blocks))

	cond := blocks[1]
	assert.Equal(t, 5, cond.FirstLineNumber)
	assert.Equal(t, 5, cond.LastLineNumber)
	assert.Equal(t, "if (var0 == 1 && var1 == 2)", cond.Text)
	assert.Equal(t, 6, blocks[3].FirstLineNumber)
	assert.Equal(t, "T.foo();", blocks[3].Text)
	assert.Equal(t, 7, blocks[6].FirstLineNumber)
	assert.Equal(t, UnlimitedLineCount, blocks[5].MaximalLineCount)
}

func TestLineRegressionRaised(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Line(9).Emit(bytecode.ICONST_1).Emit(bytecode.ISTORE_1)
	a.Line(4).Emit(bytecode.ICONST_2).Emit(bytecode.ISTORE_2)
	a.Line(10).Emit(bytecode.RETURN)

	blocks := layoutOf(t, classfile.NewConstantPool(), assemble(t, "()V", a), nil)
	var lines []int
	for _, b := range blocks {
		if b.Tag == TagInstruction {
			lines = append(lines, b.FirstLineNumber)
		}
	}
	assert.Equal(t, []int{9, 9, 10}, lines)
}

func TestWhileLayout(t *testing.T) {
	a := bytecode.NewAssembler()
	loop, end := a.NewLabel(), a.NewLabel()
	a.Line(3).Emit(bytecode.ICONST_0).Emit(bytecode.ISTORE_0)
	a.Mark(loop).Line(4).Emit(bytecode.ILOAD_0).EmitU1(bytecode.BIPUSH, 10).EmitJump(bytecode.IF_ICMPGE, end)
	a.Line(5).EmitIInc(0, 1).EmitJump(bytecode.GOTO, loop)
	a.Mark(end).Line(6).Emit(bytecode.RETURN)

	blocks := layoutOf(t, classfile.NewConstantPool(), assemble(t, "()V", a), nil)
	assert.Contains(t, tags(blocks), TagFragmentWhile)

	out, err := json.Marshal(blocks)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tag":"fragment-while"`)
}

type fakeNested struct{ calls int }

func (f *fakeNested) Nested(ins instruction.Instruction, minLine int) ([]Block, bool) {
	c, ok := ins.(*instruction.IConst)
	if !ok || c.Value != 42 {
		return nil, false
	}
	f.calls++
	return []Block{spanned(TagInstruction, 3, 4, "body")}, true
}

func TestNestedBodySplicing(t *testing.T) {
	pool := classfile.NewConstantPool()
	foo := pool.AddMethodref("p/T", "foo", "(I)V")
	a := bytecode.NewAssembler()
	a.Line(3).EmitU1(bytecode.BIPUSH, 42).EmitU2(bytecode.INVOKESTATIC, foo)
	a.Line(5).Emit(bytecode.RETURN)

	nested := &fakeNested{}
	blocks := layoutOf(t, pool, assemble(t, "()V", a), nested)
	assert.Equal(t, 1, nested.calls)
	assert.Equal(t, []Tag{
		TagMethodBodyStart,
		TagFragment, TagNestedBodyStart, TagInstruction, TagNestedBodyEnd, TagFragment,
		TagSeparator,
		TagInstruction,
		TagMethodBodyEnd,
	}, tags(blocks))
	assert.Equal(t, 3, blocks[1].FirstLineNumber)
	assert.Equal(t, "body", blocks[3].Text)
	assert.Equal(t, 4, blocks[5].FirstLineNumber)
	assert.Equal(t, 5, blocks[7].FirstLineNumber)
}

func TestFailedMethod(t *testing.T) {
	a := bytecode.NewAssembler()
	a.Emit(bytecode.ICONST_1).Emit(bytecode.IRETURN)
	m := assemble(t, "()I", a)
	err := jderrors.WithMethod(jderrors.AtOffset(jderrors.ErrBUnsupportedOpcode, 1), "p/T", "m", "()I")

	blocks := Failed(m, classfile.NewConstantPool(), err)
	require.NoError(t, Check(blocks))
	assert.Equal(t, []Tag{TagMethodBodyStart, TagByteCode, TagCommentError, TagMethodBodyEnd}, tags(blocks))
	bc := blocks[1]
	assert.Equal(t, 2, bc.MinimalLineCount)
	assert.Equal(t, 2, bc.MaximalLineCount)
	assert.Contains(t, bc.Text, "iconst_1")
	assert.Contains(t, bc.Text, "ireturn")
	assert.Contains(t, blocks[2].Text, "B1|UnsupportedOpcode")
	assert.Contains(t, blocks[2].Text, "p/T.m()I @1")
}

func TestMarked(t *testing.T) {
	inner := []Block{spanned(TagInstruction, 1, 1, "x")}
	out := Marked(TagMethodMarkerStart, TagMethodMarkerEnd, "m()V", inner)
	require.Len(t, out, 3)
	assert.Equal(t, TagMethodMarkerStart, out[0].Tag)
	assert.Equal(t, "m()V", out[2].Text)
	assert.NoError(t, Check(out))
}

func TestCheckViolations(t *testing.T) {
	line := func(first, last, min, pref, max int) Block {
		return Block{Tag: TagInstruction, FirstLineNumber: first, LastLineNumber: last,
			MinimalLineCount: min, PreferedLineCount: pref, MaximalLineCount: max}
	}
	cases := []struct {
		name   string
		blocks []Block
		want   error
	}{
		{"count order", []Block{line(1, 1, 2, 1, 3)}, jderrors.ErrLLineCountOrder},
		{"range", []Block{line(5, 4, 0, 0, 0)}, jderrors.ErrLLineRange},
		{"spacing", []Block{line(1, 3, 2, 2, 2), line(2, 2, 0, 0, 0)}, jderrors.ErrLBlockSpacing},
		{"spacing past maximal", []Block{line(1, 2, 1, 1, 1), line(4, 4, 0, 0, 0)}, jderrors.ErrLBlockSpacing},
		{"regression", []Block{line(4, 4, 0, 0, 0), spacer(TagSeparator, 1, ""), line(3, 3, 0, 0, 0)}, jderrors.ErrLLineRegression},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.blocks)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
	assert.NoError(t, Check([]Block{line(1, 2, 1, 1, 1), spacer(TagSeparator, 1, ""), line(2, 2, 0, 0, 0)}))
	assert.NoError(t, Check([]Block{line(1, 2, 1, 1, 1), line(2, 2, 0, 0, 0)}))
	assert.NoError(t, Check([]Block{line(1, 1, 0, 0, UnlimitedLineCount), line(9, 9, 0, 0, 0)}))
}

func TestTagText(t *testing.T) {
	var tag Tag
	require.NoError(t, tag.UnmarshalText([]byte("nested-body-end")))
	assert.Equal(t, TagNestedBodyEnd, tag)
	assert.Error(t, tag.UnmarshalText([]byte("nope")))
	assert.Equal(t, "tag(99)", Tag(99).String())
}
