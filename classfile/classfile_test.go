package classfile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleClass() *ClassFile {
	pool := NewConstantPool()
	cf := &ClassFile{
		MajorVersion: 52,
		Pool:         pool,
		AccessFlags:  ACC_PUBLIC | ACC_SUPER,
		ThisClass:    "demo/Sample",
		SuperClass:   "java/lang/Object",
		SourceFile:   "Sample.java",
	}
	pool.AddLong(1 << 40)
	pool.AddString("héllo\x00\U0001F600")
	cf.Fields = []*Field{{AccessFlags: ACC_STATIC | ACC_SYNTHETIC, Name: "class$java$lang$String", Descriptor: "Ljava/lang/Class;"}}
	cf.Methods = []*Method{{
		AccessFlags: ACC_PUBLIC | ACC_STATIC,
		Name:        "f",
		Descriptor:  "(I)I",
		Code: &Code{
			MaxStack:       1,
			MaxLocals:      1,
			Bytecode:       []byte{0x1a, 0xac}, // iload_0 ireturn
			ExceptionTable: []CodeException{{StartPC: 0, EndPC: 1, HandlerPC: 1, CatchType: 0}},
			LineNumbers:    []LineNumber{{StartPC: 0, Line: 7}},
			LocalVariables: []LocalVariable{{StartPC: 0, Length: 2, Name: "x", Descriptor: "I", Index: 0}},
		},
	}}
	cf.InnerClasses = []InnerClass{{Inner: "demo/Sample$1", AccessFlags: ACC_STATIC}}
	return cf
}

func TestEncodeParse(t *testing.T) {
	data, err := Encode(sampleClass())
	require.NoError(t, err)

	cf, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "demo/Sample", cf.ThisClass)
	assert.Equal(t, "java/lang/Object", cf.SuperClass)
	assert.Equal(t, "Sample.java", cf.SourceFile)
	require.Len(t, cf.Methods, 1)

	m := cf.FindMethod("f", "(I)I")
	require.NotNil(t, m)
	assert.True(t, m.IsStatic())
	assert.Equal(t, []byte{0x1a, 0xac}, m.Code.Bytecode)
	assert.Equal(t, 7, m.Code.LineAt(1))
	name, ok := m.Code.LocalName(0, 0)
	assert.True(t, ok)
	assert.Equal(t, "x", name)
	assert.True(t, cf.FindField("class$java$lang$String").IsSynthetic())
	require.Len(t, cf.InnerClasses, 1)
	assert.Equal(t, "demo/Sample$1", cf.InnerClasses[0].Inner)

	// long constants take two slots; the string after it must still resolve
	s, err := cf.Pool.StringValue(4)
	require.NoError(t, err)
	assert.Equal(t, "héllo\x00\U0001F600", s)
	_, err = cf.Pool.Get(2)
	assert.ErrorIs(t, err, jderrors.ErrCInvalidConstantIndex)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0})
	assert.ErrorIs(t, err, jderrors.ErrCBadMagic)

	data, err := Encode(sampleClass())
	require.NoError(t, err)
	_, err = Parse(data[:len(data)-3])
	assert.ErrorIs(t, err, jderrors.ErrCTruncatedClass)
	assert.Equal(t, "C2", jderrors.GetErrorCode(err))
}

func TestPoolMutators(t *testing.T) {
	pool := NewConstantPool()
	mref := pool.AddMethodref("demo/A", "class$", "(Ljava/lang/String;)Ljava/lang/Class;")
	again := pool.AddMethodref("demo/A", "class$", "(Ljava/lang/String;)Ljava/lang/Class;")
	assert.Equal(t, mref, again)

	ref, err := pool.MemberRef(mref)
	require.NoError(t, err)
	assert.Equal(t, MemberRef{Owner: "demo/A", Name: "class$", Descriptor: "(Ljava/lang/String;)Ljava/lang/Class;"}, ref)

	cls := pool.AddClass("java/lang/String")
	name, err := pool.ClassName(cls)
	require.NoError(t, err)
	assert.Equal(t, "java/lang/String", name)

	_, err = pool.ClassName(mref)
	assert.True(t, errors.Is(err, jderrors.ErrCUnexpectedConstantTag))
}

func TestPoolConcurrentAdd(t *testing.T) {
	pool := NewConstantPool()
	names := []string{"a/A", "a/B", "a/C", "a/D"}
	indexes := make([][]int, 8)
	var wg sync.WaitGroup
	for g := range indexes {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for _, n := range names {
				indexes[g] = append(indexes[g], pool.AddClass(n))
				_ = pool.Entries()
			}
		}(g)
	}
	wg.Wait()

	for g := 1; g < len(indexes); g++ {
		assert.Equal(t, indexes[0], indexes[g])
	}
	assert.Equal(t, 1+2*len(names), pool.Count())
	for i, n := range names {
		name, err := pool.ClassName(indexes[0][i])
		require.NoError(t, err)
		assert.Equal(t, n, name)
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	mt, err := ParseMethodDescriptor("(IJ[Ljava/lang/String;[[D)Ljava/lang/Object;")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "J", "[Ljava/lang/String;", "[[D"}, mt.Params)
	assert.Equal(t, "Ljava/lang/Object;", mt.Return)

	_, err = ParseMethodDescriptor("(Ljava/lang/String)V")
	assert.Error(t, err)
	assert.True(t, IsAnonymousName("demo/Outer$12"))
	assert.False(t, IsAnonymousName("demo/Outer$Inner"))
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	data, err := Encode(sampleClass())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo", "Sample.class"), data, 0o644))

	l := NewDirLoader(dir)
	cf, err := l.Load("demo/Sample")
	require.NoError(t, err)
	assert.Equal(t, "demo/Sample", cf.ThisClass)

	_, err = l.Load("demo/Missing")
	assert.ErrorIs(t, err, jderrors.ErrCClassNotFound)
}
