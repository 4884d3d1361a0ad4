package classfile

import "strings"

// Access flags
const (
	ACC_PUBLIC       = 0x0001
	ACC_PRIVATE      = 0x0002
	ACC_PROTECTED    = 0x0004
	ACC_STATIC       = 0x0008
	ACC_FINAL        = 0x0010
	ACC_SYNCHRONIZED = 0x0020
	ACC_SUPER        = 0x0020
	ACC_VOLATILE     = 0x0040
	ACC_BRIDGE       = 0x0040
	ACC_TRANSIENT    = 0x0080
	ACC_VARARGS      = 0x0080
	ACC_NATIVE       = 0x0100
	ACC_INTERFACE    = 0x0200
	ACC_ABSTRACT     = 0x0400
	ACC_STRICT       = 0x0800
	ACC_SYNTHETIC    = 0x1000
	ACC_ANNOTATION   = 0x2000
	ACC_ENUM         = 0x4000
)

// Method handle kinds used by BootstrapMethods arguments.
const (
	REF_getField         = 1
	REF_getStatic        = 2
	REF_putField         = 3
	REF_putStatic        = 4
	REF_invokeVirtual    = 5
	REF_invokeStatic     = 6
	REF_invokeSpecial    = 7
	REF_newInvokeSpecial = 8
	REF_invokeInterface  = 9
)

type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	Pool             *ConstantPool
	AccessFlags      uint16
	ThisClass        string
	SuperClass       string
	Interfaces       []string
	Fields           []*Field
	Methods          []*Method
	SourceFile       string
	BootstrapMethods []BootstrapMethod
	InnerClasses     []InnerClass
}

type Field struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	// ConstantValue is the pool index of the ConstantValue attribute, 0 if absent.
	ConstantValue int
}

type Method struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        *Code
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack       int
	MaxLocals      int
	Bytecode       []byte
	ExceptionTable []CodeException
	LineNumbers    []LineNumber
	LocalVariables []LocalVariable
}

// CodeException is one exception table row. CatchType 0 catches everything.
type CodeException struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType int
}

type LineNumber struct {
	StartPC int
	Line    int
}

type LocalVariable struct {
	StartPC    int
	Length     int
	Name       string
	Descriptor string
	Index      int
}

type BootstrapMethod struct {
	MethodRef int
	Arguments []int
}

type InnerClass struct {
	Inner       string
	Outer       string
	Name        string
	AccessFlags uint16
}

func (m *Method) IsStatic() bool    { return m.AccessFlags&ACC_STATIC != 0 }
func (m *Method) IsSynthetic() bool { return m.AccessFlags&ACC_SYNTHETIC != 0 }
func (f *Field) IsStatic() bool     { return f.AccessFlags&ACC_STATIC != 0 }
func (f *Field) IsSynthetic() bool  { return f.AccessFlags&ACC_SYNTHETIC != 0 }

// FindMethod returns the method with the given name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *Method {
	for _, m := range cf.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindField returns the field with the given name.
func (cf *ClassFile) FindField(name string) *Field {
	for _, f := range cf.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsAnonymousName reports whether an internal class name looks like a
// javac anonymous class, Outer$<digits>.
func IsAnonymousName(name string) bool {
	i := strings.LastIndexByte(name, '$')
	if i < 0 || i == len(name)-1 {
		return false
	}
	for _, r := range name[i+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LineAt returns the source line covering offset, or -1 without a line table.
func (c *Code) LineAt(offset int) int {
	line := -1
	best := -1
	for _, ln := range c.LineNumbers {
		if ln.StartPC <= offset && ln.StartPC > best {
			best, line = ln.StartPC, ln.Line
		}
	}
	return line
}

// LocalName returns the debug name of local slot index live at offset.
func (c *Code) LocalName(index, offset int) (string, bool) {
	for _, lv := range c.LocalVariables {
		if lv.Index == index && offset >= lv.StartPC-2 && offset < lv.StartPC+lv.Length {
			return lv.Name, true
		}
	}
	return "", false
}
