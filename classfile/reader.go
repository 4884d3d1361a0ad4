package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/log"
)

const magic = 0xCAFEBABE

type classReader struct {
	data []byte
	pos  int
	err  error
}

func (r *classReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("need %d bytes at %d of %d: %w", n, r.pos, len(r.data), jderrors.ErrCTruncatedClass)
		return false
	}
	return true
}

func (r *classReader) u1() int {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return int(v)
}

func (r *classReader) u2() int {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return int(v)
}

func (r *classReader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *classReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &classReader{data: data}
	if r.u4() != magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, jderrors.ErrCBadMagic
	}
	cf := &ClassFile{}
	cf.MinorVersion = uint16(r.u2())
	cf.MajorVersion = uint16(r.u2())
	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool
	cf.AccessFlags = uint16(r.u2())

	if cf.ThisClass, err = pool.ClassName(r.u2()); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if super := r.u2(); super != 0 {
		if cf.SuperClass, err = pool.ClassName(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}
	for i, n := 0, r.u2(); i < n; i++ {
		name, err := pool.ClassName(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	for i, n := 0, r.u2(); i < n && r.err == nil; i++ {
		f, err := readField(r, pool)
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		cf.Fields = append(cf.Fields, f)
	}
	for i, n := 0, r.u2(); i < n && r.err == nil; i++ {
		m, err := readMethod(r, pool)
		if err != nil {
			return nil, fmt.Errorf("methods[%d]: %w", i, err)
		}
		cf.Methods = append(cf.Methods, m)
	}
	if err := readClassAttributes(r, cf); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	log.Debug(log.ClassMonitoring, "class parsed", "class", cf.ThisClass, "methods", len(cf.Methods), "constants", pool.Count())
	return cf, nil
}

func readConstantPool(r *classReader) (*ConstantPool, error) {
	count := r.u2()
	cp := &ConstantPool{entries: make([]Constant, count)}
	for i := 1; i < count; i++ {
		tag := r.u1()
		var c Constant
		switch tag {
		case CONSTANT_Utf8:
			s, err := decodeModifiedUTF8(r.bytes(r.u2()))
			if err != nil {
				return nil, fmt.Errorf("constant #%d: %w", i, err)
			}
			c = ConstantUtf8{Value: s}
		case CONSTANT_Integer:
			c = ConstantInteger{Value: int32(r.u4())}
		case CONSTANT_Float:
			c = ConstantFloat{Value: math.Float32frombits(r.u4())}
		case CONSTANT_Long:
			hi := uint64(r.u4())
			c = ConstantLong{Value: int64(hi<<32 | uint64(r.u4()))}
		case CONSTANT_Double:
			hi := uint64(r.u4())
			c = ConstantDouble{Value: math.Float64frombits(hi<<32 | uint64(r.u4()))}
		case CONSTANT_Class:
			c = ConstantClass{NameIndex: r.u2()}
		case CONSTANT_String:
			c = ConstantString{StringIndex: r.u2()}
		case CONSTANT_Fieldref, CONSTANT_Methodref, CONSTANT_InterfaceMethodref:
			c = ConstantRef{RefTag: uint8(tag), ClassIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case CONSTANT_NameAndType:
			c = ConstantNameAndType{NameIndex: r.u2(), DescriptorIndex: r.u2()}
		case CONSTANT_MethodHandle:
			c = ConstantMethodHandle{ReferenceKind: r.u1(), ReferenceIndex: r.u2()}
		case CONSTANT_MethodType:
			c = ConstantMethodType{DescriptorIndex: r.u2()}
		case CONSTANT_Dynamic, CONSTANT_InvokeDynamic:
			c = ConstantDynamic{DynTag: uint8(tag), BootstrapMethodAttrIndex: r.u2(), NameAndTypeIndex: r.u2()}
		case CONSTANT_Module:
			c = ConstantModule{NameIndex: r.u2()}
		case CONSTANT_Package:
			c = ConstantPackage{NameIndex: r.u2()}
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("constant #%d: tag %d: %w", i, tag, jderrors.ErrCUnexpectedConstantTag)
		}
		if r.err != nil {
			return nil, r.err
		}
		cp.entries[i] = c
		if tag == CONSTANT_Long || tag == CONSTANT_Double {
			i++
		}
	}
	return cp, nil
}

type rawAttribute struct {
	name string
	data []byte
}

func readAttributes(r *classReader, pool *ConstantPool) ([]rawAttribute, error) {
	n := r.u2()
	attrs := make([]rawAttribute, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		nameIndex := r.u2()
		if r.err != nil {
			return nil, r.err
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute name: %w", err)
		}
		length := int(r.u4())
		attrs = append(attrs, rawAttribute{name: name, data: r.bytes(length)})
	}
	return attrs, r.err
}

func readField(r *classReader, pool *ConstantPool) (*Field, error) {
	f := &Field{AccessFlags: uint16(r.u2())}
	var err error
	if f.Name, err = pool.Utf8(r.u2()); err != nil {
		return nil, err
	}
	if f.Descriptor, err = pool.Utf8(r.u2()); err != nil {
		return nil, err
	}
	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		switch a.name {
		case "ConstantValue":
			sub := &classReader{data: a.data}
			f.ConstantValue = sub.u2()
			if sub.err != nil {
				return nil, sub.err
			}
		case "Synthetic":
			f.AccessFlags |= ACC_SYNTHETIC
		}
	}
	return f, nil
}

func readMethod(r *classReader, pool *ConstantPool) (*Method, error) {
	m := &Method{AccessFlags: uint16(r.u2())}
	var err error
	if m.Name, err = pool.Utf8(r.u2()); err != nil {
		return nil, err
	}
	if m.Descriptor, err = pool.Utf8(r.u2()); err != nil {
		return nil, err
	}
	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		switch a.name {
		case "Code":
			if m.Code, err = readCode(a.data, pool); err != nil {
				return nil, fmt.Errorf("%s%s Code: %w", m.Name, m.Descriptor, err)
			}
		case "Synthetic":
			m.AccessFlags |= ACC_SYNTHETIC
		}
	}
	return m, nil
}

func readCode(data []byte, pool *ConstantPool) (*Code, error) {
	r := &classReader{data: data}
	c := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	c.Bytecode = r.bytes(int(r.u4()))
	for i, n := 0, r.u2(); i < n && r.err == nil; i++ {
		c.ExceptionTable = append(c.ExceptionTable, CodeException{
			StartPC: r.u2(), EndPC: r.u2(), HandlerPC: r.u2(), CatchType: r.u2(),
		})
	}
	attrs, err := readAttributes(r, pool)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		sub := &classReader{data: a.data}
		switch a.name {
		case "LineNumberTable":
			for i, n := 0, sub.u2(); i < n && sub.err == nil; i++ {
				c.LineNumbers = append(c.LineNumbers, LineNumber{StartPC: sub.u2(), Line: sub.u2()})
			}
		case "LocalVariableTable":
			for i, n := 0, sub.u2(); i < n && sub.err == nil; i++ {
				lv := LocalVariable{StartPC: sub.u2(), Length: sub.u2()}
				if lv.Name, err = pool.Utf8(sub.u2()); err != nil {
					return nil, err
				}
				if lv.Descriptor, err = pool.Utf8(sub.u2()); err != nil {
					return nil, err
				}
				lv.Index = sub.u2()
				c.LocalVariables = append(c.LocalVariables, lv)
			}
		}
		if sub.err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, sub.err)
		}
	}
	return c, nil
}

func readClassAttributes(r *classReader, cf *ClassFile) error {
	attrs, err := readAttributes(r, cf.Pool)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		sub := &classReader{data: a.data}
		switch a.name {
		case "SourceFile":
			if cf.SourceFile, err = cf.Pool.Utf8(sub.u2()); err != nil {
				return err
			}
		case "BootstrapMethods":
			for i, n := 0, sub.u2(); i < n && sub.err == nil; i++ {
				bm := BootstrapMethod{MethodRef: sub.u2()}
				for j, k := 0, sub.u2(); j < k && sub.err == nil; j++ {
					bm.Arguments = append(bm.Arguments, sub.u2())
				}
				cf.BootstrapMethods = append(cf.BootstrapMethods, bm)
			}
		case "InnerClasses":
			for i, n := 0, sub.u2(); i < n && sub.err == nil; i++ {
				var ic InnerClass
				inner, outer, name := sub.u2(), sub.u2(), sub.u2()
				ic.AccessFlags = uint16(sub.u2())
				if ic.Inner, err = cf.Pool.ClassName(inner); err != nil {
					return err
				}
				if outer != 0 {
					if ic.Outer, err = cf.Pool.ClassName(outer); err != nil {
						return err
					}
				}
				if name != 0 {
					if ic.Name, err = cf.Pool.Utf8(name); err != nil {
						return err
					}
				}
				cf.InnerClasses = append(cf.InnerClasses, ic)
			}
		}
		if sub.err != nil {
			return fmt.Errorf("%s: %w", a.name, sub.err)
		}
	}
	return nil
}

// decodeModifiedUTF8 decodes the JVM variant of UTF-8: NUL is two bytes and
// supplementary characters are surrogate pairs of three bytes each.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", jderrors.ErrCBadUtf8
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", jderrors.ErrCBadUtf8
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", jderrors.ErrCBadUtf8
		}
	}
	return string(utf16.Decode(units)), nil
}

// encodeModifiedUTF8 is the inverse of decodeModifiedUTF8.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, byte(0xC0|u>>6), byte(0x80|u&0x3F))
		default:
			out = append(out, byte(0xE0|u>>12), byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		}
	}
	return out
}
