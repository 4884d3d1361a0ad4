package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

type classWriter struct {
	buf []byte
}

func (w *classWriter) u1(v int)     { w.buf = append(w.buf, byte(v)) }
func (w *classWriter) u2(v int)     { w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v)) }
func (w *classWriter) u4(v uint32)  { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *classWriter) raw(b []byte) { w.buf = append(w.buf, b...) }

func (w *classWriter) attr(nameIndex int, body []byte) {
	w.u2(nameIndex)
	w.u4(uint32(len(body)))
	w.raw(body)
}

// Encode serializes cf. Names referenced by the model are added to
// cf.Pool when missing, so the pool may grow.
func Encode(cf *ClassFile) ([]byte, error) {
	if cf.Pool == nil {
		cf.Pool = NewConstantPool()
	}
	pool := cf.Pool

	// The body is encoded first so that every pool entry it needs exists
	// before the pool itself is written.
	body := &classWriter{}
	body.u2(int(cf.AccessFlags))
	body.u2(pool.AddClass(cf.ThisClass))
	if cf.SuperClass != "" {
		body.u2(pool.AddClass(cf.SuperClass))
	} else {
		body.u2(0)
	}
	body.u2(len(cf.Interfaces))
	for _, i := range cf.Interfaces {
		body.u2(pool.AddClass(i))
	}

	body.u2(len(cf.Fields))
	for _, f := range cf.Fields {
		body.u2(int(f.AccessFlags))
		body.u2(pool.AddUtf8(f.Name))
		body.u2(pool.AddUtf8(f.Descriptor))
		if f.ConstantValue != 0 {
			body.u2(1)
			body.attr(pool.AddUtf8("ConstantValue"), []byte{byte(f.ConstantValue >> 8), byte(f.ConstantValue)})
		} else {
			body.u2(0)
		}
	}

	body.u2(len(cf.Methods))
	for _, m := range cf.Methods {
		body.u2(int(m.AccessFlags))
		body.u2(pool.AddUtf8(m.Name))
		body.u2(pool.AddUtf8(m.Descriptor))
		if m.Code == nil {
			body.u2(0)
			continue
		}
		body.u2(1)
		body.attr(pool.AddUtf8("Code"), encodeCode(m.Code, pool))
	}

	var attrs [][2]interface{}
	if cf.SourceFile != "" {
		w := &classWriter{}
		w.u2(pool.AddUtf8(cf.SourceFile))
		attrs = append(attrs, [2]interface{}{pool.AddUtf8("SourceFile"), w.buf})
	}
	if len(cf.BootstrapMethods) > 0 {
		w := &classWriter{}
		w.u2(len(cf.BootstrapMethods))
		for _, bm := range cf.BootstrapMethods {
			w.u2(bm.MethodRef)
			w.u2(len(bm.Arguments))
			for _, a := range bm.Arguments {
				w.u2(a)
			}
		}
		attrs = append(attrs, [2]interface{}{pool.AddUtf8("BootstrapMethods"), w.buf})
	}
	if len(cf.InnerClasses) > 0 {
		w := &classWriter{}
		w.u2(len(cf.InnerClasses))
		for _, ic := range cf.InnerClasses {
			w.u2(pool.AddClass(ic.Inner))
			if ic.Outer != "" {
				w.u2(pool.AddClass(ic.Outer))
			} else {
				w.u2(0)
			}
			if ic.Name != "" {
				w.u2(pool.AddUtf8(ic.Name))
			} else {
				w.u2(0)
			}
			w.u2(int(ic.AccessFlags))
		}
		attrs = append(attrs, [2]interface{}{pool.AddUtf8("InnerClasses"), w.buf})
	}
	body.u2(len(attrs))
	for _, a := range attrs {
		body.attr(a[0].(int), a[1].([]byte))
	}

	out := &classWriter{}
	out.u4(magic)
	out.u2(int(cf.MinorVersion))
	out.u2(int(cf.MajorVersion))
	if err := encodeConstantPool(out, pool); err != nil {
		return nil, err
	}
	out.raw(body.buf)
	return out.buf, nil
}

func encodeCode(c *Code, pool *ConstantPool) []byte {
	w := &classWriter{}
	w.u2(c.MaxStack)
	w.u2(c.MaxLocals)
	w.u4(uint32(len(c.Bytecode)))
	w.raw(c.Bytecode)
	w.u2(len(c.ExceptionTable))
	for _, e := range c.ExceptionTable {
		w.u2(e.StartPC)
		w.u2(e.EndPC)
		w.u2(e.HandlerPC)
		w.u2(e.CatchType)
	}
	n := 0
	if len(c.LineNumbers) > 0 {
		n++
	}
	if len(c.LocalVariables) > 0 {
		n++
	}
	w.u2(n)
	if len(c.LineNumbers) > 0 {
		lw := &classWriter{}
		lw.u2(len(c.LineNumbers))
		for _, ln := range c.LineNumbers {
			lw.u2(ln.StartPC)
			lw.u2(ln.Line)
		}
		w.attr(pool.AddUtf8("LineNumberTable"), lw.buf)
	}
	if len(c.LocalVariables) > 0 {
		lw := &classWriter{}
		lw.u2(len(c.LocalVariables))
		for _, lv := range c.LocalVariables {
			lw.u2(lv.StartPC)
			lw.u2(lv.Length)
			lw.u2(pool.AddUtf8(lv.Name))
			lw.u2(pool.AddUtf8(lv.Descriptor))
			lw.u2(lv.Index)
		}
		w.attr(pool.AddUtf8("LocalVariableTable"), lw.buf)
	}
	return w.buf
}

func encodeConstantPool(w *classWriter, cp *ConstantPool) error {
	entries := cp.Entries()
	w.u2(len(entries))
	for i := 1; i < len(entries); i++ {
		c := entries[i]
		if c == nil {
			continue
		}
		w.u1(int(c.Tag()))
		switch v := c.(type) {
		case ConstantUtf8:
			b := encodeModifiedUTF8(v.Value)
			w.u2(len(b))
			w.raw(b)
		case ConstantInteger:
			w.u4(uint32(v.Value))
		case ConstantFloat:
			w.u4(math.Float32bits(v.Value))
		case ConstantLong:
			w.u4(uint32(uint64(v.Value) >> 32))
			w.u4(uint32(v.Value))
		case ConstantDouble:
			bits := math.Float64bits(v.Value)
			w.u4(uint32(bits >> 32))
			w.u4(uint32(bits))
		case ConstantClass:
			w.u2(v.NameIndex)
		case ConstantString:
			w.u2(v.StringIndex)
		case ConstantRef:
			w.u2(v.ClassIndex)
			w.u2(v.NameAndTypeIndex)
		case ConstantNameAndType:
			w.u2(v.NameIndex)
			w.u2(v.DescriptorIndex)
		case ConstantMethodHandle:
			w.u1(v.ReferenceKind)
			w.u2(v.ReferenceIndex)
		case ConstantMethodType:
			w.u2(v.DescriptorIndex)
		case ConstantDynamic:
			w.u2(v.BootstrapMethodAttrIndex)
			w.u2(v.NameAndTypeIndex)
		case ConstantModule:
			w.u2(v.NameIndex)
		case ConstantPackage:
			w.u2(v.NameIndex)
		default:
			return fmt.Errorf("constant #%d: cannot encode %T", i, c)
		}
	}
	return nil
}
