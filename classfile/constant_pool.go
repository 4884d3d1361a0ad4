package classfile

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/jdcore/jderrors"
)

const (
	CONSTANT_Utf8               = 1
	CONSTANT_Integer            = 3
	CONSTANT_Float              = 4
	CONSTANT_Long               = 5
	CONSTANT_Double             = 6
	CONSTANT_Class              = 7
	CONSTANT_String             = 8
	CONSTANT_Fieldref           = 9
	CONSTANT_Methodref          = 10
	CONSTANT_InterfaceMethodref = 11
	CONSTANT_NameAndType        = 12
	CONSTANT_MethodHandle       = 15
	CONSTANT_MethodType         = 16
	CONSTANT_Dynamic            = 17
	CONSTANT_InvokeDynamic      = 18
	CONSTANT_Module             = 19
	CONSTANT_Package            = 20
)

// Constant is one constant pool entry.
type Constant interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }
type ConstantInteger struct{ Value int32 }
type ConstantFloat struct{ Value float32 }
type ConstantLong struct{ Value int64 }
type ConstantDouble struct{ Value float64 }
type ConstantClass struct{ NameIndex int }
type ConstantString struct{ StringIndex int }
type ConstantMethodType struct{ DescriptorIndex int }
type ConstantModule struct{ NameIndex int }
type ConstantPackage struct{ NameIndex int }

type ConstantNameAndType struct {
	NameIndex       int
	DescriptorIndex int
}

// ConstantRef covers Fieldref, Methodref and InterfaceMethodref entries.
type ConstantRef struct {
	RefTag           uint8
	ClassIndex       int
	NameAndTypeIndex int
}

type ConstantMethodHandle struct {
	ReferenceKind  int
	ReferenceIndex int
}

// ConstantDynamic covers Dynamic and InvokeDynamic entries.
type ConstantDynamic struct {
	DynTag                   uint8
	BootstrapMethodAttrIndex int
	NameAndTypeIndex         int
}

func (ConstantUtf8) Tag() uint8         { return CONSTANT_Utf8 }
func (ConstantInteger) Tag() uint8      { return CONSTANT_Integer }
func (ConstantFloat) Tag() uint8        { return CONSTANT_Float }
func (ConstantLong) Tag() uint8         { return CONSTANT_Long }
func (ConstantDouble) Tag() uint8       { return CONSTANT_Double }
func (ConstantClass) Tag() uint8        { return CONSTANT_Class }
func (ConstantString) Tag() uint8       { return CONSTANT_String }
func (ConstantMethodType) Tag() uint8   { return CONSTANT_MethodType }
func (ConstantModule) Tag() uint8       { return CONSTANT_Module }
func (ConstantPackage) Tag() uint8      { return CONSTANT_Package }
func (ConstantNameAndType) Tag() uint8  { return CONSTANT_NameAndType }
func (c ConstantRef) Tag() uint8        { return c.RefTag }
func (ConstantMethodHandle) Tag() uint8 { return CONSTANT_MethodHandle }
func (c ConstantDynamic) Tag() uint8    { return c.DynTag }

// MemberRef is a resolved field or method reference.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

func (m MemberRef) String() string {
	return m.Owner + "." + m.Name + ":" + m.Descriptor
}

// ConstantPool holds entries at their class file indexes. Index 0 and the
// slot following a long or double are nil. Passes append entries while
// other classes may read the pool through a shared loader, so access is
// guarded.
type ConstantPool struct {
	mu      sync.RWMutex
	entries []Constant
}

// NewConstantPool returns an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{entries: []Constant{nil}}
}

// Count returns constant_pool_count as written in a class file.
func (cp *ConstantPool) Count() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.entries)
}

// Get returns the entry at index.
func (cp *ConstantPool) Get(index int) (Constant, error) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if index <= 0 || index >= len(cp.entries) || cp.entries[index] == nil {
		return nil, fmt.Errorf("constant #%d: %w", index, jderrors.ErrCInvalidConstantIndex)
	}
	return cp.entries[index], nil
}

func (cp *ConstantPool) tagMismatch(index int, c Constant, want uint8) error {
	return fmt.Errorf("constant #%d has tag %d, want %d: %w", index, c.Tag(), want, jderrors.ErrCUnexpectedConstantTag)
}

// Utf8 returns the string stored in a CONSTANT_Utf8 entry.
func (cp *ConstantPool) Utf8(index int) (string, error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	u, ok := c.(ConstantUtf8)
	if !ok {
		return "", cp.tagMismatch(index, c, CONSTANT_Utf8)
	}
	return u.Value, nil
}

// ClassName returns the internal name of a CONSTANT_Class entry.
func (cp *ConstantPool) ClassName(index int) (string, error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	k, ok := c.(ConstantClass)
	if !ok {
		return "", cp.tagMismatch(index, c, CONSTANT_Class)
	}
	return cp.Utf8(k.NameIndex)
}

// StringValue returns the value of a CONSTANT_String entry.
func (cp *ConstantPool) StringValue(index int) (string, error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	s, ok := c.(ConstantString)
	if !ok {
		return "", cp.tagMismatch(index, c, CONSTANT_String)
	}
	return cp.Utf8(s.StringIndex)
}

// NameAndType resolves a CONSTANT_NameAndType entry.
func (cp *ConstantPool) NameAndType(index int) (name, descriptor string, err error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", "", err
	}
	nt, ok := c.(ConstantNameAndType)
	if !ok {
		return "", "", cp.tagMismatch(index, c, CONSTANT_NameAndType)
	}
	if name, err = cp.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	descriptor, err = cp.Utf8(nt.DescriptorIndex)
	return name, descriptor, err
}

// MemberRef resolves a field, method or interface method reference.
func (cp *ConstantPool) MemberRef(index int) (MemberRef, error) {
	c, err := cp.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	r, ok := c.(ConstantRef)
	if !ok {
		return MemberRef{}, cp.tagMismatch(index, c, CONSTANT_Methodref)
	}
	owner, err := cp.ClassName(r.ClassIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := cp.NameAndType(r.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc, Interface: r.RefTag == CONSTANT_InterfaceMethodref}, nil
}

// InvokeDynamic resolves a CONSTANT_InvokeDynamic entry to its bootstrap
// index and call site name and descriptor.
func (cp *ConstantPool) InvokeDynamic(index int) (bootstrap int, name, descriptor string, err error) {
	c, err := cp.Get(index)
	if err != nil {
		return 0, "", "", err
	}
	d, ok := c.(ConstantDynamic)
	if !ok {
		return 0, "", "", cp.tagMismatch(index, c, CONSTANT_InvokeDynamic)
	}
	name, descriptor, err = cp.NameAndType(d.NameAndTypeIndex)
	return d.BootstrapMethodAttrIndex, name, descriptor, err
}

// MethodHandle resolves a CONSTANT_MethodHandle to its kind and member.
func (cp *ConstantPool) MethodHandle(index int) (int, MemberRef, error) {
	c, err := cp.Get(index)
	if err != nil {
		return 0, MemberRef{}, err
	}
	h, ok := c.(ConstantMethodHandle)
	if !ok {
		return 0, MemberRef{}, cp.tagMismatch(index, c, CONSTANT_MethodHandle)
	}
	ref, err := cp.MemberRef(h.ReferenceIndex)
	return h.ReferenceKind, ref, err
}

// Add appends c, reusing an equal existing entry, and returns its index.
func (cp *ConstantPool) Add(c Constant) int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for i, e := range cp.entries {
		if e != nil && e == c {
			return i
		}
	}
	index := len(cp.entries)
	cp.entries = append(cp.entries, c)
	if t := c.Tag(); t == CONSTANT_Long || t == CONSTANT_Double {
		cp.entries = append(cp.entries, nil)
	}
	return index
}

// AddUtf8 appends (or finds) a CONSTANT_Utf8 entry.
func (cp *ConstantPool) AddUtf8(s string) int {
	return cp.Add(ConstantUtf8{Value: s})
}

// AddClass appends (or finds) a CONSTANT_Class entry for an internal name.
func (cp *ConstantPool) AddClass(internalName string) int {
	return cp.Add(ConstantClass{NameIndex: cp.AddUtf8(internalName)})
}

// AddString appends (or finds) a CONSTANT_String entry.
func (cp *ConstantPool) AddString(s string) int {
	return cp.Add(ConstantString{StringIndex: cp.AddUtf8(s)})
}

// AddNameAndType appends (or finds) a CONSTANT_NameAndType entry.
func (cp *ConstantPool) AddNameAndType(name, descriptor string) int {
	return cp.Add(ConstantNameAndType{NameIndex: cp.AddUtf8(name), DescriptorIndex: cp.AddUtf8(descriptor)})
}

// AddFieldref appends (or finds) a CONSTANT_Fieldref entry.
func (cp *ConstantPool) AddFieldref(owner, name, descriptor string) int {
	return cp.Add(ConstantRef{RefTag: CONSTANT_Fieldref, ClassIndex: cp.AddClass(owner), NameAndTypeIndex: cp.AddNameAndType(name, descriptor)})
}

// AddMethodref appends (or finds) a CONSTANT_Methodref entry.
func (cp *ConstantPool) AddMethodref(owner, name, descriptor string) int {
	return cp.Add(ConstantRef{RefTag: CONSTANT_Methodref, ClassIndex: cp.AddClass(owner), NameAndTypeIndex: cp.AddNameAndType(name, descriptor)})
}

// AddInterfaceMethodref appends (or finds) a CONSTANT_InterfaceMethodref entry.
func (cp *ConstantPool) AddInterfaceMethodref(owner, name, descriptor string) int {
	return cp.Add(ConstantRef{RefTag: CONSTANT_InterfaceMethodref, ClassIndex: cp.AddClass(owner), NameAndTypeIndex: cp.AddNameAndType(name, descriptor)})
}

// AddInteger appends (or finds) a CONSTANT_Integer entry.
func (cp *ConstantPool) AddInteger(v int32) int { return cp.Add(ConstantInteger{Value: v}) }

// AddLong appends (or finds) a CONSTANT_Long entry.
func (cp *ConstantPool) AddLong(v int64) int { return cp.Add(ConstantLong{Value: v}) }

// AddFloat appends (or finds) a CONSTANT_Float entry.
func (cp *ConstantPool) AddFloat(v float32) int { return cp.Add(ConstantFloat{Value: v}) }

// AddDouble appends (or finds) a CONSTANT_Double entry.
func (cp *ConstantPool) AddDouble(v float64) int { return cp.Add(ConstantDouble{Value: v}) }

// AddMethodHandle appends (or finds) a CONSTANT_MethodHandle entry.
func (cp *ConstantPool) AddMethodHandle(kind, refIndex int) int {
	return cp.Add(ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex})
}

// AddMethodType appends (or finds) a CONSTANT_MethodType entry.
func (cp *ConstantPool) AddMethodType(descriptor string) int {
	return cp.Add(ConstantMethodType{DescriptorIndex: cp.AddUtf8(descriptor)})
}

// AddInvokeDynamic appends (or finds) a CONSTANT_InvokeDynamic entry.
func (cp *ConstantPool) AddInvokeDynamic(bootstrap int, name, descriptor string) int {
	return cp.Add(ConstantDynamic{DynTag: CONSTANT_InvokeDynamic, BootstrapMethodAttrIndex: bootstrap, NameAndTypeIndex: cp.AddNameAndType(name, descriptor)})
}

// Describe renders an entry for listings and error comments.
func (cp *ConstantPool) Describe(index int) string {
	c, err := cp.Get(index)
	if err != nil {
		return "<invalid>"
	}
	switch v := c.(type) {
	case ConstantUtf8:
		return fmt.Sprintf("%q", v.Value)
	case ConstantInteger:
		return fmt.Sprint(v.Value)
	case ConstantFloat:
		return fmt.Sprintf("%gf", v.Value)
	case ConstantLong:
		return fmt.Sprintf("%dL", v.Value)
	case ConstantDouble:
		return fmt.Sprintf("%gd", v.Value)
	case ConstantClass:
		name, _ := cp.ClassName(index)
		return "class " + name
	case ConstantString:
		s, _ := cp.StringValue(index)
		return fmt.Sprintf("%q", s)
	case ConstantRef:
		ref, err := cp.MemberRef(index)
		if err != nil {
			return "<invalid ref>"
		}
		return ref.String()
	case ConstantNameAndType:
		name, desc, _ := cp.NameAndType(index)
		return name + ":" + desc
	case ConstantDynamic:
		_, name, desc, _ := cp.InvokeDynamic(index)
		return fmt.Sprintf("indy #%d %s%s", v.BootstrapMethodAttrIndex, name, desc)
	}
	return fmt.Sprintf("tag %d", c.Tag())
}

// Entries returns a copy of the raw slots for encoding.
func (cp *ConstantPool) Entries() []Constant {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]Constant(nil), cp.entries...)
}
