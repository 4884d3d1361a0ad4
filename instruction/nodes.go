package instruction

import "github.com/colorfulnotion/jdcore/classfile"

// Constants and locals

type IConst struct {
	Header
	Value     int32
	Signature string // I, Z, C, B or S
}

type LConst struct {
	Header
	Value int64
}

type FConst struct {
	Header
	Value float32
}

type DConst struct {
	Header
	Value float64
}

type AConstNull struct{ Header }

type Ldc struct {
	Header
	Index    int
	Constant classfile.Constant
}

type Load struct {
	Header
	Index     int
	Signature string
}

type Store struct {
	Header
	Index     int
	Signature string
	Value     Instruction
}

type IInc struct {
	Header
	Index int
	Count int
}

type Ret struct {
	Header
	Index int
}

// Arrays

type ArrayLoad struct {
	Header
	Signature string
	Array     Instruction
	Index     Instruction
}

type ArrayStore struct {
	Header
	Signature string
	Array     Instruction
	Index     Instruction
	Value     Instruction
}

type NewArray struct {
	Header
	Type      int // newarray atype code
	Dimension Instruction
}

type ANewArray struct {
	Header
	ClassIndex int
	ClassName  string
	Dimension  Instruction
}

type MultiANewArray struct {
	Header
	ClassIndex int
	ClassName  string
	Dimensions []Instruction
}

type ArrayLength struct {
	Header
	Array Instruction
}

// Operators

type BinaryOp struct {
	Header
	Operator  string
	Signature string
	Left      Instruction
	Right     Instruction
}

type UnaryOp struct {
	Header
	Operator  string
	Signature string
	Value     Instruction
}

type Convert struct {
	Header
	Signature string
	Value     Instruction
}

// Compare is the three-way lcmp/fcmp/dcmp result.
type Compare struct {
	Header
	Left  Instruction
	Right Instruction
}

// Fields, calls and objects

type GetStatic struct {
	Header
	Index int
	Ref   classfile.MemberRef
}

type PutStatic struct {
	Header
	Index int
	Ref   classfile.MemberRef
	Value Instruction
}

type GetField struct {
	Header
	Index  int
	Ref    classfile.MemberRef
	Object Instruction
}

type PutField struct {
	Header
	Index  int
	Ref    classfile.MemberRef
	Object Instruction
	Value  Instruction
}

// Invoke is any invoke* instruction; Object is nil for static and dynamic
// calls. Bootstrap is the BootstrapMethods index of invokedynamic.
type Invoke struct {
	Header
	Index     int
	Ref       classfile.MemberRef
	Bootstrap int
	Object    Instruction
	Args      []Instruction
}

type New struct {
	Header
	ClassIndex int
	ClassName  string
}

type CheckCast struct {
	Header
	ClassIndex int
	ClassName  string
	Object     Instruction
}

type InstanceOf struct {
	Header
	ClassIndex int
	ClassName  string
	Object     Instruction
}

type AThrow struct {
	Header
	Value Instruction
}

type MonitorEnter struct {
	Header
	Object Instruction
}

type MonitorExit struct {
	Header
	Object Instruction
}

type Return struct{ Header }

type XReturn struct {
	Header
	Value Instruction
}

type Pop struct {
	Header
	Value Instruction
}

// Stack scaffolding

// DupStore owns a duplicated value. ID is unique within the method.
type DupStore struct {
	Header
	ID    int
	Value Instruction
}

// DupLoad is a use of the value held by the DupStore with StoreID.
type DupLoad struct {
	Header
	StoreID   int
	Signature string
}

// ExceptionLoad is the exception object pushed at a handler entry.
type ExceptionLoad struct {
	Header
	CatchType int
	Signature string
}

// ReturnAddressLoad is the address pushed by jsr at its target.
type ReturnAddressLoad struct{ Header }

// TernaryOpStore is a goto executed with a value on the stack: the first
// value of a ternary operator. SecondValue is the stack top observed at the
// goto target.
type TernaryOpStore struct {
	Header
	Value       Instruction
	Branch      int
	SecondValue Instruction
}

// Branches

type Goto struct {
	Header
	Branch int
}

type Jsr struct {
	Header
	Branch int
}

// If compares Value against zero.
type If struct {
	Header
	Cmp    Cmp
	Value  Instruction
	Branch int
}

type IfCmp struct {
	Header
	Cmp    Cmp
	Left   Instruction
	Right  Instruction
	Branch int
}

// IfNull tests Value against null; Cmp is CmpEQ for ifnull and CmpNE for
// ifnonnull.
type IfNull struct {
	Header
	Cmp    Cmp
	Value  Instruction
	Branch int
}

// ComplexIf combines conditional branches with CmpAND or CmpOR. Children
// are kept in source order.
type ComplexIf struct {
	Header
	Cmp      Cmp
	Branches []Instruction
	Branch   int
}

type TableSwitch struct {
	Header
	Key       Instruction
	Default   int
	Low       int
	Offsets   []int
	EnumNames map[int]string
}

type LookupSwitch struct {
	Header
	Key       Instruction
	Default   int
	Keys      []int
	Offsets   []int
	EnumNames map[int]string
}

// Reconstructed expressions

type TernaryOp struct {
	Header
	Test   Instruction
	Value1 Instruction
	Value2 Instruction
}

type InitArray struct {
	Header
	NewArray Instruction
	Values   []Instruction
}

type InvokeNew struct {
	Header
	Index     int
	Ref       classfile.MemberRef
	ClassName string
	Args      []Instruction
}

type Assignment struct {
	Header
	Target Instruction
	Value  Instruction
}

// Increment is a pre (PREINC) or post (POSTINC) increment of Target.
type Increment struct {
	Header
	Target Instruction
	Count  int
}

type ClassLiteral struct {
	Header
	ClassIndex int
	ClassName  string
}

type TempStore struct {
	Header
	ID    int
	Value Instruction
}

type TempLoad struct {
	Header
	ID        int
	Signature string
}

type Synchronized struct {
	Header
	Monitor Instruction
	Body    []Instruction
}

// Structured statements

type IfStatement struct {
	Header
	Condition Instruction
	Then      []Instruction
}

type IfElseStatement struct {
	Header
	Condition Instruction
	Then      []Instruction
	Else      []Instruction
}

type WhileStatement struct {
	Header
	Condition Instruction
	Body      []Instruction
}

type DoWhileStatement struct {
	Header
	Condition Instruction
	Body      []Instruction
}

// Label marks a jump target kept for branches the structurer left alone.
type Label struct{ Header }

func (b *Goto) JumpOffset() int               { return b.Offset + b.Branch }
func (b *Jsr) JumpOffset() int                { return b.Offset + b.Branch }
func (b *If) JumpOffset() int                 { return b.Offset + b.Branch }
func (b *IfCmp) JumpOffset() int              { return b.Offset + b.Branch }
func (b *IfNull) JumpOffset() int             { return b.Offset + b.Branch }
func (b *ComplexIf) JumpOffset() int          { return b.Offset + b.Branch }
func (b *TernaryOpStore) JumpOffset() int     { return b.Offset + b.Branch }
func (b *Goto) SetJumpOffset(t int)           { b.Branch = t - b.Offset }
func (b *Jsr) SetJumpOffset(t int)            { b.Branch = t - b.Offset }
func (b *If) SetJumpOffset(t int)             { b.Branch = t - b.Offset }
func (b *IfCmp) SetJumpOffset(t int)          { b.Branch = t - b.Offset }
func (b *IfNull) SetJumpOffset(t int)         { b.Branch = t - b.Offset }
func (b *ComplexIf) SetJumpOffset(t int)      { b.Branch = t - b.Offset }
func (b *TernaryOpStore) SetJumpOffset(t int) { b.Branch = t - b.Offset }
func (b *IfCmp) Invert()                      { b.Cmp = b.Cmp.Inverse() }
func (b *IfNull) Invert()                     { b.Cmp = b.Cmp.Inverse() }

// Invert on a branch over a ternary of two conditions negates both arms.
func (b *If) Invert() {
	if op, ok := b.Value.(*TernaryOp); ok && b.Cmp == CmpNE {
		v1, ok1 := op.Value1.(Conditional)
		v2, ok2 := op.Value2.(Conditional)
		if ok1 && ok2 {
			v1.Invert()
			v2.Invert()
			return
		}
	}
	b.Cmp = b.Cmp.Inverse()
}

// Invert applies De Morgan: the combinator flips and every child is negated.
func (b *ComplexIf) Invert() {
	b.Cmp = b.Cmp.Inverse()
	for _, c := range b.Branches {
		c.(Conditional).Invert()
	}
}
