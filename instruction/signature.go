package instruction

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
)

const objectSignature = "Ljava/lang/Object;"

// ValueSignature returns a best-effort field descriptor for the value ins
// produces, "" when unknown or void.
func ValueSignature(ins Instruction) string {
	switch n := ins.(type) {
	case *IConst:
		if n.Signature != "" {
			return n.Signature
		}
		return "I"
	case *LConst:
		return "J"
	case *FConst:
		return "F"
	case *DConst:
		return "D"
	case *AConstNull:
		return objectSignature
	case *Ldc:
		switch n.Constant.(type) {
		case classfile.ConstantInteger:
			return "I"
		case classfile.ConstantFloat:
			return "F"
		case classfile.ConstantLong:
			return "J"
		case classfile.ConstantDouble:
			return "D"
		case classfile.ConstantString:
			return "Ljava/lang/String;"
		case classfile.ConstantClass:
			return "Ljava/lang/Class;"
		}
		return objectSignature
	case *Load:
		return n.Signature
	case *ArrayLoad:
		return n.Signature
	case *BinaryOp:
		return n.Signature
	case *UnaryOp:
		return n.Signature
	case *Convert:
		return n.Signature
	case *Compare, *ArrayLength:
		return "I"
	case *InstanceOf:
		return "Z"
	case *GetStatic:
		return n.Ref.Descriptor
	case *GetField:
		return n.Ref.Descriptor
	case *Invoke:
		if mt, err := classfile.ParseMethodDescriptor(n.Ref.Descriptor); err == nil && mt.Return != "V" {
			return mt.Return
		}
		return ""
	case *New:
		return classfile.ClassNameToSignature(n.ClassName)
	case *InvokeNew:
		return classfile.ClassNameToSignature(n.ClassName)
	case *CheckCast:
		return classfile.ClassNameToSignature(n.ClassName)
	case *NewArray:
		return "[" + bytecode.ArrayTypeSignature(n.Type)
	case *ANewArray:
		return "[" + classfile.ClassNameToSignature(n.ClassName)
	case *MultiANewArray:
		return n.ClassName
	case *InitArray:
		return ValueSignature(n.NewArray)
	case *DupLoad:
		return n.Signature
	case *DupStore:
		return ValueSignature(n.Value)
	case *TempLoad:
		return n.Signature
	case *ExceptionLoad:
		return n.Signature
	case *ReturnAddressLoad:
		return "ReturnAddress"
	case *TernaryOp:
		if s := ValueSignature(n.Value1); s != "" {
			return s
		}
		return ValueSignature(n.Value2)
	case *Assignment:
		return ValueSignature(n.Target)
	case *Increment:
		return ValueSignature(n.Target)
	case *ClassLiteral:
		return "Ljava/lang/Class;"
	case *ComplexIf, *If, *IfCmp, *IfNull:
		return "Z"
	}
	return ""
}

// IsCategory2 reports whether the value of ins takes two stack slots.
func IsCategory2(ins Instruction) bool {
	return classfile.IsCategory2(ValueSignature(ins))
}

// ZeroValue synthesizes the default element value for an array signature
// element, positioned at h.
func ZeroValue(elementSignature string, h Header) Instruction {
	switch elementSignature {
	case "J":
		h.Opcode = bytecode.LCONST
		return &LConst{Header: h}
	case "F":
		h.Opcode = bytecode.FCONST
		return &FConst{Header: h}
	case "D":
		h.Opcode = bytecode.DCONST
		return &DConst{Header: h}
	case "I", "Z", "C", "B", "S":
		h.Opcode = bytecode.ICONST
		return &IConst{Header: h, Signature: elementSignature}
	}
	h.Opcode = bytecode.NULLCONST
	return &AConstNull{Header: h}
}

// IsSimpleValue reports whether ins can be evaluated again without side
// effects or cost: constants, local loads and static field reads.
func IsSimpleValue(ins Instruction) bool {
	switch ins.(type) {
	case *IConst, *LConst, *FConst, *DConst, *AConstNull, *Ldc, *Load, *GetStatic, *ClassLiteral, *TempLoad:
		return true
	}
	return false
}

// CloneSimple copies a simple value, giving the copy offset and line. Copies
// of real opcodes are tagged REPLICA. It returns nil for values
// IsSimpleValue rejects.
func CloneSimple(ins Instruction, offset, line int) Instruction {
	var c Instruction
	switch n := ins.(type) {
	case *IConst:
		v := *n
		c = &v
	case *LConst:
		v := *n
		c = &v
	case *FConst:
		v := *n
		c = &v
	case *DConst:
		v := *n
		c = &v
	case *AConstNull:
		v := *n
		c = &v
	case *Ldc:
		v := *n
		c = &v
	case *Load:
		v := *n
		c = &v
	case *GetStatic:
		v := *n
		c = &v
	case *ClassLiteral:
		v := *n
		c = &v
	case *TempLoad:
		v := *n
		c = &v
	default:
		return nil
	}
	h := c.Base()
	h.Offset, h.LineNumber = offset, line
	if !bytecode.IsPseudo(h.Opcode) {
		h.Opcode = bytecode.REPLICA
	}
	return c
}
