package bytecode

import (
	"fmt"
	"strings"
)

// ConstantResolver renders a constant pool index for listings. It may be nil.
type ConstantResolver func(index int) string

// Disassemble renders code as one instruction per line. Decoding stops at
// the first malformed instruction, which is reported on the last line.
func Disassemble(code []byte, resolve ConstantResolver) string {
	var sb strings.Builder
	for offset := 0; offset < len(code); {
		n, err := InstructionLength(code, offset)
		if err != nil {
			fmt.Fprintf(&sb, "%5d: ?? %v\n", offset, err)
			break
		}
		fmt.Fprintf(&sb, "%5d: %s\n", offset, formatInstruction(code, offset, resolve))
		offset += n
	}
	return sb.String()
}

func formatInstruction(code []byte, offset int, resolve ConstantResolver) string {
	op := code[offset]
	name := Name(int(op))
	cp := func(index int) string {
		if resolve == nil {
			return fmt.Sprintf("#%d", index)
		}
		return fmt.Sprintf("#%d // %s", index, resolve(index))
	}
	switch op {
	case BIPUSH:
		return fmt.Sprintf("%s %d", name, S1(code, offset+1))
	case SIPUSH:
		return fmt.Sprintf("%s %d", name, S2(code, offset+1))
	case LDC:
		return fmt.Sprintf("%s %s", name, cp(U1(code, offset+1)))
	case LDC_W, LDC2_W, GETSTATIC, PUTSTATIC, GETFIELD, PUTFIELD,
		INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, INVOKEINTERFACE, INVOKEDYNAMIC,
		NEW, ANEWARRAY, CHECKCAST, INSTANCEOF:
		return fmt.Sprintf("%s %s", name, cp(U2(code, offset+1)))
	case MULTIANEWARRAY:
		return fmt.Sprintf("%s %s dim %d", name, cp(U2(code, offset+1)), U1(code, offset+3))
	case ILOAD, LLOAD, FLOAD, DLOAD, ALOAD, ISTORE, LSTORE, FSTORE, DSTORE, ASTORE, RET:
		return fmt.Sprintf("%s %d", name, U1(code, offset+1))
	case IINC:
		return fmt.Sprintf("%s %d %d", name, U1(code, offset+1), S1(code, offset+2))
	case NEWARRAY:
		return fmt.Sprintf("%s %s", name, ArrayTypeSignature(U1(code, offset+1)))
	case WIDE:
		inner := code[offset+1]
		if inner == IINC {
			return fmt.Sprintf("wide iinc %d %d", U2(code, offset+2), S2(code, offset+4))
		}
		return fmt.Sprintf("wide %s %d", Name(int(inner)), U2(code, offset+2))
	case TABLESWITCH, LOOKUPSWITCH:
		targets := BranchTargets(code, offset)
		parts := make([]string, len(targets))
		for i, t := range targets {
			parts[i] = fmt.Sprint(t)
		}
		return fmt.Sprintf("%s default:%s", name, strings.Join(parts, ","))
	}
	if targets := BranchTargets(code, offset); targets != nil {
		return fmt.Sprintf("%s %d", name, targets[0])
	}
	return name
}
