package instruction

import (
	"github.com/colorfulnotion/jdcore/bytecode"
)

// UnknownLineNumber marks nodes without debug line information.
const UnknownLineNumber = -1

// Header is embedded by every node. Opcode is a JVM opcode (0..255) or a
// pseudo opcode from the bytecode package (>= 256).
type Header struct {
	Opcode     int
	Offset     int
	LineNumber int
}

func (h *Header) Base() *Header { return h }

// Instruction is a node of the reconstructed tree.
type Instruction interface {
	Base() *Header
}

// Branch is implemented by nodes that transfer control to an offset.
type Branch interface {
	Instruction
	JumpOffset() int
	SetJumpOffset(target int)
}

// Conditional is a branch taken only when its condition holds.
type Conditional interface {
	Branch
	// Invert negates the condition in place.
	Invert()
}

// Cmp is the comparison or combinator of a conditional branch.
type Cmp int

const (
	CmpNone Cmp = iota
	CmpEQ
	CmpNE
	CmpLT
	CmpGE
	CmpGT
	CmpLE
	CmpAND
	CmpOR
)

var cmpSymbols = [...]string{"", "==", "!=", "<", ">=", ">", "<=", "&&", "||"}

func (c Cmp) String() string {
	if int(c) < len(cmpSymbols) {
		return cmpSymbols[c]
	}
	return "?"
}

// Inverse returns the negated comparison; AND and OR swap (De Morgan).
func (c Cmp) Inverse() Cmp {
	switch c {
	case CmpEQ:
		return CmpNE
	case CmpNE:
		return CmpEQ
	case CmpLT:
		return CmpGE
	case CmpGE:
		return CmpLT
	case CmpGT:
		return CmpLE
	case CmpLE:
		return CmpGT
	case CmpAND:
		return CmpOR
	case CmpOR:
		return CmpAND
	}
	return c
}

// CmpOf maps an if<cond>, if_<x>cmp<cond>, ifnull or ifnonnull opcode to
// its comparison.
func CmpOf(op int) Cmp {
	switch op {
	case bytecode.IFEQ, bytecode.IF_ICMPEQ, bytecode.IF_ACMPEQ, bytecode.IFNULL:
		return CmpEQ
	case bytecode.IFNE, bytecode.IF_ICMPNE, bytecode.IF_ACMPNE, bytecode.IFNONNULL:
		return CmpNE
	case bytecode.IFLT, bytecode.IF_ICMPLT:
		return CmpLT
	case bytecode.IFGE, bytecode.IF_ICMPGE:
		return CmpGE
	case bytecode.IFGT, bytecode.IF_ICMPGT:
		return CmpGT
	case bytecode.IFLE, bytecode.IF_ICMPLE:
		return CmpLE
	}
	return CmpNone
}

// IsConditional reports whether ins is a conditional branch node.
func IsConditional(ins Instruction) bool {
	_, ok := ins.(Conditional)
	return ok
}

// Offset is shorthand for ins.Base().Offset.
func Offset(ins Instruction) int { return ins.Base().Offset }

// Line is shorthand for ins.Base().LineNumber.
func Line(ins Instruction) int { return ins.Base().LineNumber }

// IsPseudo reports whether ins carries a synthesized opcode.
func IsPseudo(ins Instruction) bool {
	return bytecode.IsPseudo(ins.Base().Opcode)
}
