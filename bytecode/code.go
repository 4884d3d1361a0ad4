package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/colorfulnotion/jdcore/jderrors"
)

var pseudoNames = map[int]string{
	ICONST:            "iconst",
	LCONST:            "lconst",
	FCONST:            "fconst",
	DCONST:            "dconst",
	NULLCONST:         "nullconst",
	LOAD:              "load",
	STORE:             "store",
	ARRAYLOAD:         "arrayload",
	ARRAYSTORE:        "arraystore",
	BINARYOP:          "binaryop",
	UNARYOP:           "unaryop",
	CONVERT:           "convert",
	IF:                "if",
	IFCMP:             "ifcmp",
	IFXNULL:           "ifxnull",
	COMPLEXIF:         "complexif",
	XRETURN:           "xreturn",
	INVOKE:            "invoke",
	DUPSTORE:          "dupstore",
	DUPLOAD:           "dupload",
	EXCEPTIONLOAD:     "exceptionload",
	RETURNADDRESSLOAD: "returnaddressload",
	TERNARYOPSTORE:    "ternaryopstore",
	TERNARYOP:         "ternaryop",
	INITARRAY:         "initarray",
	NEWANDINITARRAY:   "newandinitarray",
	INVOKENEW:         "invokenew",
	ASSIGNMENT:        "assignment",
	PREINC:            "preinc",
	POSTINC:           "postinc",
	SYNCHRONIZED:      "synchronized",
	CLASSLITERAL:      "classliteral",
	TEMPSTORE:         "tempstore",
	TEMPLOAD:          "tempload",
	DISCARD:           "discard",
	REPLICA:           "replica",
	SWITCHENUM:        "switchenum",
	IFSTATEMENT:       "ifstatement",
	IFELSESTATEMENT:   "ifelsestatement",
	WHILESTATEMENT:    "whilestatement",
	DOWHILESTATEMENT:  "dowhilestatement",
	LABEL:             "label",
}

// Name returns the mnemonic of a real or pseudo opcode.
func Name(op int) string {
	if op >= 0 && op < 256 {
		if n := opcodeTable[op].Name; n != "" {
			return n
		}
		return fmt.Sprintf("undefined_%#02x", op)
	}
	if n, ok := pseudoNames[op]; ok {
		return n
	}
	return fmt.Sprintf("pseudo_%d", op)
}

// Spec returns the table entry for a real opcode.
func Spec(op byte) (OpcodeSpec, bool) {
	s := opcodeTable[op]
	return s, s.Name != ""
}

// U1 reads an unsigned byte operand.
func U1(code []byte, pos int) int { return int(code[pos]) }

// S1 reads a signed byte operand.
func S1(code []byte, pos int) int { return int(int8(code[pos])) }

// U2 reads a big-endian unsigned short operand.
func U2(code []byte, pos int) int { return int(binary.BigEndian.Uint16(code[pos:])) }

// S2 reads a big-endian signed short operand.
func S2(code []byte, pos int) int { return int(int16(binary.BigEndian.Uint16(code[pos:]))) }

// S4 reads a big-endian signed int operand.
func S4(code []byte, pos int) int { return int(int32(binary.BigEndian.Uint32(code[pos:]))) }

// SwitchPadding returns the number of alignment bytes following a switch
// opcode located at offset.
func SwitchPadding(offset int) int {
	return (4 - (offset+1)%4) % 4
}

// TableSwitchLength returns the encoded size of the tableswitch at offset.
func TableSwitchLength(code []byte, offset int) (int, error) {
	base := offset + 1 + SwitchPadding(offset)
	if base+12 > len(code) {
		return 0, fmt.Errorf("tableswitch: truncated header: %w", jderrors.ErrBTruncatedCode)
	}
	low := S4(code, base+4)
	high := S4(code, base+8)
	if high < low {
		return 0, fmt.Errorf("tableswitch: high %d < low %d", high, low)
	}
	return base + 12 + 4*(high-low+1) - offset, nil
}

// LookupSwitchLength returns the encoded size of the lookupswitch at offset.
func LookupSwitchLength(code []byte, offset int) (int, error) {
	base := offset + 1 + SwitchPadding(offset)
	if base+8 > len(code) {
		return 0, fmt.Errorf("lookupswitch: truncated header: %w", jderrors.ErrBTruncatedCode)
	}
	npairs := S4(code, base+4)
	if npairs < 0 {
		return 0, fmt.Errorf("lookupswitch: negative pair count")
	}
	return base + 8 + 8*npairs - offset, nil
}

// WideLength returns the encoded size of the wide-prefixed instruction at offset.
func WideLength(code []byte, offset int) (int, error) {
	if offset+1 >= len(code) {
		return 0, fmt.Errorf("wide: %w", jderrors.ErrBTruncatedCode)
	}
	if code[offset+1] == IINC {
		return 6, nil
	}
	return 4, nil
}

// InstructionLength returns the encoded size of the instruction at offset.
func InstructionLength(code []byte, offset int) (int, error) {
	op := code[offset]
	s, ok := Spec(op)
	if !ok {
		return 0, fmt.Errorf("opcode %#02x: %w", op, jderrors.ErrBUnsupportedOpcode)
	}
	var n int
	var err error
	switch op {
	case TABLESWITCH:
		n, err = TableSwitchLength(code, offset)
	case LOOKUPSWITCH:
		n, err = LookupSwitchLength(code, offset)
	case WIDE:
		n, err = WideLength(code, offset)
	default:
		n = s.Length
	}
	if err != nil {
		return 0, err
	}
	if offset+n > len(code) {
		return 0, fmt.Errorf("%s: %w", s.Name, jderrors.ErrBTruncatedCode)
	}
	return n, nil
}

// IsConditionalBranch reports whether op is an if<cond>, if_<x>cmp<cond>,
// ifnull or ifnonnull opcode.
func IsConditionalBranch(op byte) bool {
	return (op >= IFEQ && op <= IF_ACMPNE) || op == IFNULL || op == IFNONNULL
}

// BranchTargets returns the absolute jump targets of the instruction at
// offset, or nil when it does not branch.
func BranchTargets(code []byte, offset int) []int {
	op := code[offset]
	switch {
	case IsConditionalBranch(op), op == GOTO, op == JSR:
		return []int{offset + S2(code, offset+1)}
	case op == GOTO_W, op == JSR_W:
		return []int{offset + S4(code, offset+1)}
	case op == TABLESWITCH:
		base := offset + 1 + SwitchPadding(offset)
		low, high := S4(code, base+4), S4(code, base+8)
		targets := []int{offset + S4(code, base)}
		for i := 0; i <= high-low; i++ {
			targets = append(targets, offset+S4(code, base+12+4*i))
		}
		return targets
	case op == LOOKUPSWITCH:
		base := offset + 1 + SwitchPadding(offset)
		npairs := S4(code, base+4)
		targets := []int{offset + S4(code, base)}
		for i := 0; i < npairs; i++ {
			targets = append(targets, offset+S4(code, base+12+8*i))
		}
		return targets
	}
	return nil
}

// ScanTargets walks code once and returns the set of jump target offsets
// together with the set of instruction start offsets. Errors are
// *jderrors.MethodError values carrying the failing offset.
func ScanTargets(code []byte) (targets *bitset.BitSet, starts *bitset.BitSet, err error) {
	targets = bitset.New(uint(len(code) + 1))
	starts = bitset.New(uint(len(code) + 1))
	for offset := 0; offset < len(code); {
		n, err := InstructionLength(code, offset)
		if err != nil {
			return nil, nil, jderrors.AtOffset(err, offset)
		}
		starts.Set(uint(offset))
		for _, t := range BranchTargets(code, offset) {
			if t < 0 || t >= len(code) {
				return nil, nil, jderrors.AtOffset(fmt.Errorf("%s: target %d: %w", Name(int(code[offset])), t, jderrors.ErrBBadBranchTarget), offset)
			}
			targets.Set(uint(t))
		}
		offset += n
	}
	return targets, starts, nil
}
