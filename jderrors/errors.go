package jderrors

import (
	"errors"
	"fmt"
	"strings"
)

// Builder (B) Errors
var (
	ErrBUnsupportedOpcode = errors.New("B1|UnsupportedOpcode: Opcode has no stack simulation rule.")
	ErrBStackUnderflow    = errors.New("B2|StackUnderflow: Instruction pops more values than the operand stack holds.")
	ErrBStackNotEmpty     = errors.New("B3|StackNotEmpty: Operand stack is not empty at the end of the method.")
	ErrBTruncatedCode     = errors.New("B4|TruncatedCode: Instruction operands run past the end of the code array.")
	ErrBBadBranchTarget   = errors.New("B5|BadBranchTarget: Branch target is outside the code array.")
	ErrBBadLocalIndex     = errors.New("B6|BadLocalIndex: ret or load refers to a local without a return address.")
)

// Class structure (C) Errors
var (
	ErrCBadMagic              = errors.New("C1|BadMagic: Input does not start with 0xCAFEBABE.")
	ErrCTruncatedClass        = errors.New("C2|TruncatedClass: Class file ends before the structure is complete.")
	ErrCInvalidConstantIndex  = errors.New("C3|InvalidConstantIndex: Constant pool index is zero, out of range or the second slot of a long/double.")
	ErrCUnexpectedConstantTag = errors.New("C4|UnexpectedConstantTag: Constant pool entry has a different tag than the instruction requires.")
	ErrCBadUtf8               = errors.New("C5|BadUtf8: Malformed modified UTF-8 in a CONSTANT_Utf8 entry.")
	ErrCClassNotFound         = errors.New("C6|ClassNotFound: Loader cannot provide the requested class.")
)

// Pipeline (P) Errors
var (
	ErrPDupSurvived     = errors.New("P1|DupSurvived: DupStore or DupLoad node reachable after finalization.")
	ErrPDupStoreMissing = errors.New("P2|DupStoreMissing: DupLoad refers to a DupStore that does not exist.")
	ErrPNoFixpoint      = errors.New("P3|NoFixpoint: Reconstructor passes still change the tree after the round limit.")
)

// Layout (L) Errors
var (
	ErrLLineCountOrder = errors.New("L1|LineCountOrder: Block does not satisfy minimal <= prefered <= maximal.")
	ErrLLineRange      = errors.New("L2|LineRange: Block first line number is after its last line number.")
	ErrLBlockSpacing   = errors.New("L3|BlockSpacing: Next block starts outside the line range allowed by the previous block.")
	ErrLLineRegression = errors.New("L4|LineRegression: Block line numbers decrease.")
)

// MethodError ties a failure to the method and code offset it happened at.
type MethodError struct {
	Class      string
	Method     string
	Descriptor string
	Offset     int
	Err        error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s.%s%s @%d: %v", e.Class, e.Method, e.Descriptor, e.Offset, e.Err)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

// AtOffset wraps err with the offset it occurred at. Class and method are
// filled in by WithMethod at the method boundary.
func AtOffset(err error, offset int) error {
	var me *MethodError
	if errors.As(err, &me) {
		return err
	}
	return &MethodError{Offset: offset, Err: err}
}

// WithMethod stamps class and method identity on err.
func WithMethod(err error, class, method, descriptor string) error {
	if err == nil {
		return nil
	}
	var me *MethodError
	if !errors.As(err, &me) {
		me = &MethodError{Offset: -1, Err: err}
	}
	out := *me
	out.Class, out.Method, out.Descriptor = class, method, descriptor
	return &out
}

// split breaks a catalogue error into "code", "name" and "description".
func split(err error) (code, name, desc string, ok bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		s := e.Error()
		bar := strings.Index(s, "|")
		colon := strings.Index(s, ":")
		if bar <= 0 || colon < bar {
			continue
		}
		return strings.TrimSpace(s[:bar]), strings.TrimSpace(s[bar+1 : colon]), strings.TrimSpace(s[colon+1:]), true
	}
	return "", "", "", false
}

// GetErrorName extracts the catalogue name, e.g. "StackUnderflow".
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	if _, name, _, ok := split(err); ok {
		return name
	}
	return err.Error()
}

// GetErrorCode extracts the catalogue code, e.g. "B2".
func GetErrorCode(err error) string {
	code, _, _, _ := split(err)
	return code
}

// GetErrorCodeWithName returns "Code_Name", or "" outside the catalogue.
func GetErrorCodeWithName(err error) string {
	code, name, _, ok := split(err)
	if !ok {
		return ""
	}
	return code + "_" + name
}

func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	if _, _, desc, ok := split(err); ok {
		return desc
	}
	return "DESC NOT SET"
}
