package builder

import (
	"fmt"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
)

func init() {
	initDispatchTable()
}

// opcodeRule applies the stack effect of one opcode at s.offset.
type opcodeRule func(s *state, op byte) error

var dispatchTable [256]opcodeRule

// Signatures of typed opcode families, indexed by the family position.
var (
	arithSignatures = [4]string{"I", "J", "F", "D"}
	loadSignatures  = [5]string{"I", "J", "F", "D", "Ljava/lang/Object;"}
	arraySignatures = [8]string{"I", "J", "F", "D", "Ljava/lang/Object;", "B", "C", "S"}
	arithOperators  = [5]string{"+", "-", "*", "/", "%"}
	shiftOperators  = [3]string{"<<", ">>", ">>>"}
	logicOperators  = [3]string{"&", "|", "^"}
)

var convertSignatures = map[byte]string{
	bytecode.I2L: "J", bytecode.I2F: "F", bytecode.I2D: "D",
	bytecode.L2I: "I", bytecode.L2F: "F", bytecode.L2D: "D",
	bytecode.F2I: "I", bytecode.F2L: "J", bytecode.F2D: "D",
	bytecode.D2I: "I", bytecode.D2L: "J", bytecode.D2F: "F",
	bytecode.I2B: "B", bytecode.I2C: "C", bytecode.I2S: "S",
}

func initDispatchTable() {
	dispatchTable[bytecode.NOP] = func(s *state, op byte) error { return nil }

	// constants
	dispatchTable[bytecode.ACONST_NULL] = ruleAConstNull
	for op := bytecode.ICONST_M1; op <= bytecode.ICONST_5; op++ {
		dispatchTable[op] = ruleIConst
	}
	dispatchTable[bytecode.LCONST_0] = ruleLConst
	dispatchTable[bytecode.LCONST_1] = ruleLConst
	dispatchTable[bytecode.FCONST_0] = ruleFConst
	dispatchTable[bytecode.FCONST_1] = ruleFConst
	dispatchTable[bytecode.FCONST_2] = ruleFConst
	dispatchTable[bytecode.DCONST_0] = ruleDConst
	dispatchTable[bytecode.DCONST_1] = ruleDConst
	dispatchTable[bytecode.BIPUSH] = rulePush
	dispatchTable[bytecode.SIPUSH] = rulePush
	dispatchTable[bytecode.LDC] = ruleLdc
	dispatchTable[bytecode.LDC_W] = ruleLdc
	dispatchTable[bytecode.LDC2_W] = ruleLdc

	// locals
	for op := bytecode.ILOAD; op <= bytecode.ALOAD_3; op++ {
		dispatchTable[op] = ruleLoad
	}
	for op := bytecode.ISTORE; op <= bytecode.ASTORE_3; op++ {
		dispatchTable[op] = ruleStore
	}
	dispatchTable[bytecode.IINC] = ruleIInc
	dispatchTable[bytecode.RET] = ruleRet
	dispatchTable[bytecode.WIDE] = ruleWide

	// arrays
	for op := bytecode.IALOAD; op <= bytecode.SALOAD; op++ {
		dispatchTable[op] = ruleArrayLoad
	}
	for op := bytecode.IASTORE; op <= bytecode.SASTORE; op++ {
		dispatchTable[op] = ruleArrayStore
	}
	dispatchTable[bytecode.NEWARRAY] = ruleNewArray
	dispatchTable[bytecode.ANEWARRAY] = ruleANewArray
	dispatchTable[bytecode.MULTIANEWARRAY] = ruleMultiANewArray
	dispatchTable[bytecode.ARRAYLENGTH] = ruleArrayLength

	// stack
	dispatchTable[bytecode.POP] = rulePop
	dispatchTable[bytecode.POP2] = rulePop2
	dispatchTable[bytecode.DUP] = ruleDup
	dispatchTable[bytecode.DUP_X1] = ruleDupX1
	dispatchTable[bytecode.DUP_X2] = ruleDupX2
	dispatchTable[bytecode.DUP2] = ruleDup2
	dispatchTable[bytecode.DUP2_X1] = ruleDup2X1
	dispatchTable[bytecode.DUP2_X2] = ruleDup2X2
	dispatchTable[bytecode.SWAP] = ruleSwap

	// operators
	for op := bytecode.IADD; op <= bytecode.DREM; op++ {
		dispatchTable[op] = ruleArith
	}
	for op := bytecode.INEG; op <= bytecode.DNEG; op++ {
		dispatchTable[op] = ruleNeg
	}
	for op := bytecode.ISHL; op <= bytecode.LUSHR; op++ {
		dispatchTable[op] = ruleShift
	}
	for op := bytecode.IAND; op <= bytecode.LXOR; op++ {
		dispatchTable[op] = ruleLogic
	}
	for op := bytecode.I2L; op <= bytecode.I2S; op++ {
		dispatchTable[op] = ruleConvert
	}
	for op := bytecode.LCMP; op <= bytecode.DCMPG; op++ {
		dispatchTable[op] = ruleCompare
	}

	// control
	for op := bytecode.IFEQ; op <= bytecode.IFLE; op++ {
		dispatchTable[op] = ruleIf
	}
	for op := bytecode.IF_ICMPEQ; op <= bytecode.IF_ACMPNE; op++ {
		dispatchTable[op] = ruleIfCmp
	}
	dispatchTable[bytecode.IFNULL] = ruleIfNull
	dispatchTable[bytecode.IFNONNULL] = ruleIfNull
	dispatchTable[bytecode.GOTO] = ruleGoto
	dispatchTable[bytecode.GOTO_W] = ruleGoto
	dispatchTable[bytecode.JSR] = ruleJsr
	dispatchTable[bytecode.JSR_W] = ruleJsr
	dispatchTable[bytecode.TABLESWITCH] = ruleTableSwitch
	dispatchTable[bytecode.LOOKUPSWITCH] = ruleLookupSwitch
	for op := bytecode.IRETURN; op <= bytecode.ARETURN; op++ {
		dispatchTable[op] = ruleXReturn
	}
	dispatchTable[bytecode.RETURN] = ruleReturn
	dispatchTable[bytecode.ATHROW] = ruleAThrow

	// objects
	dispatchTable[bytecode.GETSTATIC] = ruleGetStatic
	dispatchTable[bytecode.PUTSTATIC] = rulePutStatic
	dispatchTable[bytecode.GETFIELD] = ruleGetField
	dispatchTable[bytecode.PUTFIELD] = rulePutField
	for op := bytecode.INVOKEVIRTUAL; op <= bytecode.INVOKEINTERFACE; op++ {
		dispatchTable[op] = ruleInvoke
	}
	dispatchTable[bytecode.INVOKEDYNAMIC] = ruleInvokeDynamic
	dispatchTable[bytecode.NEW] = ruleNew
	dispatchTable[bytecode.CHECKCAST] = ruleCheckCast
	dispatchTable[bytecode.INSTANCEOF] = ruleInstanceOf
	dispatchTable[bytecode.MONITORENTER] = ruleMonitorEnter
	dispatchTable[bytecode.MONITOREXIT] = ruleMonitorExit
}

// Constants

func ruleAConstNull(s *state, op byte) error {
	s.push(&instruction.AConstNull{Header: s.header(int(op))})
	return nil
}

func ruleIConst(s *state, op byte) error {
	s.push(&instruction.IConst{Header: s.header(int(op)), Value: int32(int(op) - bytecode.ICONST_0)})
	return nil
}

func ruleLConst(s *state, op byte) error {
	s.push(&instruction.LConst{Header: s.header(int(op)), Value: int64(int(op) - bytecode.LCONST_0)})
	return nil
}

func ruleFConst(s *state, op byte) error {
	s.push(&instruction.FConst{Header: s.header(int(op)), Value: float32(int(op) - bytecode.FCONST_0)})
	return nil
}

func ruleDConst(s *state, op byte) error {
	s.push(&instruction.DConst{Header: s.header(int(op)), Value: float64(int(op) - bytecode.DCONST_0)})
	return nil
}

func rulePush(s *state, op byte) error {
	var v int
	if op == bytecode.BIPUSH {
		v = bytecode.S1(s.bytes, s.offset+1)
	} else {
		v = bytecode.S2(s.bytes, s.offset+1)
	}
	s.push(&instruction.IConst{Header: s.header(int(op)), Value: int32(v)})
	return nil
}

func ruleLdc(s *state, op byte) error {
	var index int
	if op == bytecode.LDC {
		index = bytecode.U1(s.bytes, s.offset+1)
	} else {
		index = bytecode.U2(s.bytes, s.offset+1)
	}
	c, err := s.pool.Get(index)
	if err != nil {
		return err
	}
	s.push(&instruction.Ldc{Header: s.header(int(op)), Index: index, Constant: c})
	return nil
}

// Locals

// localOperand decodes the family position and local index of a load or
// store opcode, with base the first explicit-index opcode of the family and
// implicit the first _0 form.
func localOperand(s *state, op, base, implicit byte) (kind, index int) {
	if op >= implicit {
		return int(op-implicit) / 4, int(op-implicit) % 4
	}
	return int(op - base), bytecode.U1(s.bytes, s.offset+1)
}

func ruleLoad(s *state, op byte) error {
	kind, index := localOperand(s, op, bytecode.ILOAD, bytecode.ILOAD_0)
	s.load(int(op), kind, index)
	return nil
}

func (s *state) load(op, kind, index int) {
	sig := loadSignatures[kind]
	if kind == 0 || kind == 4 {
		sig = s.localSignature(index, sig)
	}
	s.push(&instruction.Load{Header: s.header(op), Index: index, Signature: sig})
}

func ruleStore(s *state, op byte) error {
	kind, index := localOperand(s, op, bytecode.ISTORE, bytecode.ISTORE_0)
	return s.store(int(op), kind, index)
}

func (s *state) store(op, kind, index int) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	sig := loadSignatures[kind]
	if kind == 4 {
		if _, ok := v.(*instruction.ReturnAddressLoad); ok {
			sig = "ReturnAddress"
		} else if vs := instruction.ValueSignature(v); vs != "" {
			sig = s.localSignature(index, vs)
		}
	}
	s.emit(&instruction.Store{Header: s.header(op), Index: index, Signature: sig, Value: v})
	return nil
}

func ruleIInc(s *state, op byte) error {
	s.emit(&instruction.IInc{
		Header: s.header(int(op)),
		Index:  bytecode.U1(s.bytes, s.offset+1),
		Count:  bytecode.S1(s.bytes, s.offset+2),
	})
	return nil
}

func ruleRet(s *state, op byte) error {
	s.emit(&instruction.Ret{Header: s.header(int(op)), Index: bytecode.U1(s.bytes, s.offset+1)})
	return nil
}

func ruleWide(s *state, op byte) error {
	inner := s.bytes[s.offset+1]
	index := bytecode.U2(s.bytes, s.offset+2)
	switch {
	case inner >= bytecode.ILOAD && inner <= bytecode.ALOAD:
		s.load(int(inner), int(inner-bytecode.ILOAD), index)
		return nil
	case inner >= bytecode.ISTORE && inner <= bytecode.ASTORE:
		return s.store(int(inner), int(inner-bytecode.ISTORE), index)
	case inner == bytecode.IINC:
		s.emit(&instruction.IInc{Header: s.header(int(inner)), Index: index, Count: bytecode.S2(s.bytes, s.offset+4)})
		return nil
	case inner == bytecode.RET:
		s.emit(&instruction.Ret{Header: s.header(int(inner)), Index: index})
		return nil
	}
	return fmt.Errorf("wide %s: %w", bytecode.Name(int(inner)), jderrors.ErrBUnsupportedOpcode)
}

// Arrays

func elementSignature(array instruction.Instruction, fallback string) string {
	if sig := instruction.ValueSignature(array); len(sig) > 1 && sig[0] == '[' {
		return sig[1:]
	}
	return fallback
}

func ruleArrayLoad(s *state, op byte) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	sig := arraySignatures[op-bytecode.IALOAD]
	if op == bytecode.AALOAD || op == bytecode.BALOAD {
		sig = elementSignature(vals[0], sig)
	}
	s.push(&instruction.ArrayLoad{Header: s.header(int(op)), Signature: sig, Array: vals[0], Index: vals[1]})
	return nil
}

func ruleArrayStore(s *state, op byte) error {
	vals, err := s.popN(3)
	if err != nil {
		return err
	}
	sig := arraySignatures[op-bytecode.IASTORE]
	if op == bytecode.AASTORE || op == bytecode.BASTORE {
		sig = elementSignature(vals[0], sig)
	}
	s.emit(&instruction.ArrayStore{Header: s.header(int(op)), Signature: sig, Array: vals[0], Index: vals[1], Value: vals[2]})
	return nil
}

func ruleNewArray(s *state, op byte) error {
	dim, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.NewArray{Header: s.header(int(op)), Type: bytecode.U1(s.bytes, s.offset+1), Dimension: dim})
	return nil
}

func ruleANewArray(s *state, op byte) error {
	dim, err := s.pop()
	if err != nil {
		return err
	}
	index := bytecode.U2(s.bytes, s.offset+1)
	name, err := s.pool.ClassName(index)
	if err != nil {
		return err
	}
	s.push(&instruction.ANewArray{Header: s.header(int(op)), ClassIndex: index, ClassName: name, Dimension: dim})
	return nil
}

func ruleMultiANewArray(s *state, op byte) error {
	index := bytecode.U2(s.bytes, s.offset+1)
	name, err := s.pool.ClassName(index)
	if err != nil {
		return err
	}
	dims, err := s.popN(bytecode.U1(s.bytes, s.offset+3))
	if err != nil {
		return err
	}
	s.push(&instruction.MultiANewArray{Header: s.header(int(op)), ClassIndex: index, ClassName: name, Dimensions: dims})
	return nil
}

func ruleArrayLength(s *state, op byte) error {
	a, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.ArrayLength{Header: s.header(int(op)), Array: a})
	return nil
}

// Stack

func rulePop(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.Pop{Header: s.header(int(op)), Value: v})
	return nil
}

func rulePop2(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	if instruction.IsCategory2(v) {
		s.emit(&instruction.Pop{Header: s.header(int(op)), Value: v})
		return nil
	}
	v2, err := s.pop()
	if err != nil {
		return err
	}
	// both pops share the offset; only the deeper one keeps the real opcode
	s.emit(&instruction.Pop{Header: s.header(int(op)), Value: v2})
	s.emit(&instruction.Pop{Header: s.header(bytecode.DISCARD), Value: v})
	return nil
}

func ruleDup(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	_, use := s.dupStore(v)
	s.push(use())
	s.push(use())
	return nil
}

func ruleDupX1(s *state, op byte) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	_, use := s.dupStore(vals[1])
	s.push(use())
	s.push(vals[0])
	s.push(use())
	return nil
}

func ruleDupX2(s *state, op byte) error {
	v1, err := s.pop()
	if err != nil {
		return err
	}
	v2, err := s.pop()
	if err != nil {
		return err
	}
	_, use := s.dupStore(v1)
	if instruction.IsCategory2(v2) {
		s.push(use())
		s.push(v2)
		s.push(use())
		return nil
	}
	v3, err := s.pop()
	if err != nil {
		return err
	}
	s.push(use())
	s.push(v3)
	s.push(v2)
	s.push(use())
	return nil
}

func ruleDup2(s *state, op byte) error {
	v1, err := s.pop()
	if err != nil {
		return err
	}
	if instruction.IsCategory2(v1) {
		_, use := s.dupStore(v1)
		s.push(use())
		s.push(use())
		return nil
	}
	v2, err := s.pop()
	if err != nil {
		return err
	}
	_, use2 := s.dupStore(v2)
	_, use1 := s.dupStore(v1)
	s.push(use2())
	s.push(use1())
	s.push(use2())
	s.push(use1())
	return nil
}

func ruleDup2X1(s *state, op byte) error {
	v1, err := s.pop()
	if err != nil {
		return err
	}
	v2, err := s.pop()
	if err != nil {
		return err
	}
	if instruction.IsCategory2(v1) {
		_, use := s.dupStore(v1)
		s.push(use())
		s.push(v2)
		s.push(use())
		return nil
	}
	v3, err := s.pop()
	if err != nil {
		return err
	}
	_, use2 := s.dupStore(v2)
	_, use1 := s.dupStore(v1)
	s.push(use2())
	s.push(use1())
	s.push(v3)
	s.push(use2())
	s.push(use1())
	return nil
}

func ruleDup2X2(s *state, op byte) error {
	v1, err := s.pop()
	if err != nil {
		return err
	}
	v2, err := s.pop()
	if err != nil {
		return err
	}
	if instruction.IsCategory2(v1) {
		_, use := s.dupStore(v1)
		if instruction.IsCategory2(v2) {
			s.push(use())
			s.push(v2)
			s.push(use())
			return nil
		}
		v3, err := s.pop()
		if err != nil {
			return err
		}
		s.push(use())
		s.push(v3)
		s.push(v2)
		s.push(use())
		return nil
	}
	v3, err := s.pop()
	if err != nil {
		return err
	}
	_, use2 := s.dupStore(v2)
	_, use1 := s.dupStore(v1)
	if instruction.IsCategory2(v3) {
		s.push(use2())
		s.push(use1())
		s.push(v3)
		s.push(use2())
		s.push(use1())
		return nil
	}
	v4, err := s.pop()
	if err != nil {
		return err
	}
	s.push(use2())
	s.push(use1())
	s.push(v4)
	s.push(v3)
	s.push(use2())
	s.push(use1())
	return nil
}

func ruleSwap(s *state, op byte) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	s.push(vals[1])
	s.push(vals[0])
	return nil
}

// Operators

func (s *state) binary(op byte, operator, sig string) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	s.push(&instruction.BinaryOp{Header: s.header(int(op)), Operator: operator, Signature: sig, Left: vals[0], Right: vals[1]})
	return nil
}

func ruleArith(s *state, op byte) error {
	i := int(op - bytecode.IADD)
	return s.binary(op, arithOperators[i/4], arithSignatures[i%4])
}

func ruleShift(s *state, op byte) error {
	i := int(op - bytecode.ISHL)
	return s.binary(op, shiftOperators[i/2], arithSignatures[i%2])
}

func ruleLogic(s *state, op byte) error {
	i := int(op - bytecode.IAND)
	sig := arithSignatures[i%2]
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	// boolean operands keep their type through &, | and ^
	if sig == "I" && instruction.ValueSignature(vals[0]) == "Z" && instruction.ValueSignature(vals[1]) == "Z" {
		sig = "Z"
	}
	s.push(&instruction.BinaryOp{Header: s.header(int(op)), Operator: logicOperators[i/2], Signature: sig, Left: vals[0], Right: vals[1]})
	return nil
}

func ruleNeg(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.UnaryOp{Header: s.header(int(op)), Operator: "-", Signature: arithSignatures[op-bytecode.INEG], Value: v})
	return nil
}

func ruleConvert(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.Convert{Header: s.header(int(op)), Signature: convertSignatures[op], Value: v})
	return nil
}

func ruleCompare(s *state, op byte) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	s.push(&instruction.Compare{Header: s.header(int(op)), Left: vals[0], Right: vals[1]})
	return nil
}

// Control

func (s *state) branch16() int { return bytecode.S2(s.bytes, s.offset+1) }

func ruleIf(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	cmp := instruction.CmpOf(int(op))
	if c, ok := v.(*instruction.Compare); ok {
		s.emit(&instruction.IfCmp{Header: s.header(int(op)), Cmp: cmp, Left: c.Left, Right: c.Right, Branch: s.branch16()})
		return nil
	}
	s.emit(&instruction.If{Header: s.header(int(op)), Cmp: cmp, Value: v, Branch: s.branch16()})
	return nil
}

func ruleIfCmp(s *state, op byte) error {
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	s.emit(&instruction.IfCmp{Header: s.header(int(op)), Cmp: instruction.CmpOf(int(op)), Left: vals[0], Right: vals[1], Branch: s.branch16()})
	return nil
}

func ruleIfNull(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.IfNull{Header: s.header(int(op)), Cmp: instruction.CmpOf(int(op)), Value: v, Branch: s.branch16()})
	return nil
}

func ruleGoto(s *state, op byte) error {
	branch := s.branch16()
	if op == bytecode.GOTO_W {
		branch = bytecode.S4(s.bytes, s.offset+1)
	}
	if len(s.stack) == 0 {
		s.emit(&instruction.Goto{Header: s.header(int(op)), Branch: branch})
		return nil
	}
	v, _ := s.pop()
	tos := &instruction.TernaryOpStore{Header: s.header(bytecode.TERNARYOPSTORE), Value: v, Branch: branch}
	target := s.offset + branch
	s.pending[target] = append(s.pending[target], tos)
	s.emit(tos)
	return nil
}

func ruleJsr(s *state, op byte) error {
	branch := s.branch16()
	if op == bytecode.JSR_W {
		branch = bytecode.S4(s.bytes, s.offset+1)
	}
	s.emit(&instruction.Jsr{Header: s.header(int(op)), Branch: branch})
	return nil
}

func ruleTableSwitch(s *state, op byte) error {
	key, err := s.pop()
	if err != nil {
		return err
	}
	base := s.offset + 1 + bytecode.SwitchPadding(s.offset)
	low, high := bytecode.S4(s.bytes, base+4), bytecode.S4(s.bytes, base+8)
	offsets := make([]int, 0, high-low+1)
	for i := 0; i <= high-low; i++ {
		offsets = append(offsets, bytecode.S4(s.bytes, base+12+4*i))
	}
	s.emit(&instruction.TableSwitch{Header: s.header(int(op)), Key: key, Default: bytecode.S4(s.bytes, base), Low: low, Offsets: offsets})
	return nil
}

func ruleLookupSwitch(s *state, op byte) error {
	key, err := s.pop()
	if err != nil {
		return err
	}
	base := s.offset + 1 + bytecode.SwitchPadding(s.offset)
	npairs := bytecode.S4(s.bytes, base+4)
	keys := make([]int, 0, npairs)
	offsets := make([]int, 0, npairs)
	for i := 0; i < npairs; i++ {
		keys = append(keys, bytecode.S4(s.bytes, base+8+8*i))
		offsets = append(offsets, bytecode.S4(s.bytes, base+12+8*i))
	}
	s.emit(&instruction.LookupSwitch{Header: s.header(int(op)), Key: key, Default: bytecode.S4(s.bytes, base), Keys: keys, Offsets: offsets})
	return nil
}

func ruleXReturn(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.XReturn{Header: s.header(int(op)), Value: v})
	return nil
}

func ruleReturn(s *state, op byte) error {
	s.emit(&instruction.Return{Header: s.header(int(op))})
	return nil
}

func ruleAThrow(s *state, op byte) error {
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.AThrow{Header: s.header(int(op)), Value: v})
	return nil
}

// Objects

func (s *state) memberRef() (int, classfile.MemberRef, error) {
	index := bytecode.U2(s.bytes, s.offset+1)
	ref, err := s.pool.MemberRef(index)
	return index, ref, err
}

func ruleGetStatic(s *state, op byte) error {
	index, ref, err := s.memberRef()
	if err != nil {
		return err
	}
	s.push(&instruction.GetStatic{Header: s.header(int(op)), Index: index, Ref: ref})
	return nil
}

func rulePutStatic(s *state, op byte) error {
	index, ref, err := s.memberRef()
	if err != nil {
		return err
	}
	v, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.PutStatic{Header: s.header(int(op)), Index: index, Ref: ref, Value: v})
	return nil
}

func ruleGetField(s *state, op byte) error {
	index, ref, err := s.memberRef()
	if err != nil {
		return err
	}
	obj, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.GetField{Header: s.header(int(op)), Index: index, Ref: ref, Object: obj})
	return nil
}

func rulePutField(s *state, op byte) error {
	index, ref, err := s.memberRef()
	if err != nil {
		return err
	}
	vals, err := s.popN(2)
	if err != nil {
		return err
	}
	s.emit(&instruction.PutField{Header: s.header(int(op)), Index: index, Ref: ref, Object: vals[0], Value: vals[1]})
	return nil
}

// call pushes a value-returning call or emits a void one as a statement.
func (s *state) call(inv *instruction.Invoke) error {
	mt, err := classfile.ParseMethodDescriptor(inv.Ref.Descriptor)
	if err != nil {
		return err
	}
	if inv.Args, err = s.popN(len(mt.Params)); err != nil {
		return err
	}
	if inv.Opcode != bytecode.INVOKESTATIC && inv.Opcode != bytecode.INVOKEDYNAMIC {
		if inv.Object, err = s.pop(); err != nil {
			return err
		}
	}
	if mt.Return == "V" {
		s.emit(inv)
	} else {
		s.push(inv)
	}
	return nil
}

func ruleInvoke(s *state, op byte) error {
	index, ref, err := s.memberRef()
	if err != nil {
		return err
	}
	return s.call(&instruction.Invoke{Header: s.header(int(op)), Index: index, Ref: ref, Bootstrap: -1})
}

func ruleInvokeDynamic(s *state, op byte) error {
	index := bytecode.U2(s.bytes, s.offset+1)
	bootstrap, name, desc, err := s.pool.InvokeDynamic(index)
	if err != nil {
		return err
	}
	ref := classfile.MemberRef{Name: name, Descriptor: desc}
	return s.call(&instruction.Invoke{Header: s.header(int(op)), Index: index, Ref: ref, Bootstrap: bootstrap})
}

func (s *state) classOperand() (int, string, error) {
	index := bytecode.U2(s.bytes, s.offset+1)
	name, err := s.pool.ClassName(index)
	return index, name, err
}

func ruleNew(s *state, op byte) error {
	index, name, err := s.classOperand()
	if err != nil {
		return err
	}
	s.push(&instruction.New{Header: s.header(int(op)), ClassIndex: index, ClassName: name})
	return nil
}

func ruleCheckCast(s *state, op byte) error {
	index, name, err := s.classOperand()
	if err != nil {
		return err
	}
	obj, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.CheckCast{Header: s.header(int(op)), ClassIndex: index, ClassName: name, Object: obj})
	return nil
}

func ruleInstanceOf(s *state, op byte) error {
	index, name, err := s.classOperand()
	if err != nil {
		return err
	}
	obj, err := s.pop()
	if err != nil {
		return err
	}
	s.push(&instruction.InstanceOf{Header: s.header(int(op)), ClassIndex: index, ClassName: name, Object: obj})
	return nil
}

func ruleMonitorEnter(s *state, op byte) error {
	obj, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.MonitorEnter{Header: s.header(int(op)), Object: obj})
	return nil
}

func ruleMonitorExit(s *state, op byte) error {
	obj, err := s.pop()
	if err != nil {
		return err
	}
	s.emit(&instruction.MonitorExit{Header: s.header(int(op)), Object: obj})
	return nil
}
