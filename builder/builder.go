package builder

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/log"
)

const throwableSignature = "Ljava/lang/Throwable;"

// Result is the flat, offset ordered statement list of one method.
type Result struct {
	List []instruction.Instruction
	// JumpTargets has a bit set for every offset some branch or switch
	// lands on.
	JumpTargets *bitset.BitSet
	// Handlers has a bit set for every exception handler entry.
	Handlers *bitset.BitSet
	// Degraded is set when values were left on the operand stack at the
	// end of the code.
	Degraded  bool
	Leftover  int
	NextDupID int
}

type state struct {
	pool  *classfile.ConstantPool
	code  *classfile.Code
	bytes []byte

	stack []instruction.Instruction
	list  []instruction.Instruction

	offset  int
	line    int
	lineIdx int
	lines   []classfile.LineNumber

	nextDup  int
	pending  map[int][]*instruction.TernaryOpStore
	handlers map[int]int
	jsr      *bitset.BitSet
}

// Build simulates the operand stack over the code of m and returns the
// resulting statement list. Errors carry the failing offset; the caller
// stamps class and method identity on them.
func Build(pool *classfile.ConstantPool, m *classfile.Method) (*Result, error) {
	if m.Code == nil {
		return &Result{JumpTargets: bitset.New(0), Handlers: bitset.New(0)}, nil
	}
	code := m.Code.Bytecode
	targets, starts, err := bytecode.ScanTargets(code)
	if err != nil {
		return nil, jderrors.AtOffset(err, 0)
	}

	s := &state{
		pool:     pool,
		code:     m.Code,
		bytes:    code,
		line:     instruction.UnknownLineNumber,
		pending:  make(map[int][]*instruction.TernaryOpStore),
		handlers: make(map[int]int),
		jsr:      bitset.New(uint(len(code) + 1)),
	}
	s.lines = append(s.lines, m.Code.LineNumbers...)
	sort.SliceStable(s.lines, func(i, j int) bool { return s.lines[i].StartPC < s.lines[j].StartPC })

	handlerSet := bitset.New(uint(len(code) + 1))
	for _, ce := range m.Code.ExceptionTable {
		if ce.HandlerPC < 0 || ce.HandlerPC >= len(code) || !starts.Test(uint(ce.HandlerPC)) {
			return nil, jderrors.AtOffset(fmt.Errorf("handler_pc %d: %w", ce.HandlerPC, jderrors.ErrBBadBranchTarget), ce.HandlerPC)
		}
		handlerSet.Set(uint(ce.HandlerPC))
		if _, ok := s.handlers[ce.HandlerPC]; !ok {
			s.handlers[ce.HandlerPC] = ce.CatchType
		}
	}
	for offset, ok := starts.NextSet(0); ok; offset, ok = starts.NextSet(offset + 1) {
		op := code[offset]
		if op == bytecode.JSR || op == bytecode.JSR_W {
			for _, t := range bytecode.BranchTargets(code, int(offset)) {
				s.jsr.Set(uint(t))
			}
		}
	}

	for offset := 0; offset < len(code); {
		n, err := bytecode.InstructionLength(code, offset)
		if err != nil {
			return nil, jderrors.AtOffset(err, offset)
		}
		s.offset = offset
		s.advanceLine()
		if err := s.enter(); err != nil {
			return nil, jderrors.AtOffset(err, offset)
		}
		op := code[offset]
		rule := dispatchTable[op]
		if rule == nil {
			return nil, jderrors.AtOffset(fmt.Errorf("%s: %w", bytecode.Name(int(op)), jderrors.ErrBUnsupportedOpcode), offset)
		}
		if err := rule(s, op); err != nil {
			return nil, jderrors.AtOffset(fmt.Errorf("%s: %w", bytecode.Name(int(op)), err), offset)
		}
		offset += n
	}

	res := &Result{
		List:        s.list,
		JumpTargets: targets,
		Handlers:    handlerSet,
		NextDupID:   s.nextDup,
	}
	if len(s.stack) > 0 {
		res.Degraded = true
		res.Leftover = len(s.stack)
		log.Warn(log.BuilderMonitoring, "operand stack not empty at end of code", "method", m.Name+m.Descriptor, "values", len(s.stack), "err", jderrors.GetErrorCodeWithName(jderrors.ErrBStackNotEmpty))
	}
	log.Trace(log.BuilderMonitoring, "built", "method", m.Name+m.Descriptor, "statements", len(s.list), "dups", s.nextDup)
	return res, nil
}

// advanceLine moves the line cursor up to the current offset.
func (s *state) advanceLine() {
	for s.lineIdx < len(s.lines) && s.lines[s.lineIdx].StartPC <= s.offset {
		s.line = s.lines[s.lineIdx].Line
		s.lineIdx++
	}
}

// enter applies the implicit stack effects of arriving at the current
// offset: pending ternary second values, exception objects and jsr return
// addresses.
func (s *state) enter() error {
	if tos, ok := s.pending[s.offset]; ok {
		delete(s.pending, s.offset)
		if len(s.stack) > 0 {
			top := s.stack[len(s.stack)-1]
			for _, t := range tos {
				t.SecondValue = top
			}
		}
	}
	if catchType, ok := s.handlers[s.offset]; ok {
		sig := throwableSignature
		if catchType != 0 {
			name, err := s.pool.ClassName(catchType)
			if err != nil {
				return err
			}
			sig = classfile.ClassNameToSignature(name)
		}
		s.push(&instruction.ExceptionLoad{
			Header:    s.header(bytecode.EXCEPTIONLOAD),
			CatchType: catchType,
			Signature: sig,
		})
	}
	if s.jsr.Test(uint(s.offset)) {
		s.push(&instruction.ReturnAddressLoad{Header: s.header(bytecode.RETURNADDRESSLOAD)})
	}
	return nil
}

func (s *state) header(op int) instruction.Header {
	return instruction.Header{Opcode: op, Offset: s.offset, LineNumber: s.line}
}

func (s *state) push(ins instruction.Instruction) {
	s.stack = append(s.stack, ins)
}

func (s *state) pop() (instruction.Instruction, error) {
	if len(s.stack) == 0 {
		return nil, jderrors.ErrBStackUnderflow
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return top, nil
}

// popN pops n values and returns them in evaluation order.
func (s *state) popN(n int) ([]instruction.Instruction, error) {
	if len(s.stack) < n {
		return nil, jderrors.ErrBStackUnderflow
	}
	vals := make([]instruction.Instruction, n)
	copy(vals, s.stack[len(s.stack)-n:])
	s.stack = s.stack[:len(s.stack)-n]
	return vals, nil
}

func (s *state) emit(ins instruction.Instruction) {
	s.list = append(s.list, ins)
}

// dupStore records v as a duplicated value and returns a fresh use of it.
func (s *state) dupStore(v instruction.Instruction) (*instruction.DupStore, func() instruction.Instruction) {
	ds := &instruction.DupStore{Header: s.header(bytecode.DUPSTORE), ID: s.nextDup, Value: v}
	s.nextDup++
	s.emit(ds)
	sig := instruction.ValueSignature(v)
	use := func() instruction.Instruction {
		return &instruction.DupLoad{Header: s.header(bytecode.DUPLOAD), StoreID: ds.ID, Signature: sig}
	}
	return ds, use
}

func (s *state) localSignature(index int, fallback string) string {
	for _, lv := range s.code.LocalVariables {
		if lv.Index == index && s.offset >= lv.StartPC-2 && s.offset < lv.StartPC+lv.Length {
			return lv.Descriptor
		}
	}
	return fallback
}
