package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
)

// assignmentPass turns a store whose value is also kept on the stack into
// an assignment expression:
//
//	DupStore#a(v); Store(x, DupLoad#a); consumer(DupLoad#a)  =>  consumer(x = v)
//
// Field, static and array element stores are handled the same way. The
// target node keeps its position and loses its value operand.
func assignmentPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 2; i >= 0; i-- {
		ds, ok := list[i].(*instruction.DupStore)
		if !ok {
			continue
		}
		target := list[i+1]
		slot := storedValue(target)
		if slot == nil || !isDupLoadOf(*slot, ds.ID) {
			continue
		}
		loads := dupLoads(list, ds.ID)
		if len(loads) != 2 || loads[0] != *slot {
			continue
		}
		*slot = nil
		h := target.Base()
		a := &instruction.Assignment{
			Header: instruction.Header{Opcode: bytecode.ASSIGNMENT, Offset: h.Offset, LineNumber: h.LineNumber},
			Target: target,
			Value:  ds.Value,
		}
		list = splice(list, i, i+2)
		replaceIn(list, loads[1], a)
		m.retire(ds.ID)
		changed = true
	}
	return list, changed
}

// storedValue returns the value slot of a store-like statement.
func storedValue(ins instruction.Instruction) *instruction.Instruction {
	switch n := ins.(type) {
	case *instruction.Store:
		return &n.Value
	case *instruction.PutField:
		return &n.Value
	case *instruction.PutStatic:
		return &n.Value
	case *instruction.ArrayStore:
		return &n.Value
	}
	return nil
}

// incrementPass folds an iinc into the neighbouring read of the same local:
//
//	IInc(k); consumer(.. Load k ..)   with the load right before the iinc  =>  k++
//	IInc(k); consumer(.. Load k ..)   with the load right after the iinc   =>  ++k
//
// The consumer must be the next statement on the same line and must not be
// a jump target, so loop updates stay separate statements.
func incrementPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 2; i >= 0; i-- {
		inc, ok := list[i].(*instruction.IInc)
		if !ok {
			continue
		}
		consumer := list[i+1]
		if l := instruction.Line(consumer); l != inc.LineNumber && l != instruction.UnknownLineNumber {
			continue
		}
		load, op := adjacentLoad(consumer, inc)
		if load == nil {
			continue
		}
		if op == bytecode.PREINC && len(jumpSources(list)[instruction.FirstOffset(consumer)]) > 0 {
			continue
		}
		h := inc.Header
		h.Opcode = op
		replaceIn(list[i+1:i+2], load, &instruction.Increment{Header: h, Target: load, Count: inc.Count})
		list = splice(list, i, i+1)
		changed = true
	}
	return list, changed
}

// adjacentLoad finds in consumer a Load of the incremented local that is
// the closest node before (POSTINC) or after (PREINC) the iinc.
func adjacentLoad(consumer instruction.Instruction, inc *instruction.IInc) (*instruction.Load, int) {
	var before, after instruction.Instruction
	instruction.Walk(consumer, func(n instruction.Instruction) bool {
		if instruction.IsPseudo(n) {
			return true
		}
		o := instruction.Offset(n)
		if o < inc.Offset && (before == nil || o > instruction.Offset(before)) {
			before = n
		}
		if o > inc.Offset && (after == nil || o < instruction.Offset(after)) {
			after = n
		}
		return true
	})
	if l, ok := before.(*instruction.Load); ok && l.Index == inc.Index {
		return l, bytecode.POSTINC
	}
	if l, ok := after.(*instruction.Load); ok && l.Index == inc.Index {
		return l, bytecode.PREINC
	}
	return nil, 0
}
