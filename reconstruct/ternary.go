package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
)

// ternaryPass folds `cond; TernaryOpStore(v1); consumer(.. v2 ..)` into a
// TernaryOp that replaces v2 inside the consumer. The test is cond
// inverted: v1 is evaluated when cond falls through.
//
// Shapes are matched right to left so nested ternaries fold inside out. A
// ternary nested in the else branch becomes the second value of the
// enclosing store; one nested in the then branch is the value of the next
// store to the same merge point, which shares the merge value.
func ternaryPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for {
		var folded bool
		if list, folded = foldTernaries(list); !folded {
			break
		}
		changed = true
	}
	ls, folded := booleanReturns(list, m)
	return ls, changed || folded
}

// foldTernaries makes one right to left sweep over list.
func foldTernaries(list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 2; i >= 1; i-- {
		tos, ok := list[i].(*instruction.TernaryOpStore)
		if !ok || tos.SecondValue == nil {
			continue
		}
		cond, ok := list[i-1].(instruction.Conditional)
		if !ok {
			continue
		}
		end := tos.JumpOffset()
		consumer := list[i+1]
		second := tos.SecondValue
		outer, chained := consumer.(*instruction.TernaryOpStore)
		if chained && outer.JumpOffset() == end && outer.SecondValue == tos.SecondValue && outer.Value != nil {
			// then branch of an enclosing ternary: cond jumps to the
			// expression pushed before the enclosing store
			second = outer.Value
			if cond.JumpOffset() != instruction.FirstOffset(second) {
				continue
			}
		} else {
			chained = false
			if consumer == second || !instruction.Contains(consumer, second) {
				continue
			}
			if t := cond.JumpOffset(); t <= tos.Offset || t > end {
				continue
			}
		}
		if landsInside(jumpSources(list), instruction.FirstOffset(cond), instruction.Offset(consumer), end, i-1, i+2) {
			continue
		}

		cond.Invert()
		h := tos.Header
		h.Opcode = bytecode.TERNARYOP
		h.LineNumber = instruction.Line(cond)
		op := &instruction.TernaryOp{Header: h, Test: cond, Value1: tos.Value, Value2: second}
		if chained {
			outer.Value = op
		} else {
			replaceIn(list[i+1:i+2], second, op)
			for _, stmt := range list[:i-1] {
				if other, ok := stmt.(*instruction.TernaryOpStore); ok && other.SecondValue == second {
					other.SecondValue = op
				}
			}
		}
		list = splice(list, i-1, i+1)
		changed = true
	}
	return list, changed
}

// landsInside reports whether a statement outside list[from:to] jumps into
// the offset range (lo, hi], the allowed offset excepted.
func landsInside(sources map[int][]int, lo, hi, allowed, from, to int) bool {
	for target := range sources {
		if target <= lo || target > hi || target == allowed {
			continue
		}
		if jumpedFromOutside(sources, target, from, to) {
			return true
		}
	}
	return false
}

// booleanReturns collapses `return c ? 1 : 0` and the two-return form
// `if (c) goto L; return 1; L: return 0;` into `return c` or `return !c`.
// It only applies to methods returning boolean; m may be nil in which case
// the return type is not checked.
func booleanReturns(list []instruction.Instruction, m *MethodContext) ([]instruction.Instruction, bool) {
	if m != nil && m.ReturnType != "Z" {
		return list, false
	}
	changed := false
	for _, stmt := range list {
		xr, ok := stmt.(*instruction.XReturn)
		if !ok || xr.Opcode != bytecode.IRETURN {
			continue
		}
		op, ok := xr.Value.(*instruction.TernaryOp)
		if !ok {
			continue
		}
		test, ok := op.Test.(instruction.Conditional)
		v1, ok1 := boolConst(op.Value1)
		v2, ok2 := boolConst(op.Value2)
		if !ok || !ok1 || !ok2 || v1 == v2 {
			continue
		}
		if !v1 {
			test.Invert()
		}
		xr.Value = test
		changed = true
	}

	for j := len(list) - 3; j >= 0; j-- {
		cond, ok := list[j].(instruction.Conditional)
		if !ok {
			continue
		}
		r1, ok1 := list[j+1].(*instruction.XReturn)
		r2, ok2 := list[j+2].(*instruction.XReturn)
		if !ok1 || !ok2 || r1.Opcode != bytecode.IRETURN || r2.Opcode != bytecode.IRETURN {
			continue
		}
		v1, ok1 := boolConst(r1.Value)
		v2, ok2 := boolConst(r2.Value)
		if !ok1 || !ok2 || v1 == v2 {
			continue
		}
		second := instruction.FirstOffset(r2)
		if cond.JumpOffset() != second {
			continue
		}
		sources := jumpSources(list)
		if jumpedFromOutside(sources, instruction.FirstOffset(r1), j, j+3) || jumpedFromOutside(sources, second, j, j+3) {
			continue
		}
		if v1 {
			cond.Invert()
		}
		ret := &instruction.XReturn{Header: r1.Header, Value: cond}
		list = splice(list, j, j+3, ret)
		changed = true
	}
	return list, changed
}

func boolConst(ins instruction.Instruction) (bool, bool) {
	v, ok := constInt(ins)
	if !ok || (v != 0 && v != 1) {
		return false, false
	}
	return v == 1, true
}
