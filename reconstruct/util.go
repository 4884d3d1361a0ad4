package reconstruct

import (
	"github.com/colorfulnotion/jdcore/instruction"
)

// splice replaces list[from:to] with repl.
func splice(list []instruction.Instruction, from, to int, repl ...instruction.Instruction) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(list)-(to-from)+len(repl))
	out = append(out, list[:from]...)
	out = append(out, repl...)
	return append(out, list[to:]...)
}

// replaceIn swaps old for repl wherever it sits: as a statement of list, as
// an operand below one, or inside a nested body.
func replaceIn(list []instruction.Instruction, old, repl instruction.Instruction) bool {
	for i, stmt := range list {
		if stmt == old {
			list[i] = repl
			return true
		}
		if instruction.ReplaceOperand(stmt, old, repl) {
			return true
		}
		for _, body := range instruction.Bodies(stmt) {
			if replaceIn(*body, old, repl) {
				return true
			}
		}
	}
	return false
}

// dupLoads returns the uses of the DupStore with id in walk order.
func dupLoads(list []instruction.Instruction, id int) []*instruction.DupLoad {
	var loads []*instruction.DupLoad
	instruction.WalkList(list, func(ins instruction.Instruction) bool {
		if dl, ok := ins.(*instruction.DupLoad); ok && dl.StoreID == id {
			loads = append(loads, dl)
		}
		return true
	})
	return loads
}

func isDupLoadOf(ins instruction.Instruction, id int) bool {
	dl, ok := ins.(*instruction.DupLoad)
	return ok && dl.StoreID == id
}

// countIn returns how many of loads sit below the statements of list.
func countIn(list []instruction.Instruction, loads []*instruction.DupLoad) int {
	n := 0
	for _, dl := range loads {
		for _, stmt := range list {
			if instruction.Contains(stmt, dl) {
				n++
				break
			}
		}
	}
	return n
}

// eachStatement visits stmt and the statements of its nested bodies.
func eachStatement(stmt instruction.Instruction, fn func(instruction.Instruction)) {
	fn(stmt)
	for _, body := range instruction.Bodies(stmt) {
		for _, s := range *body {
			eachStatement(s, fn)
		}
	}
}

// jumpSources maps each jump target offset to the indexes of the
// statements of list whose branches, nested ones included, land there.
func jumpSources(list []instruction.Instruction) map[int][]int {
	sources := make(map[int][]int)
	for i, stmt := range list {
		eachStatement(stmt, func(s instruction.Instruction) {
			for _, t := range instruction.JumpTargets(s) {
				sources[t] = append(sources[t], i)
			}
		})
	}
	return sources
}

// jumpedFromOutside reports whether some statement outside list[from:to]
// jumps to target.
func jumpedFromOutside(sources map[int][]int, target, from, to int) bool {
	for _, src := range sources[target] {
		if src < from || src >= to {
			return true
		}
	}
	return false
}

func constInt(ins instruction.Instruction) (int32, bool) {
	c, ok := ins.(*instruction.IConst)
	if !ok {
		return 0, false
	}
	return c.Value, true
}

func isLoadOf(ins instruction.Instruction, index int) bool {
	l, ok := ins.(*instruction.Load)
	return ok && l.Index == index
}

// rewrite visits every statement and operand slot of list bottom up and
// stores fn's result in the slot when it is not nil.
func rewrite(list []instruction.Instruction, fn func(instruction.Instruction) instruction.Instruction) bool {
	changed := false
	var visit func(slot *instruction.Instruction)
	visit = func(slot *instruction.Instruction) {
		for _, p := range instruction.Operands(*slot) {
			visit(p)
		}
		for _, body := range instruction.Bodies(*slot) {
			for i := range *body {
				visit(&(*body)[i])
			}
		}
		if repl := fn(*slot); repl != nil {
			*slot = repl
			changed = true
		}
	}
	for i := range list {
		visit(&list[i])
	}
	return changed
}
