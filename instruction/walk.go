package instruction

import (
	"fmt"

	"github.com/colorfulnotion/jdcore/bytecode"
)

// Operands returns pointers to the expression slots of ins, left to right.
// Nil slots are omitted. Statement bodies are not operands; see Bodies.
func Operands(ins Instruction) []*Instruction {
	var ops []*Instruction
	add := func(p *Instruction) {
		if *p != nil {
			ops = append(ops, p)
		}
	}
	addAll := func(s []Instruction) {
		for i := range s {
			add(&s[i])
		}
	}
	switch n := ins.(type) {
	case *Store:
		add(&n.Value)
	case *ArrayLoad:
		add(&n.Array)
		add(&n.Index)
	case *ArrayStore:
		add(&n.Array)
		add(&n.Index)
		add(&n.Value)
	case *NewArray:
		add(&n.Dimension)
	case *ANewArray:
		add(&n.Dimension)
	case *MultiANewArray:
		addAll(n.Dimensions)
	case *ArrayLength:
		add(&n.Array)
	case *BinaryOp:
		add(&n.Left)
		add(&n.Right)
	case *UnaryOp:
		add(&n.Value)
	case *Convert:
		add(&n.Value)
	case *Compare:
		add(&n.Left)
		add(&n.Right)
	case *PutStatic:
		add(&n.Value)
	case *GetField:
		add(&n.Object)
	case *PutField:
		add(&n.Object)
		add(&n.Value)
	case *Invoke:
		add(&n.Object)
		addAll(n.Args)
	case *CheckCast:
		add(&n.Object)
	case *InstanceOf:
		add(&n.Object)
	case *AThrow:
		add(&n.Value)
	case *MonitorEnter:
		add(&n.Object)
	case *MonitorExit:
		add(&n.Object)
	case *XReturn:
		add(&n.Value)
	case *Pop:
		add(&n.Value)
	case *DupStore:
		add(&n.Value)
	case *TernaryOpStore:
		add(&n.Value)
	case *If:
		add(&n.Value)
	case *IfCmp:
		add(&n.Left)
		add(&n.Right)
	case *IfNull:
		add(&n.Value)
	case *ComplexIf:
		addAll(n.Branches)
	case *TableSwitch:
		add(&n.Key)
	case *LookupSwitch:
		add(&n.Key)
	case *TernaryOp:
		add(&n.Test)
		add(&n.Value1)
		add(&n.Value2)
	case *InitArray:
		add(&n.NewArray)
		addAll(n.Values)
	case *InvokeNew:
		addAll(n.Args)
	case *Assignment:
		add(&n.Target)
		add(&n.Value)
	case *Increment:
		add(&n.Target)
	case *TempStore:
		add(&n.Value)
	case *Synchronized:
		add(&n.Monitor)
	case *IfStatement:
		add(&n.Condition)
	case *IfElseStatement:
		add(&n.Condition)
	case *WhileStatement:
		add(&n.Condition)
	case *DoWhileStatement:
		add(&n.Condition)
	}
	return ops
}

// Bodies returns the nested statement lists of a structured statement.
func Bodies(ins Instruction) []*[]Instruction {
	switch n := ins.(type) {
	case *Synchronized:
		return []*[]Instruction{&n.Body}
	case *IfStatement:
		return []*[]Instruction{&n.Then}
	case *IfElseStatement:
		return []*[]Instruction{&n.Then, &n.Else}
	case *WhileStatement:
		return []*[]Instruction{&n.Body}
	case *DoWhileStatement:
		return []*[]Instruction{&n.Body}
	}
	return nil
}

// Walk visits ins and everything below it depth first, operands before
// bodies. Returning false from fn skips the children of that node.
func Walk(ins Instruction, fn func(Instruction) bool) {
	if ins == nil || !fn(ins) {
		return
	}
	for _, p := range Operands(ins) {
		Walk(*p, fn)
	}
	for _, body := range Bodies(ins) {
		for _, s := range *body {
			Walk(s, fn)
		}
	}
}

// WalkList walks every statement of list.
func WalkList(list []Instruction, fn func(Instruction) bool) {
	for _, ins := range list {
		Walk(ins, fn)
	}
}

// ReplaceOperand swaps the first operand slot below root holding old (by
// identity) for repl. It reports whether a slot was found.
func ReplaceOperand(root Instruction, old, repl Instruction) bool {
	for _, p := range Operands(root) {
		if *p == old {
			*p = repl
			return true
		}
		if ReplaceOperand(*p, old, repl) {
			return true
		}
	}
	return false
}

// Contains reports whether target is root or below it.
func Contains(root, target Instruction) bool {
	found := false
	Walk(root, func(ins Instruction) bool {
		if ins == target {
			found = true
		}
		return !found
	})
	return found
}

// FirstOffset returns the smallest bytecode offset covered by ins. Uses of
// duplicated values carry the offset of the dup and are not counted.
func FirstOffset(ins Instruction) int {
	first := ins.Base().Offset
	for _, p := range Operands(ins) {
		switch (*p).(type) {
		case *DupLoad, *TempLoad:
			continue
		}
		if o := FirstOffset(*p); o < first {
			first = o
		}
	}
	return first
}

// LastLine returns the largest known line number at or below ins.
func LastLine(ins Instruction) int {
	last := UnknownLineNumber
	Walk(ins, func(n Instruction) bool {
		if l := n.Base().LineNumber; l > last {
			last = l
		}
		return true
	})
	return last
}

// CheckOffsets verifies that no two nodes with real opcodes share an
// offset. Pseudo nodes are synthesized and exempt.
func CheckOffsets(list []Instruction) error {
	seen := make(map[int]Instruction)
	var err error
	WalkList(list, func(ins Instruction) bool {
		if err != nil {
			return false
		}
		h := ins.Base()
		if bytecode.IsPseudo(h.Opcode) {
			return true
		}
		if prev, ok := seen[h.Offset]; ok && prev != ins {
			err = fmt.Errorf("offset %d covered by %s and %s", h.Offset, bytecode.Name(prev.Base().Opcode), bytecode.Name(h.Opcode))
			return false
		}
		seen[h.Offset] = ins
		return true
	})
	return err
}

// CountDups returns the number of DupStore and DupLoad nodes under list.
func CountDups(list []Instruction) (stores, loads int) {
	WalkList(list, func(ins Instruction) bool {
		switch ins.(type) {
		case *DupStore:
			stores++
		case *DupLoad:
			loads++
		}
		return true
	})
	return stores, loads
}

// JumpTargets returns the absolute targets of a branch or switch statement.
func JumpTargets(ins Instruction) []int {
	switch n := ins.(type) {
	case *TableSwitch:
		return switchTargets(n.Offset, n.Default, n.Offsets)
	case *LookupSwitch:
		return switchTargets(n.Offset, n.Default, n.Offsets)
	case Branch:
		return []int{n.JumpOffset()}
	}
	return nil
}

func switchTargets(offset, def int, offsets []int) []int {
	t := make([]int, 0, len(offsets)+1)
	t = append(t, offset+def)
	for _, o := range offsets {
		t = append(t, offset+o)
	}
	return t
}
