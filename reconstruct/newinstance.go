package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
)

// newInstancePass folds `DupStore#a(New C); Invoke C.<init>(DupLoad#a, args)`
// into InvokeNew. The remaining use of #a receives the InvokeNew; a
// discarded instance (`Pop(DupLoad#a)` or no use at all) becomes a
// statement. A constructor call on a New that was never duplicated is
// folded in place.
func newInstancePass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 1; i >= 0; i-- {
		if inv, ok := list[i].(*instruction.Invoke); ok && isConstructorCall(inv) {
			if n, ok := inv.Object.(*instruction.New); ok {
				list[i] = invokeNew(inv, n)
				changed = true
			}
			continue
		}
		if i+1 >= len(list) {
			continue
		}
		ds, ok := list[i].(*instruction.DupStore)
		if !ok {
			continue
		}
		n, ok := ds.Value.(*instruction.New)
		if !ok {
			continue
		}
		inv, ok := list[i+1].(*instruction.Invoke)
		if !ok || !isConstructorCall(inv) || !isDupLoadOf(inv.Object, ds.ID) || inv.Ref.Owner != n.ClassName {
			continue
		}
		var uses []*instruction.DupLoad
		for _, dl := range dupLoads(list, ds.ID) {
			if dl != inv.Object {
				uses = append(uses, dl)
			}
		}
		if len(uses) > 1 {
			continue
		}
		expr := invokeNew(inv, n)
		switch {
		case len(uses) == 0:
			list = splice(list, i, i+2, expr)
		case discards(list, uses[0]) >= 0:
			j := discards(list, uses[0])
			list[j] = expr
			list = splice(list, i, i+2)
		default:
			list = splice(list, i, i+2)
			replaceIn(list, uses[0], expr)
		}
		m.retire(ds.ID)
		changed = true
	}
	return list, changed
}

func isConstructorCall(inv *instruction.Invoke) bool {
	return inv.Opcode == bytecode.INVOKESPECIAL && inv.Ref.Name == "<init>"
}

func invokeNew(inv *instruction.Invoke, n *instruction.New) *instruction.InvokeNew {
	h := inv.Header
	h.Opcode = bytecode.INVOKENEW
	h.LineNumber = n.LineNumber
	return &instruction.InvokeNew{Header: h, Index: inv.Index, Ref: inv.Ref, ClassName: n.ClassName, Args: inv.Args}
}

// discards returns the index of the top level statement `Pop(v)`, or -1.
func discards(list []instruction.Instruction, v instruction.Instruction) int {
	for j, stmt := range list {
		if p, ok := stmt.(*instruction.Pop); ok && p.Value == v {
			return j
		}
	}
	return -1
}
