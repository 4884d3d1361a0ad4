package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
)

// arrayInitPass folds
//
//	DupStore#a(newarray n); ArrayStore(DupLoad#a, 0, v0);
//	DupStore#b(DupLoad#a); ArrayStore(DupLoad#b, 1, v1); ... consumer(DupLoad#z)
//
// into consumer(InitArray{v0, v1, ...}). Skipped indexes and the tail up to
// the constant dimension are filled with zero constants of the element type.
// Inner initializers sit to the right of outer ones, so the right to left
// scan folds them first.
func arrayInitPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 2; i >= 0; i-- {
		ds, ok := list[i].(*instruction.DupStore)
		if !ok {
			continue
		}
		elem, length, ok := newArrayShape(ds.Value)
		if !ok {
			continue
		}
		zero := ds.Header
		values, ids, end := collectElements(list, i, elem, zero)
		if len(values) == 0 || len(values) > length {
			continue
		}
		for len(values) < length {
			values = append(values, instruction.ZeroValue(elem, zero))
		}

		final := ids[len(ids)-1]
		var use *instruction.DupLoad
		outside := 0
		for _, dl := range dupLoads(list, final) {
			if countIn(list[i:end], []*instruction.DupLoad{dl}) == 0 {
				use = dl
				outside++
			}
		}
		if outside != 1 || usedOutside(list, i, end, ids[:len(ids)-1]) {
			continue
		}

		init := &instruction.InitArray{
			Header:   instruction.Header{Opcode: bytecode.INITARRAY, Offset: ds.Offset, LineNumber: ds.LineNumber},
			NewArray: ds.Value,
			Values:   values,
		}
		list = splice(list, i, end)
		replaceIn(list, use, init)
		for _, id := range ids {
			m.retire(id)
		}
		changed = true
	}
	return list, changed
}

// newArrayShape returns the element signature and constant length of a
// one-dimensional array allocation.
func newArrayShape(ins instruction.Instruction) (string, int, bool) {
	var elem string
	var dim instruction.Instruction
	switch n := ins.(type) {
	case *instruction.NewArray:
		elem, dim = bytecode.ArrayTypeSignature(n.Type), n.Dimension
	case *instruction.ANewArray:
		elem, dim = classfile.ClassNameToSignature(n.ClassName), n.Dimension
	default:
		return "", 0, false
	}
	length, ok := constInt(dim)
	if !ok || length < 0 {
		return "", 0, false
	}
	return elem, int(length), true
}

// collectElements follows the store chain starting at the DupStore list[i]
// and returns the element values, the chain's dup ids and the index just
// past the chain.
func collectElements(list []instruction.Instruction, i int, elem string, zero instruction.Header) ([]instruction.Instruction, []int, int) {
	cur := list[i].(*instruction.DupStore).ID
	ids := []int{cur}
	var values []instruction.Instruction
	j := i + 1
	for j < len(list) {
		as, ok := list[j].(*instruction.ArrayStore)
		if !ok || !isDupLoadOf(as.Array, cur) {
			break
		}
		k, ok := constInt(as.Index)
		if !ok || int(k) < len(values) {
			break
		}
		for len(values) < int(k) {
			values = append(values, instruction.ZeroValue(elem, zero))
		}
		values = append(values, as.Value)
		j++
		if j+1 >= len(list) {
			break
		}
		next, ok := list[j].(*instruction.DupStore)
		if !ok || !isDupLoadOf(next.Value, cur) {
			break
		}
		if as, ok := list[j+1].(*instruction.ArrayStore); !ok || !isDupLoadOf(as.Array, next.ID) {
			break
		}
		cur = next.ID
		ids = append(ids, cur)
		j++
	}
	return values, ids, j
}

// usedOutside reports whether a DupLoad of any of ids sits outside
// list[from:to].
func usedOutside(list []instruction.Instruction, from, to int, ids []int) bool {
	for _, id := range ids {
		loads := dupLoads(list, id)
		if countIn(list[from:to], loads) != len(loads) {
			return true
		}
	}
	return false
}
