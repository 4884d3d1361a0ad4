package reconstruct

import (
	"strings"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
)

const classForNameDescriptor = "(Ljava/lang/String;)Ljava/lang/Class;"

// classLiteralPass rewrites the two lowerings older compilers used for
// Foo.class, both caching the Class object in a synthetic static field.
//
// goto shape:
//
//	IfNull(!=, GetStatic f) -> L1; DupStore#a(class$("Foo")); PutStatic f(DupLoad#a);
//	TernaryOpStore(DupLoad#a) -> L2; L1: consumer(GetStatic f)
//
// dup/pop shape:
//
//	DupStore#a(GetStatic f); IfNull(!=, DupLoad#a) -> L; Pop(DupLoad#a);
//	DupStore#b(class$("Foo")); PutStatic f(DupLoad#b); L: consumer(DupLoad#b)
func classLiteralPass(ctx *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 5; i >= 0; i-- {
		var ok bool
		if list, ok = gotoClassLiteral(ctx, m, list, i); ok {
			changed = true
			continue
		}
		if i+5 < len(list) {
			if list, ok = dupClassLiteral(ctx, m, list, i); ok {
				changed = true
			}
		}
	}
	return list, changed
}

func gotoClassLiteral(ctx *ClassContext, m *MethodContext, list []instruction.Instruction, i int) ([]instruction.Instruction, bool) {
	test, ok := list[i].(*instruction.IfNull)
	if !ok || test.Cmp != instruction.CmpNE {
		return list, false
	}
	cache, ok := test.Value.(*instruction.GetStatic)
	if !ok {
		return list, false
	}
	ds, ok := list[i+1].(*instruction.DupStore)
	if !ok {
		return list, false
	}
	name, ok := classLookup(ctx, ds.Value)
	if !ok {
		return list, false
	}
	put, ok := list[i+2].(*instruction.PutStatic)
	if !ok || !isDupLoadOf(put.Value, ds.ID) || put.Ref != cache.Ref {
		return list, false
	}
	tos, ok := list[i+3].(*instruction.TernaryOpStore)
	if !ok || !isDupLoadOf(tos.Value, ds.ID) {
		return list, false
	}
	second, ok := tos.SecondValue.(*instruction.GetStatic)
	if !ok || second.Ref != cache.Ref || !instruction.Contains(list[i+4], second) {
		return list, false
	}
	if len(dupLoads(list, ds.ID)) != 2 {
		return list, false
	}
	lit := classLiteral(ctx, name, cache.Header)
	replaceIn(list[i+4:i+5], second, lit)
	markClassCache(ctx, cache, ds.Value)
	m.retire(ds.ID)
	return splice(list, i, i+4), true
}

func dupClassLiteral(ctx *ClassContext, m *MethodContext, list []instruction.Instruction, i int) ([]instruction.Instruction, bool) {
	first, ok := list[i].(*instruction.DupStore)
	if !ok {
		return list, false
	}
	cache, ok := first.Value.(*instruction.GetStatic)
	if !ok {
		return list, false
	}
	test, ok := list[i+1].(*instruction.IfNull)
	if !ok || test.Cmp != instruction.CmpNE || !isDupLoadOf(test.Value, first.ID) {
		return list, false
	}
	if pop, ok := list[i+2].(*instruction.Pop); !ok || !isDupLoadOf(pop.Value, first.ID) {
		return list, false
	}
	ds, ok := list[i+3].(*instruction.DupStore)
	if !ok {
		return list, false
	}
	name, ok := classLookup(ctx, ds.Value)
	if !ok {
		return list, false
	}
	put, ok := list[i+4].(*instruction.PutStatic)
	if !ok || !isDupLoadOf(put.Value, ds.ID) || put.Ref != cache.Ref {
		return list, false
	}
	if len(dupLoads(list, first.ID)) != 2 {
		return list, false
	}
	loads := dupLoads(list, ds.ID)
	if len(loads) != 2 || !instruction.Contains(list[i+5], loads[1]) {
		return list, false
	}
	lit := classLiteral(ctx, name, cache.Header)
	replaceIn(list[i+5:i+6], loads[1], lit)
	markClassCache(ctx, cache, ds.Value)
	m.retire(first.ID)
	m.retire(ds.ID)
	return splice(list, i, i+5), true
}

// classLookup recognizes class$("a.b.C") and Class.forName("a.b.C") and
// returns the internal name of the class.
func classLookup(ctx *ClassContext, ins instruction.Instruction) (string, bool) {
	inv, ok := ins.(*instruction.Invoke)
	if !ok || inv.Opcode != bytecode.INVOKESTATIC || len(inv.Args) != 1 || inv.Ref.Descriptor != classForNameDescriptor {
		return "", false
	}
	if !(inv.Ref.Name == "class$" && inv.Ref.Owner == ctx.Class.ThisClass) &&
		!(inv.Ref.Name == "forName" && inv.Ref.Owner == "java/lang/Class") {
		return "", false
	}
	ldc, ok := inv.Args[0].(*instruction.Ldc)
	if !ok {
		return "", false
	}
	name, err := ctx.Pool.StringValue(ldc.Index)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(name, ".", "/"), true
}

func classLiteral(ctx *ClassContext, name string, h instruction.Header) *instruction.ClassLiteral {
	h.Opcode = bytecode.CLASSLITERAL
	return &instruction.ClassLiteral{Header: h, ClassIndex: ctx.Pool.AddClass(name), ClassName: name}
}

func markClassCache(ctx *ClassContext, cache *instruction.GetStatic, lookup instruction.Instruction) {
	ctx.MarkSyntheticField(cache.Ref.Name)
	if inv := lookup.(*instruction.Invoke); inv.Ref.Name == "class$" {
		ctx.MarkSyntheticMethod(inv.Ref.Name, inv.Ref.Descriptor)
	}
}
