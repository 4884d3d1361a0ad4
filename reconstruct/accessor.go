package reconstruct

import (
	"strings"

	"github.com/colorfulnotion/jdcore/builder"
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

type accessorKind int

const (
	accessGet accessorKind = iota
	accessSet
	accessSetValue
	accessInvoke
)

// accessor describes a synthetic access$NNN method: the member it reaches
// and how its parameters map onto the access.
type accessor struct {
	kind accessorKind
	op   int
	ref  classfile.MemberRef
}

// accessorPass replaces calls to access$NNN methods with the field access
// or call they wrap.
func accessorPass(ctx *ClassContext, _ *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := rewrite(list, func(ins instruction.Instruction) instruction.Instruction {
		inv, ok := ins.(*instruction.Invoke)
		if !ok || inv.Opcode != bytecode.INVOKESTATIC || !strings.HasPrefix(inv.Ref.Name, "access$") {
			return nil
		}
		acc := ctx.accessorsOf(inv.Ref.Owner)[inv.Ref.Name+inv.Ref.Descriptor]
		if acc == nil {
			return nil
		}
		return acc.expand(ctx, inv)
	})
	return list, changed
}

// accessorsOf analyzes the access$ methods of owner once per class context.
func (c *ClassContext) accessorsOf(owner string) map[string]*accessor {
	if accs, ok := c.accessors[owner]; ok {
		return accs
	}
	accs := make(map[string]*accessor)
	c.accessors[owner] = accs
	cf := c.load(owner)
	if cf == nil {
		return accs
	}
	for _, m := range cf.Methods {
		if !m.IsStatic() || !strings.HasPrefix(m.Name, "access$") || m.Code == nil {
			continue
		}
		res, err := builder.Build(cf.Pool, m)
		if err != nil {
			log.Debug(log.PipelineMonitoring, "accessor not analyzable", "owner", owner, "method", m.Name, "err", err)
			continue
		}
		if acc := classifyAccessor(m, res.List); acc != nil {
			accs[m.Name+m.Descriptor] = acc
			if owner == c.Class.ThisClass {
				c.MarkSyntheticMethod(m.Name, m.Descriptor)
			}
		}
	}
	return accs
}

func classifyAccessor(m *classfile.Method, list []instruction.Instruction) *accessor {
	mt, err := classfile.ParseMethodDescriptor(m.Descriptor)
	if err != nil {
		return nil
	}
	slots := paramSlots(mt.Params)
	isParam := func(ins instruction.Instruction, i int) bool {
		return i < len(slots) && isLoadOf(ins, slots[i])
	}
	switch len(list) {
	case 1:
		xr, ok := list[0].(*instruction.XReturn)
		if !ok {
			return nil
		}
		switch v := xr.Value.(type) {
		case *instruction.GetField:
			if len(slots) == 1 && isParam(v.Object, 0) {
				return &accessor{kind: accessGet, op: bytecode.GETFIELD, ref: v.Ref}
			}
		case *instruction.GetStatic:
			if len(slots) == 0 {
				return &accessor{kind: accessGet, op: bytecode.GETSTATIC, ref: v.Ref}
			}
		case *instruction.Invoke:
			if forwardsParams(v, isParam, len(slots)) {
				return &accessor{kind: accessInvoke, op: v.Opcode, ref: v.Ref}
			}
		}
	case 2:
		if _, ok := list[1].(*instruction.Return); !ok {
			return nil
		}
		switch v := list[0].(type) {
		case *instruction.PutField:
			if len(slots) == 2 && isParam(v.Object, 0) && isParam(v.Value, 1) {
				return &accessor{kind: accessSet, op: bytecode.PUTFIELD, ref: v.Ref}
			}
		case *instruction.PutStatic:
			if len(slots) == 1 && isParam(v.Value, 0) {
				return &accessor{kind: accessSet, op: bytecode.PUTSTATIC, ref: v.Ref}
			}
		case *instruction.Invoke:
			if forwardsParams(v, isParam, len(slots)) {
				return &accessor{kind: accessInvoke, op: v.Opcode, ref: v.Ref}
			}
		}
	case 3:
		ds, ok := list[0].(*instruction.DupStore)
		if !ok {
			return nil
		}
		xr, ok := list[2].(*instruction.XReturn)
		if !ok || !isDupLoadOf(xr.Value, ds.ID) {
			return nil
		}
		switch v := list[1].(type) {
		case *instruction.PutField:
			if len(slots) == 2 && isParam(v.Object, 0) && isParam(ds.Value, 1) && isDupLoadOf(v.Value, ds.ID) {
				return &accessor{kind: accessSetValue, op: bytecode.PUTFIELD, ref: v.Ref}
			}
		case *instruction.PutStatic:
			if len(slots) == 1 && isParam(ds.Value, 0) && isDupLoadOf(v.Value, ds.ID) {
				return &accessor{kind: accessSetValue, op: bytecode.PUTSTATIC, ref: v.Ref}
			}
		}
	}
	return nil
}

// paramSlots returns the local slot of every parameter of a static method.
func paramSlots(params []string) []int {
	slots := make([]int, len(params))
	slot := 0
	for i, p := range params {
		slots[i] = slot
		slot++
		if classfile.IsCategory2(p) {
			slot++
		}
	}
	return slots
}

// forwardsParams reports whether inv passes the accessor parameters, in
// order, as its receiver and arguments.
func forwardsParams(inv *instruction.Invoke, isParam func(instruction.Instruction, int) bool, n int) bool {
	if inv.Opcode == bytecode.INVOKEDYNAMIC {
		return false
	}
	operands := inv.Args
	if inv.Object != nil {
		operands = append([]instruction.Instruction{inv.Object}, inv.Args...)
	}
	if len(operands) != n {
		return false
	}
	for i, op := range operands {
		if !isParam(op, i) {
			return false
		}
	}
	return true
}

// expand builds the direct access for one call site.
func (a *accessor) expand(ctx *ClassContext, inv *instruction.Invoke) instruction.Instruction {
	h := inv.Header
	h.Opcode = a.op
	args := inv.Args
	switch a.kind {
	case accessGet:
		index := ctx.Pool.AddFieldref(a.ref.Owner, a.ref.Name, a.ref.Descriptor)
		if a.op == bytecode.GETSTATIC {
			return &instruction.GetStatic{Header: h, Index: index, Ref: a.ref}
		}
		return &instruction.GetField{Header: h, Index: index, Ref: a.ref, Object: args[0]}
	case accessSet, accessSetValue:
		index := ctx.Pool.AddFieldref(a.ref.Owner, a.ref.Name, a.ref.Descriptor)
		var target, value instruction.Instruction
		if a.op == bytecode.PUTSTATIC {
			value = args[0]
			target = &instruction.PutStatic{Header: h, Index: index, Ref: a.ref}
		} else {
			value = args[1]
			target = &instruction.PutField{Header: h, Index: index, Ref: a.ref, Object: args[0]}
		}
		if a.kind == accessSet {
			switch t := target.(type) {
			case *instruction.PutStatic:
				t.Value = value
			case *instruction.PutField:
				t.Value = value
			}
			return target
		}
		ah := inv.Header
		ah.Opcode = bytecode.ASSIGNMENT
		return &instruction.Assignment{Header: ah, Target: target, Value: value}
	}
	var index int
	if a.ref.Interface {
		index = ctx.Pool.AddInterfaceMethodref(a.ref.Owner, a.ref.Name, a.ref.Descriptor)
	} else {
		index = ctx.Pool.AddMethodref(a.ref.Owner, a.ref.Name, a.ref.Descriptor)
	}
	call := &instruction.Invoke{Header: h, Index: index, Ref: a.ref, Bootstrap: -1}
	if a.op == bytecode.INVOKESTATIC {
		call.Args = args
	} else {
		call.Object, call.Args = args[0], args[1:]
	}
	return call
}
