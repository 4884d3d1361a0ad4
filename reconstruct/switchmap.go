package reconstruct

import (
	"strings"

	"github.com/colorfulnotion/jdcore/builder"
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

const (
	javacSwitchMapPrefix   = "$SwitchMap$"
	eclipseSwitchMapPrefix = "$SWITCH_TABLE$"
)

// switchMapPass rewrites switches over an enum. javac switches on
// `Outer$1.$SwitchMap$E[e.ordinal()]`, a table filled in the static
// initializer of Outer$1; Eclipse calls a lazy `$SWITCH_TABLE$E()` method
// of the same class. Either way the switch key becomes e and the case
// values are named after the enum constants mapped to them.
func switchMapPass(ctx *ClassContext, _ *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for _, stmt := range list {
		eachStatement(stmt, func(s instruction.Instruction) {
			var key *instruction.Instruction
			var names *map[int]string
			switch sw := s.(type) {
			case *instruction.TableSwitch:
				key, names = &sw.Key, &sw.EnumNames
			case *instruction.LookupSwitch:
				key, names = &sw.Key, &sw.EnumNames
			default:
				return
			}
			enum, table := ctx.enumSwitch(*key)
			if enum == nil {
				return
			}
			*key = enum
			*names = table
			changed = true
		})
	}
	return list, changed
}

// enumSwitch matches `map[e.ordinal()]` and returns e with the case value
// to constant name table.
func (c *ClassContext) enumSwitch(key instruction.Instruction) (instruction.Instruction, map[int]string) {
	al, ok := key.(*instruction.ArrayLoad)
	if !ok {
		return nil, nil
	}
	ord, ok := al.Index.(*instruction.Invoke)
	if !ok || ord.Ref.Name != "ordinal" || ord.Ref.Descriptor != "()I" || ord.Object == nil {
		return nil, nil
	}
	var owner, name string
	switch arr := al.Array.(type) {
	case *instruction.GetStatic:
		if !strings.HasPrefix(arr.Ref.Name, javacSwitchMapPrefix) {
			return nil, nil
		}
		owner, name = arr.Ref.Owner, arr.Ref.Name
	case *instruction.Invoke:
		if arr.Opcode != bytecode.INVOKESTATIC || !strings.HasPrefix(arr.Ref.Name, eclipseSwitchMapPrefix) {
			return nil, nil
		}
		owner, name = arr.Ref.Owner, arr.Ref.Name
	default:
		return nil, nil
	}
	table := c.switchMapsOf(owner)[name]
	if len(table) == 0 {
		return nil, nil
	}
	if owner == c.Class.ThisClass {
		if strings.HasPrefix(name, javacSwitchMapPrefix) {
			c.MarkSyntheticField(name)
		} else {
			c.MarkSyntheticMethod(name, "()[I")
		}
	}
	return ord.Object, table
}

// switchMapsOf collects the switch map tables of owner, keyed by field name
// for javac maps and by method name for Eclipse ones.
func (c *ClassContext) switchMapsOf(owner string) map[string]map[int]string {
	if maps, ok := c.switchMaps[owner]; ok {
		return maps
	}
	maps := make(map[string]map[int]string)
	c.switchMaps[owner] = maps
	cf := c.load(owner)
	if cf == nil {
		return maps
	}
	for _, m := range cf.Methods {
		eclipse := strings.HasPrefix(m.Name, eclipseSwitchMapPrefix)
		if m.Code == nil || (m.Name != "<clinit>" && !eclipse) {
			continue
		}
		res, err := builder.Build(cf.Pool, m)
		if err != nil {
			log.Debug(log.PipelineMonitoring, "switch map not analyzable", "owner", owner, "method", m.Name, "err", err)
			continue
		}
		collectSwitchMaps(res.List, maps, m, eclipse)
	}
	return maps
}

// collectSwitchMaps records every `map[E.C.ordinal()] = k` store.
func collectSwitchMaps(list []instruction.Instruction, maps map[string]map[int]string, m *classfile.Method, eclipse bool) {
	instruction.WalkList(list, func(ins instruction.Instruction) bool {
		as, ok := ins.(*instruction.ArrayStore)
		if !ok {
			return true
		}
		ord, ok := as.Index.(*instruction.Invoke)
		if !ok || ord.Ref.Name != "ordinal" {
			return true
		}
		constant, ok := ord.Object.(*instruction.GetStatic)
		if !ok {
			return true
		}
		k, ok := constInt(as.Value)
		if !ok {
			return true
		}
		key := m.Name
		if !eclipse {
			field, ok := as.Array.(*instruction.GetStatic)
			if !ok || !strings.HasPrefix(field.Ref.Name, javacSwitchMapPrefix) {
				return true
			}
			key = field.Ref.Name
		}
		if maps[key] == nil {
			maps[key] = make(map[int]string)
		}
		maps[key][int(k)] = constant.Ref.Name
		return true
	})
}
