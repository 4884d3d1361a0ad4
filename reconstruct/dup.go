package reconstruct

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
)

// dupEliminationPass re-evaluates duplicated simple values (constants, local
// loads, static field reads) at each use: the first use takes the original
// node, later uses a copy positioned at the use.
func dupEliminationPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	m.list = list
	m.index()
	changed := false
	for _, id := range m.dupIDs() {
		ds := m.dups[id]
		loads := dupLoads(list, id)
		if !instruction.IsSimpleValue(ds.Value) || clobbered(list, ds, loads) {
			continue
		}
		for n, dl := range loads {
			v := ds.Value
			if n > 0 {
				v = instruction.CloneSimple(ds.Value, dl.Offset, dl.LineNumber)
			}
			replaceIn(list, dl, v)
		}
		list = removeStatement(list, ds)
		m.retire(id)
		changed = true
	}
	return list, changed
}

// dupFallbackPass turns every remaining DupStore into a synthetic temporary
// local and its uses into loads of it.
func dupFallbackPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	m.list = list
	m.index()
	if len(m.dups) == 0 {
		return list, false
	}
	temps := make(map[int]int)
	for _, id := range m.dupIDs() {
		temps[id] = m.nextTemp
		m.nextTemp++
	}
	rewrite(list, func(ins instruction.Instruction) instruction.Instruction {
		switch n := ins.(type) {
		case *instruction.DupStore:
			h := n.Header
			h.Opcode = bytecode.TEMPSTORE
			return &instruction.TempStore{Header: h, ID: temps[n.ID], Value: n.Value}
		case *instruction.DupLoad:
			h := n.Header
			h.Opcode = bytecode.TEMPLOAD
			return &instruction.TempLoad{Header: h, ID: temps[n.StoreID], Signature: n.Signature}
		}
		return nil
	})
	for id := range temps {
		m.retire(id)
	}
	return list, true
}

// checkDupLoads verifies that every DupLoad refers to a DupStore of the
// method.
func checkDupLoads(m *MethodContext, list []instruction.Instruction) error {
	var err error
	instruction.WalkList(list, func(ins instruction.Instruction) bool {
		if dl, ok := ins.(*instruction.DupLoad); ok && err == nil {
			if _, ok := m.DupStore(dl.StoreID); !ok {
				err = jderrors.AtOffset(fmt.Errorf("dup #%d: %w", dl.StoreID, jderrors.ErrPDupStoreMissing), dl.Offset)
			}
		}
		return err == nil
	})
	return err
}

// finalize checks that the dup arena is empty.
func finalize(list []instruction.Instruction) error {
	if stores, loads := instruction.CountDups(list); stores+loads > 0 {
		return fmt.Errorf("%d stores, %d loads: %w", stores, loads, jderrors.ErrPDupSurvived)
	}
	return nil
}

// clobbered reports whether a statement between the DupStore and its last
// use writes the local or static field the duplicated value reads.
func clobbered(list []instruction.Instruction, ds *instruction.DupStore, loads []*instruction.DupLoad) bool {
	from, to := -1, -1
	for i, stmt := range list {
		if stmt == ds {
			from = i
		}
		for _, dl := range loads {
			if instruction.Contains(stmt, dl) {
				to = i
			}
		}
	}
	if from < 0 || to <= from {
		return false
	}
	writes := false
	for _, stmt := range list[from+1 : to+1] {
		instruction.Walk(stmt, func(ins instruction.Instruction) bool {
			switch v := ds.Value.(type) {
			case *instruction.Load:
				switch w := ins.(type) {
				case *instruction.Store:
					writes = writes || w.Index == v.Index
				case *instruction.IInc:
					writes = writes || w.Index == v.Index
				}
			case *instruction.GetStatic:
				if w, ok := ins.(*instruction.PutStatic); ok {
					writes = writes || w.Ref == v.Ref
				}
			}
			return !writes
		})
	}
	return writes
}

func (m *MethodContext) dupIDs() []int {
	ids := make([]int, 0, len(m.dups))
	for id := range m.dups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// removeStatement deletes stmt from list or from the nested body holding it.
func removeStatement(list []instruction.Instruction, stmt instruction.Instruction) []instruction.Instruction {
	for i, s := range list {
		if s == stmt {
			return splice(list, i, i+1)
		}
		for _, body := range instruction.Bodies(s) {
			if n := len(*body); n > 0 {
				if *body = removeStatement(*body, stmt); len(*body) < n {
					return list
				}
			}
		}
	}
	return list
}
