package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
)

// synchronizedPass rebuilds synchronized blocks.
//
// The empty block is `DupStore#a(x); MonitorEnter(DupLoad#a); MonitorExit(DupLoad#a)`.
// javac keeps the monitor in a local t and releases it on every exit:
//
//	DupStore#a(x); Store(t, DupLoad#a); MonitorEnter(DupLoad#a);
//	body...; MonitorExit(Load t); goto END
//	H: Store(e, ExceptionLoad); MonitorExit(Load t); AThrow(Load e)
//
// where H catches any exception thrown in the body. Blocks are matched right to left so nested blocks fold first.
func synchronizedPass(_ *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 3; i >= 0; i-- {
		ds, ok := list[i].(*instruction.DupStore)
		if !ok {
			continue
		}
		var done bool
		if list, done = emptySynchronized(m, list, i, ds); done {
			changed = true
			continue
		}
		if list, done = javacSynchronized(m, list, i, ds); done {
			changed = true
		}
	}
	return list, changed
}

func emptySynchronized(m *MethodContext, list []instruction.Instruction, i int, ds *instruction.DupStore) ([]instruction.Instruction, bool) {
	enter, ok := list[i+1].(*instruction.MonitorEnter)
	if !ok || !isDupLoadOf(enter.Object, ds.ID) {
		return list, false
	}
	exit, ok := list[i+2].(*instruction.MonitorExit)
	if !ok || !isDupLoadOf(exit.Object, ds.ID) || len(dupLoads(list, ds.ID)) != 2 {
		return list, false
	}
	m.retire(ds.ID)
	return splice(list, i, i+3, synchronizedNode(enter, ds.Value, nil)), true
}

func javacSynchronized(m *MethodContext, list []instruction.Instruction, i int, ds *instruction.DupStore) ([]instruction.Instruction, bool) {
	if i+3 >= len(list) {
		return list, false
	}
	temp, ok := list[i+1].(*instruction.Store)
	if !ok || !isDupLoadOf(temp.Value, ds.ID) {
		return list, false
	}
	enter, ok := list[i+2].(*instruction.MonitorEnter)
	if !ok || !isDupLoadOf(enter.Object, ds.ID) || len(dupLoads(list, ds.ID)) != 2 {
		return list, false
	}
	h := -1
	for j := i + 3; j+2 < len(list); j++ {
		if isMonitorHandler(list[j:j+3], temp.Index) {
			h = j
			break
		}
	}
	if h < 0 || !releasesMonitor(m, instruction.FirstOffset(list[i+3]), instruction.FirstOffset(list[h])) {
		return list, false
	}
	end := instruction.Offset(list[h+2])
	var body []instruction.Instruction
	for j, stmt := range list[i+3 : h] {
		if exit, ok := stmt.(*instruction.MonitorExit); ok && isLoadOf(exit.Object, temp.Index) {
			continue
		}
		if g, ok := stmt.(*instruction.Goto); ok && i+3+j == h-1 && g.JumpOffset() > end {
			continue
		}
		body = append(body, stmt)
	}
	m.retire(ds.ID)
	return splice(list, i, h+3, synchronizedNode(enter, ds.Value, body)), true
}

// releasesMonitor reports whether the exception table sends every
// exception thrown at from to handler, as javac does for the body of a
// synchronized block.
func releasesMonitor(m *MethodContext, from, handler int) bool {
	if m.Method == nil || m.Method.Code == nil {
		return false
	}
	for _, e := range m.Method.Code.ExceptionTable {
		if e.HandlerPC == handler && e.CatchType == 0 && e.StartPC <= from && from < e.EndPC {
			return true
		}
	}
	return false
}

// isMonitorHandler matches `Store(e, ExceptionLoad); MonitorExit(Load t); AThrow(Load e)`.
func isMonitorHandler(stmts []instruction.Instruction, monitor int) bool {
	store, ok := stmts[0].(*instruction.Store)
	if !ok {
		return false
	}
	if _, ok := store.Value.(*instruction.ExceptionLoad); !ok {
		return false
	}
	exit, ok := stmts[1].(*instruction.MonitorExit)
	if !ok || !isLoadOf(exit.Object, monitor) {
		return false
	}
	throw, ok := stmts[2].(*instruction.AThrow)
	return ok && isLoadOf(throw.Value, store.Index)
}

func synchronizedNode(enter *instruction.MonitorEnter, monitor instruction.Instruction, body []instruction.Instruction) *instruction.Synchronized {
	h := enter.Header
	h.Opcode = bytecode.SYNCHRONIZED
	if body == nil {
		body = []instruction.Instruction{}
	}
	return &instruction.Synchronized{Header: h, Monitor: monitor, Body: body}
}
