// Package structure turns the branch statements left by the reconstructor
// into if, if-else, while and do-while statements. Branches it cannot nest
// stay in place and get a Label at their target.
package structure

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

type edge struct {
	from, to int
}

type structurer struct {
	edges []edge
}

// Statements structures the offset ordered statement list of a method.
// end is the offset just past the last instruction.
func Statements(list []instruction.Instruction, end int) []instruction.Instruction {
	s := &structurer{}
	for _, stmt := range list {
		eachStatement(stmt, func(b instruction.Instruction) {
			for _, t := range instruction.JumpTargets(b) {
				s.edges = append(s.edges, edge{from: instruction.Offset(b), to: t})
			}
		})
	}
	out := s.block(list, end)
	return addLabels(out, end)
}

// block structures list, whose successor starts at end. Loops are matched
// before conditionals so a loop header is never taken for an if.
func (s *structurer) block(list []instruction.Instruction, end int) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(list))
	for i := 0; i < len(list); {
		if stmt, next := s.loop(list, i, end); stmt != nil {
			out = append(out, stmt)
			i = next
			continue
		}
		if stmt, next := s.whileBottomTest(list, i, end); stmt != nil {
			out = append(out, stmt)
			i = next
			continue
		}
		if stmt, next := s.conditional(list, i, end); stmt != nil {
			out = append(out, stmt)
			i = next
			continue
		}
		if sync, ok := list[i].(*instruction.Synchronized); ok {
			sync.Body = s.block(sync.Body, start(list, i+1, end))
		}
		out = append(out, list[i])
		i++
	}
	return out
}

// loop matches the outermost back edge to the start of list[i]:
//
//	do { body } while (c)      body; if (c) goto start
//	while (c) { body }         if (!c) goto exit; body; goto start; exit:
//	while (true) { body }      body; goto start
func (s *structurer) loop(list []instruction.Instruction, i, end int) (instruction.Instruction, int) {
	head := start(list, i, end)
	for k := len(list) - 1; k >= i; k-- {
		b, ok := list[k].(instruction.Branch)
		if !ok || b.JumpOffset() != head || b.JumpOffset() > instruction.Offset(b) {
			continue
		}
		if s.entered(head, start(list, k+1, end)) {
			return nil, 0
		}
		h := instruction.Header{Offset: head, LineNumber: instruction.Line(list[i])}
		if c, ok := b.(instruction.Conditional); ok {
			h.Opcode = bytecode.DOWHILESTATEMENT
			body := s.block(list[i:k], start(list, k, end))
			log.Trace(log.StructureMonitoring, "do-while", "head", head, "statements", len(body))
			return &instruction.DoWhileStatement{Header: h, Condition: c, Body: body}, k + 1
		}
		h.Opcode = bytecode.WHILESTATEMENT
		if c, ok := list[i].(instruction.Conditional); ok && k > i && c.JumpOffset() == start(list, k+1, end) {
			c.Invert()
			body := s.block(list[i+1:k], start(list, k, end))
			return &instruction.WhileStatement{Header: h, Condition: c, Body: body}, k + 1
		}
		body := s.block(list[i:k], start(list, k, end))
		return &instruction.WhileStatement{Header: h, Body: body}, k + 1
	}
	return nil, 0
}

// whileBottomTest matches javac's loop layout:
//
//	goto cond; body: ...; cond: if (c) goto body
func (s *structurer) whileBottomTest(list []instruction.Instruction, i, end int) (instruction.Instruction, int) {
	g, ok := list[i].(*instruction.Goto)
	if !ok || g.JumpOffset() <= g.Offset {
		return nil, 0
	}
	k := index(list, g.JumpOffset(), i+1, end)
	if k < 0 || k >= len(list) {
		return nil, 0
	}
	c, ok := list[k].(instruction.Conditional)
	if !ok || c.JumpOffset() != start(list, i+1, end) {
		return nil, 0
	}
	if s.entered(start(list, i+1, end), start(list, k, end)) {
		return nil, 0
	}
	h := instruction.Header{Opcode: bytecode.WHILESTATEMENT, Offset: g.Offset, LineNumber: instruction.Line(c)}
	body := s.block(list[i+1:k], start(list, k, end))
	return &instruction.WhileStatement{Header: h, Condition: c, Body: body}, k + 1
}

// conditional matches a forward conditional branch over a block, and the
// goto at the end of that block jumping over an else block.
func (s *structurer) conditional(list []instruction.Instruction, i, end int) (instruction.Instruction, int) {
	c, ok := list[i].(instruction.Conditional)
	if !ok || c.JumpOffset() <= instruction.Offset(c) {
		return nil, 0
	}
	t := c.JumpOffset()
	j := index(list, t, i+1, end)
	if j < 0 || s.entered(start(list, i+1, end), t) {
		return nil, 0
	}
	h := instruction.Header{Offset: instruction.Offset(c), LineNumber: instruction.Line(c)}
	if j > i+1 {
		if g, ok := list[j-1].(*instruction.Goto); ok && g.JumpOffset() > t && j < len(list) {
			if k := index(list, g.JumpOffset(), j, end); k >= 0 && !s.entered(t, g.JumpOffset()) {
				c.Invert()
				h.Opcode = bytecode.IFELSESTATEMENT
				return &instruction.IfElseStatement{
					Header:    h,
					Condition: c,
					Then:      s.block(list[i+1:j-1], start(list, j-1, end)),
					Else:      s.block(list[j:k], start(list, k, end)),
				}, k
			}
		}
	}
	c.Invert()
	h.Opcode = bytecode.IFSTATEMENT
	return &instruction.IfStatement{Header: h, Condition: c, Then: s.block(list[i+1:j], t)}, j
}

// entered reports whether a branch from outside [lo, hi) lands strictly
// inside it.
func (s *structurer) entered(lo, hi int) bool {
	for _, e := range s.edges {
		if e.to > lo && e.to < hi && (e.from < lo || e.from >= hi) {
			return true
		}
	}
	return false
}

// start returns the first offset of list[k], or end past the list.
func start(list []instruction.Instruction, k, end int) int {
	if k < len(list) {
		return instruction.FirstOffset(list[k])
	}
	return end
}

// index returns the k >= from at which list starts at offset, len(list)
// when offset is end, or -1.
func index(list []instruction.Instruction, offset, from, end int) int {
	for k := from; k <= len(list); k++ {
		if start(list, k, end) == offset {
			return k
		}
	}
	return -1
}

func eachStatement(stmt instruction.Instruction, fn func(instruction.Instruction)) {
	fn(stmt)
	for _, body := range instruction.Bodies(stmt) {
		for _, s := range *body {
			eachStatement(s, fn)
		}
	}
}
