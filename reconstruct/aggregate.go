package reconstruct

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

// condPlan is the boolean shape of a branch run before any node is touched.
// A leaf is a run member; an inner node combines left and right with cmp.
// not negates the whole subtree.
type condPlan struct {
	member      instruction.Conditional
	cmp         instruction.Cmp
	left, right *condPlan
	not         bool
}

// aggregatePass folds the branch shapes of a method until none applies:
// ternary values, ternaries used as branch conditions and runs of
// conditional branches. Each fold can expose another, so they repeat
// within the pass and a second call finds nothing to do.
func aggregatePass(ctx *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	rounds := DefaultMaxRounds
	if ctx != nil && ctx.MaxRounds > 0 {
		rounds = ctx.MaxRounds
	}
	list, changed, _ := foldBranches(ctx, m, list, rounds)
	return list, changed
}

// foldBranches repeats the branch folds at most rounds times and reports
// whether the list changed and whether it settled.
func foldBranches(ctx *ClassContext, m *MethodContext, list []instruction.Instruction, rounds int) ([]instruction.Instruction, bool, bool) {
	changed := false
	for round := 0; round < rounds; round++ {
		var ternary, cond, runs bool
		list, ternary = ternaryPass(ctx, m, list)
		list, cond = ternaryConditionPass(m, list)
		list, runs = aggregateRuns(m, list)
		if !ternary && !cond && !runs {
			return list, changed, true
		}
		changed = true
	}
	return list, changed, false
}

// aggregateRuns merges runs of conditional branches into ComplexIf trees.
//
// The list is scanned right to left. For each conditional branch the run
// is extended leftward over contiguous conditional branches whose targets
// are compatible with the run. Starting from the longest candidate, the
// first sub-run that can be expressed as one boolean condition jumping to
// the terminal target replaces the members with one ComplexIf.
//
// Pre: list is offset ordered. Post: still offset ordered; each ComplexIf
// takes the offset of its last member.
func aggregateRuns(m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for k := len(list) - 1; k >= 1; k-- {
		last, ok := list[k].(instruction.Conditional)
		if !ok {
			continue
		}
		i := runStart(list, k, m.CodeLength)
		if i == k {
			continue
		}
		terminal := last.JumpOffset()
		fall := fallThrough(list, k, m.CodeLength)
		sources := jumpSources(list)
		for s := i; s < k; s++ {
			if enteredFromOutside(list, sources, s, k) {
				continue
			}
			members := make([]instruction.Conditional, 0, k-s+1)
			for _, ins := range list[s : k+1] {
				members = append(members, ins.(instruction.Conditional))
			}
			p := buildPlan(members, terminal, fall)
			if p == nil {
				continue
			}
			node := p.materialize(false).(*instruction.ComplexIf)
			node.SetJumpOffset(terminal)
			log.Trace(log.PipelineMonitoring, "aggregated branch run", "from", instruction.Offset(list[s]), "to", instruction.Offset(list[k]), "cmp", node.Cmp.String())
			list = splice(list, s, k+1, node)
			changed = true
			k = s
			break
		}
	}
	return list, changed
}

// ternaryConditionPass folds a run whose middle member is a goto, the
// shape javac emits for a ternary used as a branch condition:
//
//	c0 goto X; c1 goto F; goto T; X: c2 goto F; T:
//
// becomes one branch to F taken when (!c0 ? c1 : c2) holds. The goto is
// compatible with the run because it jumps to the fall-through of c2.
func ternaryConditionPass(m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool) {
	changed := false
	for i := len(list) - 4; i >= 0; i-- {
		c0, ok0 := list[i].(instruction.Conditional)
		c1, ok1 := list[i+1].(instruction.Conditional)
		g, ok2 := list[i+2].(*instruction.Goto)
		c2, ok3 := list[i+3].(instruction.Conditional)
		if !ok0 || !ok1 || !ok2 || !ok3 {
			continue
		}
		f, t := c1.JumpOffset(), g.JumpOffset()
		if c2.JumpOffset() != f || f == t || t != fallThrough(list, i+3, m.CodeLength) {
			continue
		}
		if c0.JumpOffset() != instruction.FirstOffset(c2) {
			continue
		}
		if enteredFromOutside(list, jumpSources(list), i, i+3) {
			continue
		}

		c0.Invert()
		line := instruction.Line(c0)
		test := &instruction.TernaryOp{
			Header: instruction.Header{Opcode: bytecode.TERNARYOP, Offset: g.Offset, LineNumber: line},
			Test:   c0, Value1: c1, Value2: c2,
		}
		node := &instruction.If{
			Header: instruction.Header{Opcode: bytecode.IF, Offset: instruction.Offset(c2), LineNumber: line},
			Cmp:    instruction.CmpNE,
			Value:  test,
		}
		node.SetJumpOffset(f)
		log.Trace(log.PipelineMonitoring, "folded ternary condition", "from", instruction.Offset(c0), "to", instruction.Offset(c2))
		list = splice(list, i, i+4, node)
		changed = true
	}
	return list, changed
}

// runStart returns the index of the leftmost member of the run ending at k.
func runStart(list []instruction.Instruction, k, codeLength int) int {
	last := list[k].(instruction.Conditional)
	targets := make(map[int]bool)
	targets[last.JumpOffset()] = true
	targets[fallThrough(list, k, codeLength)] = true
	i := k
	for i > 0 {
		prev, ok := list[i-1].(instruction.Conditional)
		if !ok {
			break
		}
		pl, cl := instruction.Line(prev), instruction.Line(list[i])
		if pl != instruction.UnknownLineNumber && cl != instruction.UnknownLineNumber && pl > cl {
			break
		}
		if !targets[prev.JumpOffset()] {
			break
		}
		// earlier members may jump to the start of list[i]
		targets[instruction.FirstOffset(list[i])] = true
		i--
	}
	return i
}

func fallThrough(list []instruction.Instruction, k, codeLength int) int {
	if k+1 < len(list) {
		return instruction.FirstOffset(list[k+1])
	}
	return codeLength
}

// enteredFromOutside reports whether any member of list[s:k+1] other than
// the first is the target of a jump from outside the run.
func enteredFromOutside(list []instruction.Instruction, sources map[int][]int, s, k int) bool {
	for j := s + 1; j <= k; j++ {
		if jumpedFromOutside(sources, instruction.FirstOffset(list[j]), s, k+1) {
			return true
		}
	}
	return false
}

// buildPlan returns the condition under which members, executed in order,
// reach target; otherwise control reaches fall. nil means the members do
// not form one condition.
func buildPlan(members []instruction.Conditional, target, fall int) *condPlan {
	m0 := members[0]
	if len(members) == 1 {
		if m0.JumpOffset() != target {
			return nil
		}
		return &condPlan{member: m0}
	}
	jump := m0.JumpOffset()
	var group *condPlan
	j := 1
	switch jump {
	case target:
		group = &condPlan{member: m0}
	case fall:
		group = &condPlan{member: m0, not: true}
	default:
		for j = 2; j < len(members); j++ {
			if instruction.FirstOffset(members[j]) == jump {
				break
			}
		}
		if j == len(members) {
			return nil
		}
		x := members[j-1].JumpOffset()
		if x != target && x != fall {
			return nil
		}
		group = buildPlan(members[:j], x, jump)
		if group == nil {
			return nil
		}
		if x == fall {
			group.not = !group.not
		}
		jump = x
	}
	rest := buildPlan(members[j:], target, fall)
	if rest == nil {
		return nil
	}
	if jump == target {
		return &condPlan{cmp: instruction.CmpOR, left: group, right: rest}
	}
	return &condPlan{cmp: instruction.CmpAND, left: group, right: rest}
}

// materialize turns the plan into nodes, inverting leaves as needed.
func (p *condPlan) materialize(negate bool) instruction.Instruction {
	neg := p.not != negate
	if p.member != nil {
		if neg {
			p.member.Invert()
		}
		return p.member
	}
	cmp := p.cmp
	if neg {
		cmp = cmp.Inverse()
	}
	node := &instruction.ComplexIf{Cmp: cmp}
	for _, child := range []instruction.Instruction{p.left.materialize(neg), p.right.materialize(neg)} {
		if c, ok := child.(*instruction.ComplexIf); ok && c.Cmp == cmp {
			node.Branches = append(node.Branches, c.Branches...)
			continue
		}
		node.Branches = append(node.Branches, child)
	}
	node.Header = instruction.Header{
		Opcode:     bytecode.COMPLEXIF,
		Offset:     instruction.Offset(node.Branches[len(node.Branches)-1]),
		LineNumber: instruction.Line(node.Branches[0]),
	}
	return node
}
