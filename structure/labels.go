package structure

import (
	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

// addLabels places a Label before the statement each remaining branch or
// switch lands on. A target at end gets a trailing Label.
func addLabels(list []instruction.Instruction, end int) []instruction.Instruction {
	targets := make(map[int]bool)
	for _, stmt := range list {
		eachStatement(stmt, func(s instruction.Instruction) {
			for _, t := range instruction.JumpTargets(s) {
				targets[t] = true
			}
		})
	}
	if len(targets) == 0 {
		return list
	}
	out := insertLabels(list, targets)
	if targets[end] {
		out = append(out, label(end))
		delete(targets, end)
	}
	for t := range targets {
		log.Debug(log.StructureMonitoring, "branch target not at a statement", "offset", t)
	}
	return out
}

// insertLabels consumes the targets it places.
func insertLabels(list []instruction.Instruction, targets map[int]bool) []instruction.Instruction {
	out := make([]instruction.Instruction, 0, len(list))
	for _, stmt := range list {
		if first := instruction.FirstOffset(stmt); targets[first] {
			out = append(out, label(first))
			delete(targets, first)
		}
		for _, body := range instruction.Bodies(stmt) {
			*body = insertLabels(*body, targets)
		}
		out = append(out, stmt)
	}
	return out
}

func label(offset int) *instruction.Label {
	return &instruction.Label{Header: instruction.Header{Opcode: bytecode.LABEL, Offset: offset, LineNumber: instruction.UnknownLineNumber}}
}
