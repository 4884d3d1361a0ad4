package printer

import (
	"fmt"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/xlab/treeprint"
)

// Tree dumps a statement list with opcodes, offsets and lines, operands
// before nested bodies.
func Tree(name string, list []instruction.Instruction) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(name)
	for _, stmt := range list {
		addNode(tree, stmt)
	}
	return tree
}

func addNode(parent treeprint.Tree, ins instruction.Instruction) {
	h := ins.Base()
	ops := instruction.Operands(ins)
	bodies := instruction.Bodies(ins)
	value := nodeValue(h)
	if len(ops) == 0 && len(bodies) == 0 {
		parent.AddNode(value)
		return
	}
	branch := parent.AddBranch(value)
	for _, op := range ops {
		addNode(branch, *op)
	}
	for i, body := range bodies {
		b := branch.AddBranch(fmt.Sprintf("body %d", i))
		for _, stmt := range *body {
			addNode(b, stmt)
		}
	}
}

func nodeValue(h *instruction.Header) string {
	if h.LineNumber == instruction.UnknownLineNumber {
		return fmt.Sprintf("%s @%d", bytecode.Name(h.Opcode), h.Offset)
	}
	return fmt.Sprintf("%s @%d line %d", bytecode.Name(h.Opcode), h.Offset, h.LineNumber)
}
