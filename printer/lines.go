package printer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/colorfulnotion/jdcore/instruction"
)

const indentUnit = "    "

// Lines formats a statement list as indented Java-like source lines.
func (p *Printer) Lines(list []instruction.Instruction) []string {
	var out []string
	p.lines(&out, list, 0)
	return out
}

// Source joins Lines with newlines.
func (p *Printer) Source(list []instruction.Instruction) string {
	return strings.Join(p.Lines(list), "\n")
}

func (p *Printer) lines(out *[]string, list []instruction.Instruction, depth int) {
	pad := strings.Repeat(indentUnit, depth)
	emit := func(s string) { *out = append(*out, pad+s) }
	for _, stmt := range list {
		switch n := stmt.(type) {
		case *instruction.IfStatement, *instruction.WhileStatement, *instruction.Synchronized:
			emit(p.Expr(stmt) + " {")
			for _, body := range instruction.Bodies(stmt) {
				p.lines(out, *body, depth+1)
			}
			emit("}")
		case *instruction.IfElseStatement:
			emit(p.Expr(stmt) + " {")
			p.lines(out, n.Then, depth+1)
			emit("} else {")
			p.lines(out, n.Else, depth+1)
			emit("}")
		case *instruction.DoWhileStatement:
			emit("do {")
			p.lines(out, n.Body, depth+1)
			emit("} while (" + p.Condition(n.Condition) + ");")
		case *instruction.TableSwitch:
			emit(p.Expr(stmt) + " {")
			for i, off := range n.Offsets {
				emit(indentUnit + fmt.Sprintf("case %s: goto L%d;", caseLabel(n.Low+i, n.EnumNames), n.Offset+off))
			}
			emit(indentUnit + fmt.Sprintf("default: goto L%d;", n.Offset+n.Default))
			emit("}")
		case *instruction.LookupSwitch:
			emit(p.Expr(stmt) + " {")
			order := make([]int, len(n.Keys))
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(a, b int) bool { return n.Keys[order[a]] < n.Keys[order[b]] })
			for _, i := range order {
				emit(indentUnit + fmt.Sprintf("case %s: goto L%d;", caseLabel(n.Keys[i], n.EnumNames), n.Offset+n.Offsets[i]))
			}
			emit(indentUnit + fmt.Sprintf("default: goto L%d;", n.Offset+n.Default))
			emit("}")
		case *instruction.Label:
			*out = append(*out, p.Expr(stmt))
		default:
			if instruction.IsConditional(stmt) {
				emit(fmt.Sprintf("if (%s) goto L%d;", p.Condition(stmt), stmt.(instruction.Branch).JumpOffset()))
				continue
			}
			emit(p.Expr(stmt) + ";")
		}
	}
}

func caseLabel(key int, names map[int]string) string {
	if name, ok := names[key]; ok {
		return name
	}
	return fmt.Sprint(key)
}
