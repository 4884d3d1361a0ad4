package layout

import (
	"strings"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/printer"
	"github.com/colorfulnotion/jdcore/reconstruct"
)

// NestedBodyLayouter lays out bodies declared inside an expression, such as
// lambdas and anonymous classes. Nested returns false when ins does not
// introduce one. minLine is the highest line emitted so far.
type NestedBodyLayouter interface {
	Nested(ins instruction.Instruction, minLine int) ([]Block, bool)
}

// Producer emits the layout blocks of reconstructed methods.
type Producer struct {
	Nested NestedBodyLayouter
}

func NewProducer(nested NestedBodyLayouter) *Producer {
	return &Producer{Nested: nested}
}

type visitor struct {
	nested  NestedBodyLayouter
	printer *printer.Printer
	method  string
	maxLine int
	blocks  []Block
}

// Method lays out body. Line numbers never decrease along the result: a
// block whose debug line is below the running maximum is raised to it.
func (p *Producer) Method(body *reconstruct.Body, pool *classfile.ConstantPool) []Block {
	m := body.Method()
	v := &visitor{
		nested:  p.Nested,
		printer: printer.New(pool, m),
		method:  m.Name + m.Descriptor,
		maxLine: instruction.UnknownLineNumber,
	}
	v.emit(spacer(TagMethodBodyStart, 0, "{"))
	v.statements(body.Statements())
	v.emit(spacer(TagMethodBodyEnd, 0, "}"))
	log.Trace(log.LayoutMonitoring, "method laid out", "method", v.method, "blocks", len(v.blocks))
	return v.blocks
}

// Failed lays out a method whose reconstruction failed as its raw byte
// code followed by the error.
func Failed(m *classfile.Method, pool *classfile.ConstantPool, err error) []Block {
	var resolve bytecode.ConstantResolver
	if pool != nil {
		resolve = pool.Describe
	}
	var code []byte
	if m.Code != nil {
		code = m.Code.Bytecode
	}
	text := strings.TrimRight(bytecode.Disassemble(code, resolve), "\n")
	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n") + 1
	}
	bc := fixed(TagByteCode, lines, text)
	if len(code) > 0 {
		bc.FirstOffset, bc.LastOffset = 0, len(code)-1
	}
	return []Block{
		spacer(TagMethodBodyStart, 0, "{"),
		bc,
		fixed(TagCommentError, 1, "// "+err.Error()),
		spacer(TagMethodBodyEnd, 0, "}"),
	}
}

func (v *visitor) emit(b Block) {
	exact := known(b.FirstLineNumber) && known(b.LastLineNumber) && b.MinimalLineCount == b.MaximalLineCount
	if known(v.maxLine) {
		if known(b.FirstLineNumber) && b.FirstLineNumber < v.maxLine {
			log.Trace(log.LayoutMonitoring, "line regression raised", "method", v.method, "tag", b.Tag, "line", b.FirstLineNumber, "to", v.maxLine)
			b.FirstLineNumber = v.maxLine
		}
		if known(b.LastLineNumber) && b.LastLineNumber < v.maxLine {
			b.LastLineNumber = v.maxLine
		}
	}
	if known(b.FirstLineNumber) && known(b.LastLineNumber) && b.LastLineNumber < b.FirstLineNumber {
		b.LastLineNumber = b.FirstLineNumber
	}
	if exact {
		n := b.LastLineNumber - b.FirstLineNumber
		b.MinimalLineCount, b.PreferedLineCount, b.MaximalLineCount = n, n, n
	}
	for _, l := range []int{b.FirstLineNumber, b.LastLineNumber} {
		if known(l) && l > v.maxLine {
			v.maxLine = l
		}
	}
	v.blocks = append(v.blocks, b)
}

func (v *visitor) statements(list []instruction.Instruction) {
	for i, stmt := range list {
		if i > 0 {
			v.emit(spacer(TagSeparator, 1, ""))
		}
		v.statement(stmt)
	}
}

func (v *visitor) body(list []instruction.Instruction) {
	v.emit(spacer(TagStatementsBlockStart, 0, "{"))
	v.statements(list)
	v.emit(spacer(TagStatementsBlockEnd, 0, "}"))
}

func (v *visitor) statement(stmt instruction.Instruction) {
	switch n := stmt.(type) {
	case *instruction.IfStatement:
		v.fragment(TagFragmentIf, n.Condition, v.printer.Expr(n))
		v.body(n.Then)
	case *instruction.IfElseStatement:
		v.fragment(TagFragmentIf, n.Condition, v.printer.Expr(n))
		v.body(n.Then)
		v.emit(spacer(TagFragmentElse, 0, "else"))
		v.body(n.Else)
	case *instruction.WhileStatement:
		v.fragment(TagFragmentWhile, n.Condition, v.printer.Expr(n))
		v.body(n.Body)
	case *instruction.DoWhileStatement:
		v.emit(spacer(TagFragmentDo, 0, "do"))
		v.body(n.Body)
		v.fragment(TagFragmentDoWhile, n.Condition, "while ("+v.printer.Condition(n.Condition)+");")
	case *instruction.Synchronized:
		v.fragment(TagFragmentSynchronized, n.Monitor, v.printer.Expr(n))
		v.body(n.Body)
	case *instruction.Label:
		b := spacer(TagLabel, 0, v.printer.Expr(n))
		b.FirstOffset, b.LastOffset = n.Offset, n.Offset
		v.emit(b)
	case *instruction.TableSwitch, *instruction.LookupSwitch:
		v.instruction(stmt, v.printer.Source([]instruction.Instruction{stmt}))
	default:
		v.instruction(stmt, v.printer.Lines([]instruction.Instruction{stmt})[0])
	}
}

// fragment emits the header of a compound statement covering the lines of
// expr. A nil expr (while (true)) has no lines of its own.
func (v *visitor) fragment(tag Tag, expr instruction.Instruction, text string) {
	if expr == nil {
		v.emit(spacer(tag, 0, text))
		return
	}
	first, last := lineRange(expr)
	b := spanned(tag, first, last, text)
	b.FirstOffset, b.LastOffset = offsetRange(expr)
	b.Statement = expr
	v.emit(b)
}

// instruction emits a simple statement. Nested bodies inside it split the
// statement into fragments around the spliced blocks.
func (v *visitor) instruction(stmt instruction.Instruction, text string) {
	first, last := lineRange(stmt)
	firstOff, lastOff := offsetRange(stmt)

	type split struct {
		at     instruction.Instruction
		blocks []Block
	}
	var splits []split
	if v.nested != nil {
		instruction.Walk(stmt, func(n instruction.Instruction) bool {
			if blocks, ok := v.nested.Nested(n, v.maxLine); ok {
				splits = append(splits, split{at: n, blocks: blocks})
				return false
			}
			return true
		})
	}

	if len(splits) == 0 {
		b := spanned(TagInstruction, first, last, text)
		b.FirstOffset, b.LastOffset = firstOff, lastOff
		b.Statement = stmt
		v.emit(b)
		return
	}

	start := first
	for i, s := range splits {
		at := instruction.Line(s.at)
		if !known(at) {
			at = start
		}
		frag := spanned(TagFragment, start, at, "")
		if i == 0 {
			frag.Text = text
			frag.Statement = stmt
		}
		frag.FirstOffset, frag.LastOffset = firstOff, instruction.Offset(s.at)
		v.emit(frag)
		v.emit(spacer(TagNestedBodyStart, 0, ""))
		for _, b := range s.blocks {
			v.emit(b)
		}
		v.emit(spacer(TagNestedBodyEnd, 0, ""))
		start = v.maxLine
		firstOff = instruction.Offset(s.at)
	}
	end := last
	if known(end) && known(start) && end < start {
		end = start
	}
	frag := spanned(TagFragment, start, end, "")
	frag.FirstOffset, frag.LastOffset = firstOff, lastOff
	v.emit(frag)
}

// lineRange returns the known line range of ins and its operands, leaving
// out the bodies of compound statements.
func lineRange(ins instruction.Instruction) (first, last int) {
	first, last = instruction.UnknownLineNumber, instruction.UnknownLineNumber
	var visit func(instruction.Instruction)
	visit = func(n instruction.Instruction) {
		if l := n.Base().LineNumber; known(l) {
			if !known(first) || l < first {
				first = l
			}
			if l > last {
				last = l
			}
		}
		for _, p := range instruction.Operands(n) {
			visit(*p)
		}
	}
	visit(ins)
	return first, last
}

func offsetRange(ins instruction.Instruction) (first, last int) {
	first, last = instruction.FirstOffset(ins), ins.Base().Offset
	var visit func(instruction.Instruction)
	visit = func(n instruction.Instruction) {
		if o := n.Base().Offset; o > last {
			last = o
		}
		for _, p := range instruction.Operands(n) {
			visit(*p)
		}
	}
	visit(ins)
	return first, last
}
