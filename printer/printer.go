// Package printer formats instruction trees as Java-like text for dumps,
// the console and tests. It is not the source renderer.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
)

// Printer names locals from the method's debug tables. Pool and Method may
// be nil; locals are then printed as var<N>.
type Printer struct {
	Pool   *classfile.ConstantPool
	Method *classfile.Method
}

func New(pool *classfile.ConstantPool, m *classfile.Method) *Printer {
	return &Printer{Pool: pool, Method: m}
}

func (p *Printer) local(index, offset int) string {
	if p.Method != nil {
		if p.Method.Code != nil {
			if name, ok := p.Method.Code.LocalName(index, offset); ok {
				return name
			}
		}
		if index == 0 && !p.Method.IsStatic() {
			return "this"
		}
	}
	return "var" + strconv.Itoa(index)
}

// Expr formats ins as an expression or a one-line statement.
func (p *Printer) Expr(ins instruction.Instruction) string {
	if ins == nil {
		return ""
	}
	switch n := ins.(type) {
	case *instruction.IConst:
		return intConst(n.Value, n.Signature)
	case *instruction.LConst:
		return strconv.FormatInt(n.Value, 10) + "L"
	case *instruction.FConst:
		return strconv.FormatFloat(float64(n.Value), 'g', -1, 32) + "F"
	case *instruction.DConst:
		return strconv.FormatFloat(n.Value, 'g', -1, 64) + "D"
	case *instruction.AConstNull:
		return "null"
	case *instruction.Ldc:
		return p.constant(n)
	case *instruction.Load:
		return p.local(n.Index, n.Offset)
	case *instruction.Store:
		return p.assign(p.local(n.Index, n.Offset), n.Value)
	case *instruction.IInc:
		return increment(p.local(n.Index, n.Offset), n.Count, false)
	case *instruction.Ret:
		return "ret " + p.local(n.Index, n.Offset)
	case *instruction.ArrayLoad:
		return p.operand(n.Array) + "[" + p.Expr(n.Index) + "]"
	case *instruction.ArrayStore:
		return p.assign(p.operand(n.Array)+"["+p.Expr(n.Index)+"]", n.Value)
	case *instruction.NewArray:
		return "new " + TypeName(bytecode.ArrayTypeSignature(n.Type)) + "[" + p.Expr(n.Dimension) + "]"
	case *instruction.ANewArray:
		return "new " + ClassName(n.ClassName) + "[" + p.Expr(n.Dimension) + "]"
	case *instruction.MultiANewArray:
		base := strings.TrimLeft(n.ClassName, "[")
		var sb strings.Builder
		sb.WriteString("new " + TypeName(base))
		for _, d := range n.Dimensions {
			sb.WriteString("[" + p.Expr(d) + "]")
		}
		for i := len(n.Dimensions); i < len(n.ClassName)-len(base); i++ {
			sb.WriteString("[]")
		}
		return sb.String()
	case *instruction.ArrayLength:
		return p.operand(n.Array) + ".length"
	case *instruction.BinaryOp:
		return p.operand(n.Left) + " " + n.Operator + " " + p.operand(n.Right)
	case *instruction.UnaryOp:
		return n.Operator + p.operand(n.Value)
	case *instruction.Convert:
		return "(" + TypeName(n.Signature) + ")" + p.operand(n.Value)
	case *instruction.Compare:
		return "compare(" + p.Expr(n.Left) + ", " + p.Expr(n.Right) + ")"
	case *instruction.GetStatic:
		return ClassName(n.Ref.Owner) + "." + n.Ref.Name
	case *instruction.PutStatic:
		return p.assign(ClassName(n.Ref.Owner)+"."+n.Ref.Name, n.Value)
	case *instruction.GetField:
		return p.operand(n.Object) + "." + n.Ref.Name
	case *instruction.PutField:
		return p.assign(p.operand(n.Object)+"."+n.Ref.Name, n.Value)
	case *instruction.Invoke:
		return p.invoke(n)
	case *instruction.New:
		return "new " + ClassName(n.ClassName)
	case *instruction.InvokeNew:
		return "new " + ClassName(n.ClassName) + "(" + p.list(n.Args) + ")"
	case *instruction.CheckCast:
		return "(" + ClassName(n.ClassName) + ")" + p.operand(n.Object)
	case *instruction.InstanceOf:
		return p.operand(n.Object) + " instanceof " + ClassName(n.ClassName)
	case *instruction.AThrow:
		return "throw " + p.Expr(n.Value)
	case *instruction.MonitorEnter:
		return "monitorenter(" + p.Expr(n.Object) + ")"
	case *instruction.MonitorExit:
		return "monitorexit(" + p.Expr(n.Object) + ")"
	case *instruction.Return:
		return "return"
	case *instruction.XReturn:
		return "return " + p.Expr(n.Value)
	case *instruction.Pop:
		return p.Expr(n.Value)
	case *instruction.DupStore:
		return fmt.Sprintf("dup%d = %s", n.ID, p.Expr(n.Value))
	case *instruction.DupLoad:
		return fmt.Sprintf("dup%d", n.StoreID)
	case *instruction.TempStore:
		return fmt.Sprintf("tmp%d = %s", n.ID, p.Expr(n.Value))
	case *instruction.TempLoad:
		return fmt.Sprintf("tmp%d", n.ID)
	case *instruction.ExceptionLoad:
		return "exception"
	case *instruction.ReturnAddressLoad:
		return "returnAddress"
	case *instruction.TernaryOpStore:
		return fmt.Sprintf("push %s; goto L%d", p.Expr(n.Value), n.JumpOffset())
	case *instruction.Goto:
		return fmt.Sprintf("goto L%d", n.JumpOffset())
	case *instruction.Jsr:
		return fmt.Sprintf("jsr L%d", n.JumpOffset())
	case *instruction.If, *instruction.IfCmp, *instruction.IfNull, *instruction.ComplexIf:
		return p.Condition(n)
	case *instruction.TableSwitch:
		return "switch (" + p.Expr(n.Key) + ")"
	case *instruction.LookupSwitch:
		return "switch (" + p.Expr(n.Key) + ")"
	case *instruction.TernaryOp:
		return p.operand(n.Test) + " ? " + p.operand(n.Value1) + " : " + p.operand(n.Value2)
	case *instruction.InitArray:
		return "new " + TypeName(instruction.ValueSignature(n.NewArray)) + " {" + p.list(n.Values) + "}"
	case *instruction.Assignment:
		return p.Expr(n.Target) + " = " + p.Expr(n.Value)
	case *instruction.Increment:
		return increment(p.Expr(n.Target), n.Count, n.Opcode == bytecode.PREINC)
	case *instruction.ClassLiteral:
		return ClassName(n.ClassName) + ".class"
	case *instruction.Synchronized:
		return "synchronized (" + p.Expr(n.Monitor) + ")"
	case *instruction.IfStatement:
		return "if (" + p.Expr(n.Condition) + ")"
	case *instruction.IfElseStatement:
		return "if (" + p.Expr(n.Condition) + ")"
	case *instruction.WhileStatement:
		if n.Condition == nil {
			return "while (true)"
		}
		return "while (" + p.Expr(n.Condition) + ")"
	case *instruction.DoWhileStatement:
		return "do"
	case *instruction.Label:
		return fmt.Sprintf("L%d:", n.Offset)
	}
	return bytecode.Name(ins.Base().Opcode)
}

// Condition formats a conditional branch as the boolean expression it tests.
func (p *Printer) Condition(ins instruction.Instruction) string {
	switch n := ins.(type) {
	case *instruction.If:
		if instruction.ValueSignature(n.Value) == "Z" {
			switch n.Cmp {
			case instruction.CmpNE:
				return p.Expr(n.Value)
			case instruction.CmpEQ:
				return "!" + p.operand(n.Value)
			}
		}
		return p.operand(n.Value) + " " + n.Cmp.String() + " 0"
	case *instruction.IfCmp:
		return p.operand(n.Left) + " " + n.Cmp.String() + " " + p.operand(n.Right)
	case *instruction.IfNull:
		return p.operand(n.Value) + " " + n.Cmp.String() + " null"
	case *instruction.ComplexIf:
		parts := make([]string, len(n.Branches))
		for i, b := range n.Branches {
			if _, nested := b.(*instruction.ComplexIf); nested {
				parts[i] = "(" + p.Condition(b) + ")"
			} else {
				parts[i] = p.Condition(b)
			}
		}
		return strings.Join(parts, " "+n.Cmp.String()+" ")
	}
	return p.Expr(ins)
}

// operand wraps compound expressions in parentheses.
func (p *Printer) operand(ins instruction.Instruction) string {
	switch ins.(type) {
	case *instruction.BinaryOp, *instruction.TernaryOp, *instruction.Assignment, *instruction.InstanceOf,
		*instruction.If, *instruction.IfCmp, *instruction.IfNull, *instruction.ComplexIf, *instruction.CheckCast:
		return "(" + p.Expr(ins) + ")"
	}
	return p.Expr(ins)
}

func (p *Printer) assign(target string, value instruction.Instruction) string {
	if value == nil {
		return target
	}
	return target + " = " + p.Expr(value)
}

func (p *Printer) list(values []instruction.Instruction) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = p.Expr(v)
	}
	return strings.Join(parts, ", ")
}

func (p *Printer) invoke(n *instruction.Invoke) string {
	args := "(" + p.list(n.Args) + ")"
	switch {
	case n.Opcode == bytecode.INVOKEDYNAMIC:
		return n.Ref.Name + "#dynamic" + args
	case n.Ref.Name == "<init>":
		if l, ok := n.Object.(*instruction.Load); ok && l.Index == 0 {
			return "super" + args
		}
		return p.operand(n.Object) + ".<init>" + args
	case n.Object == nil:
		return ClassName(n.Ref.Owner) + "." + n.Ref.Name + args
	}
	return p.operand(n.Object) + "." + n.Ref.Name + args
}

func (p *Printer) constant(n *instruction.Ldc) string {
	switch c := n.Constant.(type) {
	case classfile.ConstantInteger:
		return strconv.FormatInt(int64(c.Value), 10)
	case classfile.ConstantLong:
		return strconv.FormatInt(c.Value, 10) + "L"
	case classfile.ConstantFloat:
		return strconv.FormatFloat(float64(c.Value), 'g', -1, 32) + "F"
	case classfile.ConstantDouble:
		return strconv.FormatFloat(c.Value, 'g', -1, 64) + "D"
	}
	if p.Pool == nil {
		return fmt.Sprintf("#%d", n.Index)
	}
	switch n.Constant.(type) {
	case classfile.ConstantString:
		if s, err := p.Pool.StringValue(n.Index); err == nil {
			return strconv.Quote(s)
		}
	case classfile.ConstantClass:
		if s, err := p.Pool.ClassName(n.Index); err == nil {
			return ClassName(s) + ".class"
		}
	}
	return p.Pool.Describe(n.Index)
}

func intConst(v int32, sig string) string {
	switch sig {
	case "Z":
		return strconv.FormatBool(v != 0)
	case "C":
		if v >= 0x20 && v < 0x7f {
			return strconv.QuoteRune(rune(v))
		}
	}
	return strconv.FormatInt(int64(v), 10)
}

func increment(target string, count int, pre bool) string {
	switch {
	case count == 1 && pre:
		return "++" + target
	case count == 1:
		return target + "++"
	case count == -1 && pre:
		return "--" + target
	case count == -1:
		return target + "--"
	case count < 0:
		return target + " -= " + strconv.Itoa(-count)
	}
	return target + " += " + strconv.Itoa(count)
}
