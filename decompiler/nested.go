package decompiler

import (
	"context"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/layout"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/reconstruct"
)

const lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

// nestedLayouter splices lambda bodies of the class being decompiled and
// anonymous classes available from the loader into the enclosing method.
type nestedLayouter struct {
	d        *Decompiler
	ctx      context.Context
	cc       *reconstruct.ClassContext
	class    *ClassResult
	producer *layout.Producer
	depth    int
	active   map[string]bool
}

func (n *nestedLayouter) Nested(ins instruction.Instruction, minLine int) ([]layout.Block, bool) {
	switch v := ins.(type) {
	case *instruction.Invoke:
		if v.Opcode == bytecode.INVOKEDYNAMIC {
			return n.lambda(v)
		}
	case *instruction.InvokeNew:
		if classfile.IsAnonymousName(v.ClassName) {
			return n.anonymous(v.ClassName)
		}
	}
	return nil, false
}

// lambdaTarget resolves the implementation method of a LambdaMetafactory
// call site.
func lambdaTarget(cf *classfile.ClassFile, inv *instruction.Invoke) (classfile.MemberRef, bool) {
	if inv.Bootstrap < 0 || inv.Bootstrap >= len(cf.BootstrapMethods) {
		return classfile.MemberRef{}, false
	}
	bm := cf.BootstrapMethods[inv.Bootstrap]
	_, factory, err := cf.Pool.MethodHandle(bm.MethodRef)
	if err != nil || factory.Owner != lambdaMetafactory || len(bm.Arguments) < 2 {
		return classfile.MemberRef{}, false
	}
	_, impl, err := cf.Pool.MethodHandle(bm.Arguments[1])
	if err != nil || impl.Owner != cf.ThisClass || !isLambdaName(impl.Name) {
		return classfile.MemberRef{}, false
	}
	return impl, true
}

func (n *nestedLayouter) lambda(inv *instruction.Invoke) ([]layout.Block, bool) {
	impl, ok := lambdaTarget(n.cc.Class, inv)
	if !ok {
		return nil, false
	}
	mr := n.class.Method(impl.Name, impl.Descriptor)
	if mr == nil || mr.Inlined || mr.Body() == nil {
		return nil, false
	}
	key := impl.Name + impl.Descriptor
	if n.active[key] {
		return nil, false
	}
	if n.active == nil {
		n.active = make(map[string]bool)
	}
	n.active[key] = true
	defer delete(n.active, key)

	mr.Inlined = true
	log.Trace(log.LayoutMonitoring, "lambda inlined", "class", n.cc.Class.ThisClass, "method", key)
	return n.producer.Method(mr.Body(), n.cc.Pool), true
}

func (n *nestedLayouter) anonymous(name string) ([]layout.Block, bool) {
	if n.d.Loader == nil || n.depth >= maxNesting || name == n.cc.Class.ThisClass {
		return nil, false
	}
	cf, err := n.d.Loader.Load(name)
	if err != nil {
		log.Debug(log.ClassMonitoring, "anonymous class not available", "class", name, "err", err)
		return nil, false
	}
	res, err := n.d.decompile(n.ctx, cf, n.depth+1)
	if err != nil {
		log.Warn(log.ClassMonitoring, "anonymous class failed", "class", name, "err", err)
		return nil, false
	}
	return res.Layout(), true
}
