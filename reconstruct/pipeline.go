package reconstruct

import (
	"github.com/colorfulnotion/jdcore/builder"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/structure"
)

// Pass rewrites a statement list and reports whether it changed anything.
// A pass leaves the list alone when its pattern is absent and running it a
// second time is a no-op.
type Pass func(ctx *ClassContext, m *MethodContext, list []instruction.Instruction) ([]instruction.Instruction, bool)

type namedPass struct {
	name string
	run  Pass
}

// passes run once each, in order, after the branch fixpoint.
var passes = []namedPass{
	{"array-init", arrayInitPass},
	{"class-literal", classLiteralPass},
	{"new-instance", newInstancePass},
	{"synchronized", synchronizedPass},
	{"assignment", assignmentPass},
	{"increment", incrementPass},
	{"accessor", accessorPass},
	{"switch-map", switchMapPass},
	{"dup-elimination", dupEliminationPass},
	{"dup-fallback", dupFallbackPass},
}

// Body is the finished statement tree of one method.
type Body struct {
	method     *classfile.Method
	statements []instruction.Instruction
	degraded   bool
}

func (b *Body) Method() *classfile.Method             { return b.method }
func (b *Body) Statements() []instruction.Instruction { return b.statements }

// Degraded reports whether the builder left values on the operand stack.
func (b *Body) Degraded() bool { return b.degraded }

// Run applies the reconstructor passes to the builder output held by m and
// structures the result.
func Run(ctx *ClassContext, m *MethodContext) (*Body, error) {
	list := m.list
	if err := checkDupLoads(m, list); err != nil {
		return nil, err
	}

	rounds := ctx.MaxRounds
	if rounds <= 0 {
		rounds = DefaultMaxRounds
	}
	list, _, settled := foldBranches(ctx, m, list, rounds)
	if !settled {
		log.Warn(log.PipelineMonitoring, "branch folding did not settle", "method", m.Method.Name+m.Method.Descriptor, "rounds", rounds, "err", jderrors.GetErrorCodeWithName(jderrors.ErrPNoFixpoint))
	}

	for _, p := range passes {
		var changed bool
		if list, changed = p.run(ctx, m, list); changed {
			log.Trace(log.PipelineMonitoring, "pass applied", "pass", p.name, "method", m.Method.Name, "statements", len(list))
		}
	}
	if err := finalize(list); err != nil {
		return nil, err
	}
	m.list = list

	return &Body{
		method:     m.Method,
		statements: structure.Statements(list, m.CodeLength),
		degraded:   m.Degraded,
	}, nil
}

// Method builds and reconstructs one method of ctx.Class. Errors carry the
// class and method identity.
func Method(ctx *ClassContext, method *classfile.Method) (*Body, error) {
	res, err := builder.Build(ctx.Pool, method)
	if err != nil {
		return nil, jderrors.WithMethod(err, ctx.Class.ThisClass, method.Name, method.Descriptor)
	}
	body, err := Run(ctx, NewMethodContext(method, res))
	if err != nil {
		return nil, jderrors.WithMethod(err, ctx.Class.ThisClass, method.Name, method.Descriptor)
	}
	return body, nil
}
