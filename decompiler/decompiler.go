// Package decompiler drives the builder, the reconstructor pipeline and the
// layout producer over whole classes. A failing method is reported in its
// result and never stops its siblings.
package decompiler

import (
	"context"
	"strings"
	"sync"

	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/config"
	"github.com/colorfulnotion/jdcore/jderrors"
	"github.com/colorfulnotion/jdcore/layout"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/printer"
	"github.com/colorfulnotion/jdcore/reconstruct"
)

// maxNesting bounds anonymous classes laid out inside each other.
const maxNesting = 8

type Decompiler struct {
	Options *config.Options
	Loader  classfile.Loader
}

// New returns a decompiler. opts defaults to the "default" preset and
// loader may be nil, in which case anonymous classes are not inlined.
func New(opts *config.Options, loader classfile.Loader) *Decompiler {
	if opts == nil {
		opts = config.Default()
	}
	return &Decompiler{Options: opts, Loader: loader}
}

// DecompileBytes parses a class file and decompiles it. Malformed class
// files are returned as errors.
func (d *Decompiler) DecompileBytes(ctx context.Context, data []byte) (*ClassResult, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, err
	}
	return d.DecompileClass(ctx, cf)
}

// DecompileClass reconstructs and lays out every method of cf.
func (d *Decompiler) DecompileClass(ctx context.Context, cf *classfile.ClassFile) (*ClassResult, error) {
	return d.decompile(ctx, cf, 0)
}

func (d *Decompiler) decompile(ctx context.Context, cf *classfile.ClassFile, depth int) (*ClassResult, error) {
	cc := reconstruct.NewClassContext(cf, d.Loader)
	cc.MaxRounds = d.Options.MaxRounds

	res := &ClassResult{Class: cf.ThisClass, Super: cf.SuperClass}
	for _, m := range cf.Methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Methods = append(res.Methods, d.reconstruct(cc, m))
	}

	nested := &nestedLayouter{d: d, ctx: ctx, cc: cc, class: res, depth: depth}
	producer := layout.NewProducer(nested)
	nested.producer = producer

	// lambda bodies are inlined where they are created, so their own
	// methods are laid out last and only when nothing inlined them
	for _, lambdas := range []bool{false, true} {
		for i, m := range cf.Methods {
			if isLambdaName(m.Name) != lambdas || res.Methods[i].Inlined {
				continue
			}
			d.layoutMethod(producer, cc, res.Methods[i], m)
		}
	}

	// passes mark the fields they fold away, so fields are listed last
	for _, f := range cf.Fields {
		fr := &FieldResult{Name: f.Name, Descriptor: f.Descriptor, Synthetic: f.IsSynthetic() || cc.IsSyntheticField(f.Name)}
		if fr.Synthetic && !d.Options.ShowSynthetic {
			log.Trace(log.ClassMonitoring, "synthetic field hidden", "class", cf.ThisClass, "field", f.Name)
			continue
		}
		res.Fields = append(res.Fields, fr)
	}

	if !d.Options.ShowSynthetic {
		kept := res.Methods[:0]
		for i, mr := range res.Methods {
			m := cf.Methods[i]
			if m.IsSynthetic() || cc.IsSyntheticMethod(m.Name, m.Descriptor) {
				log.Trace(log.ClassMonitoring, "synthetic method hidden", "class", cf.ThisClass, "method", m.Name+m.Descriptor)
				continue
			}
			kept = append(kept, mr)
		}
		res.Methods = kept
	}

	log.Debug(log.ClassMonitoring, "class decompiled", "class", cf.ThisClass, "methods", len(res.Methods), "failures", res.Failures())
	return res, nil
}

func (d *Decompiler) reconstruct(cc *reconstruct.ClassContext, m *classfile.Method) *MethodResult {
	mr := &MethodResult{Name: m.Name, Descriptor: m.Descriptor, Synthetic: m.IsSynthetic()}
	if m.Code == nil {
		return mr
	}
	body, err := reconstruct.Method(cc, m)
	if err != nil {
		mr.err = err
		mr.Error = err.Error()
		mr.ErrorCode = jderrors.GetErrorCodeWithName(err)
		log.Warn(log.ClassMonitoring, "method failed", "class", cc.Class.ThisClass, "method", m.Name+m.Descriptor, "err", err)
		return mr
	}
	mr.body = body
	mr.Degraded = body.Degraded()
	return mr
}

func (d *Decompiler) layoutMethod(producer *layout.Producer, cc *reconstruct.ClassContext, mr *MethodResult, m *classfile.Method) {
	if m.Code == nil {
		return
	}
	if mr.err != nil {
		mr.Blocks = layout.Failed(m, cc.Pool, mr.err)
		return
	}
	mr.Source = printer.New(cc.Pool, m).Lines(mr.body.Statements())
	mr.Blocks = producer.Method(mr.body, cc.Pool)
	if err := layout.Check(mr.Blocks); err != nil {
		log.Warn(log.LayoutMonitoring, "layout check failed", "class", cc.Class.ThisClass, "method", m.Name+m.Descriptor,
			"code", jderrors.GetErrorCodeWithName(err), "err", err)
	}
}

// DecompileClasses decompiles classes concurrently, at most
// Options.Workers at a time. Results keep the input order; a class that
// failed as a whole has a nil result and its error at the same index.
// Anonymous classes whose outer class is in the batch are inlined there
// and get a nil result with a nil error.
func (d *Decompiler) DecompileClasses(ctx context.Context, classes []*classfile.ClassFile) ([]*ClassResult, []error) {
	results := make([]*ClassResult, len(classes))
	errs := make([]error, len(classes))

	names := make(map[string]bool, len(classes))
	for _, cf := range classes {
		names[cf.ThisClass] = true
	}

	workers := d.Options.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, cf := range classes {
		if d.Loader != nil && classfile.IsAnonymousName(cf.ThisClass) && names[outerName(cf.ThisClass)] {
			continue
		}
		wg.Add(1)
		go func(i int, cf *classfile.ClassFile) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()
			results[i], errs[i] = d.DecompileClass(ctx, cf)
		}(i, cf)
	}
	wg.Wait()
	return results, errs
}

func outerName(name string) string {
	if i := strings.LastIndexByte(name, '$'); i > 0 {
		return name[:i]
	}
	return name
}

func isLambdaName(name string) bool {
	return strings.HasPrefix(name, "lambda$")
}
