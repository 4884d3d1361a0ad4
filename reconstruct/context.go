package reconstruct

import (
	"github.com/colorfulnotion/jdcore/builder"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/instruction"
	"github.com/colorfulnotion/jdcore/log"
)

// DefaultMaxRounds bounds the aggregator/ternary fixpoint.
const DefaultMaxRounds = 8

// ClassContext holds the per-class state every pass may read or extend:
// the constant pool, synthetic member marks, the accessor map and the enum
// switch-map table. It must not be shared between goroutines.
type ClassContext struct {
	Class     *classfile.ClassFile
	Pool      *classfile.ConstantPool
	Loader    classfile.Loader
	MaxRounds int

	syntheticFields  map[string]bool
	syntheticMethods map[string]bool
	accessors        map[string]map[string]*accessor
	switchMaps       map[string]map[string]map[int]string
}

// NewClassContext creates the context for one class. loader may be nil;
// lookups into other classes then fail softly.
func NewClassContext(cf *classfile.ClassFile, loader classfile.Loader) *ClassContext {
	return &ClassContext{
		Class:            cf,
		Pool:             cf.Pool,
		Loader:           loader,
		MaxRounds:        DefaultMaxRounds,
		syntheticFields:  make(map[string]bool),
		syntheticMethods: make(map[string]bool),
		accessors:        make(map[string]map[string]*accessor),
		switchMaps:       make(map[string]map[string]map[int]string),
	}
}

func (c *ClassContext) MarkSyntheticField(name string)                 { c.syntheticFields[name] = true }
func (c *ClassContext) MarkSyntheticMethod(name, descriptor string)    { c.syntheticMethods[name+descriptor] = true }
func (c *ClassContext) IsSyntheticField(name string) bool              { return c.syntheticFields[name] }
func (c *ClassContext) IsSyntheticMethod(name, descriptor string) bool { return c.syntheticMethods[name+descriptor] }

// load returns the class named internalName, this class included.
func (c *ClassContext) load(internalName string) *classfile.ClassFile {
	if internalName == c.Class.ThisClass {
		return c.Class
	}
	if c.Loader == nil {
		return nil
	}
	cf, err := c.Loader.Load(internalName)
	if err != nil {
		log.Debug(log.PipelineMonitoring, "class not available", "class", internalName, "err", err)
		return nil
	}
	return cf
}

// MethodContext is the working state of one method: its builder output and
// the dup arena.
type MethodContext struct {
	Method     *classfile.Method
	ReturnType string
	CodeLength int
	Degraded   bool

	list     []instruction.Instruction
	dups     map[int]*instruction.DupStore
	nextTemp int
}

// NewMethodContext wraps the builder result of m.
func NewMethodContext(m *classfile.Method, res *builder.Result) *MethodContext {
	mc := &MethodContext{
		Method:   m,
		list:     res.List,
		Degraded: res.Degraded,
		dups:     make(map[int]*instruction.DupStore),
	}
	if mt, err := classfile.ParseMethodDescriptor(m.Descriptor); err == nil {
		mc.ReturnType = mt.Return
	}
	if m.Code != nil {
		mc.CodeLength = len(m.Code.Bytecode)
	}
	mc.index()
	return mc
}

// index rebuilds the dup arena from the current list.
func (m *MethodContext) index() {
	for id := range m.dups {
		delete(m.dups, id)
	}
	instruction.WalkList(m.list, func(ins instruction.Instruction) bool {
		if ds, ok := ins.(*instruction.DupStore); ok {
			m.dups[ds.ID] = ds
		}
		return true
	})
}

// DupStore resolves a DupLoad identifier through the arena.
func (m *MethodContext) DupStore(id int) (*instruction.DupStore, bool) {
	ds, ok := m.dups[id]
	return ds, ok
}

func (m *MethodContext) retire(id int) {
	delete(m.dups, id)
}
