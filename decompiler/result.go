package decompiler

import (
	"encoding/json"

	"github.com/colorfulnotion/jdcore/layout"
	"github.com/colorfulnotion/jdcore/reconstruct"
)

// MethodResult is the outcome of one method. A failed method has Error set
// and its Blocks show the raw byte code.
type MethodResult struct {
	Name       string         `json:"name"`
	Descriptor string         `json:"descriptor"`
	Synthetic  bool           `json:"synthetic,omitempty"`
	Inlined    bool           `json:"inlined,omitempty"`
	Degraded   bool           `json:"degraded,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"errorCode,omitempty"`
	Source     []string       `json:"source,omitempty"`
	Blocks     []layout.Block `json:"blocks,omitempty"`

	body *reconstruct.Body
	err  error
}

// Body returns the reconstructed tree, nil for failed or abstract methods.
func (m *MethodResult) Body() *reconstruct.Body { return m.body }

func (m *MethodResult) Err() error { return m.err }

func (m *MethodResult) Failed() bool { return m.err != nil || m.Error != "" }

// FieldResult lists a field. Synthetic is set for fields the compiler
// added, by flag or because a pass folded away their only use.
type FieldResult struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
	Synthetic  bool   `json:"synthetic,omitempty"`
}

type ClassResult struct {
	Class   string          `json:"class"`
	Super   string          `json:"super,omitempty"`
	Fields  []*FieldResult  `json:"fields,omitempty"`
	Methods []*MethodResult `json:"methods"`
}

// Method finds a result by name and descriptor.
func (c *ClassResult) Method(name, descriptor string) *MethodResult {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// Failures counts the methods whose reconstruction failed.
func (c *ClassResult) Failures() int {
	n := 0
	for _, m := range c.Methods {
		if m.Failed() {
			n++
		}
	}
	return n
}

// Layout returns the blocks of the whole class, each method between method
// markers and the class between type markers. Inlined methods are left out.
func (c *ClassResult) Layout() []layout.Block {
	var inner []layout.Block
	for _, m := range c.Methods {
		if m.Inlined || len(m.Blocks) == 0 {
			continue
		}
		inner = append(inner, layout.Marked(layout.TagMethodMarkerStart, layout.TagMethodMarkerEnd, m.Name+m.Descriptor, m.Blocks)...)
	}
	return layout.Marked(layout.TagTypeMarkerStart, layout.TagTypeMarkerEnd, c.Class, inner)
}

func (c *ClassResult) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ParseResult decodes a result written by JSON. Trees are not restored.
func ParseResult(data []byte) (*ClassResult, error) {
	var c ClassResult
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
