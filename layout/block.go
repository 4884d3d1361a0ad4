// Package layout turns finished method trees into layout blocks: the units
// a renderer lays out, each declaring how many lines it may take so that
// the output keeps the line numbers of the original source.
package layout

import (
	"fmt"
	"math"

	"github.com/colorfulnotion/jdcore/instruction"
)

// UnlimitedLineCount is the MaximalLineCount of blocks that may stretch.
const UnlimitedLineCount = math.MaxInt32

type Tag int

const (
	TagTypeMarkerStart Tag = iota
	TagTypeMarkerEnd
	TagMethodMarkerStart
	TagMethodMarkerEnd
	TagMethodBodyStart
	TagMethodBodyEnd
	TagInstruction
	TagFragment
	TagSeparator
	TagStatementsBlockStart
	TagStatementsBlockEnd
	TagFragmentIf
	TagFragmentElse
	TagFragmentWhile
	TagFragmentDo
	TagFragmentDoWhile
	TagFragmentSynchronized
	TagLabel
	TagNestedBodyStart
	TagNestedBodyEnd
	TagByteCode
	TagCommentError
)

var tagNames = [...]string{
	TagTypeMarkerStart:      "type-marker-start",
	TagTypeMarkerEnd:        "type-marker-end",
	TagMethodMarkerStart:    "method-marker-start",
	TagMethodMarkerEnd:      "method-marker-end",
	TagMethodBodyStart:      "method-body-start",
	TagMethodBodyEnd:        "method-body-end",
	TagInstruction:          "instruction",
	TagFragment:             "fragment",
	TagSeparator:            "separator",
	TagStatementsBlockStart: "statements-block-start",
	TagStatementsBlockEnd:   "statements-block-end",
	TagFragmentIf:           "fragment-if",
	TagFragmentElse:         "fragment-else",
	TagFragmentWhile:        "fragment-while",
	TagFragmentDo:           "fragment-do",
	TagFragmentDoWhile:      "fragment-do-while",
	TagFragmentSynchronized: "fragment-synchronized",
	TagLabel:                "label",
	TagNestedBodyStart:      "nested-body-start",
	TagNestedBodyEnd:        "nested-body-end",
	TagByteCode:             "byte-code",
	TagCommentError:         "comment-error",
}

func (t Tag) String() string {
	if t >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

func (t Tag) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tag) UnmarshalText(b []byte) error {
	for i, name := range tagNames {
		if name == string(b) {
			*t = Tag(i)
			return nil
		}
	}
	return fmt.Errorf("unknown layout tag %q", b)
}

// Block is one layout unit. Line numbers are instruction.UnknownLineNumber
// when the class carries no line table for the covered code.
type Block struct {
	Tag               Tag    `json:"tag"`
	FirstLineNumber   int    `json:"firstLineNumber"`
	LastLineNumber    int    `json:"lastLineNumber"`
	MinimalLineCount  int    `json:"minimalLineCount"`
	MaximalLineCount  int    `json:"maximalLineCount"`
	PreferedLineCount int    `json:"preferedLineCount"`
	FirstOffset       int    `json:"firstOffset"`
	LastOffset        int    `json:"lastOffset"`
	Text              string `json:"text,omitempty"`

	Statement instruction.Instruction `json:"-"`
}

func (b Block) String() string {
	return fmt.Sprintf("%s [%d..%d] lines %d/%d/%d", b.Tag, b.FirstLineNumber, b.LastLineNumber,
		b.MinimalLineCount, b.PreferedLineCount, b.MaximalLineCount)
}

func known(line int) bool { return line != instruction.UnknownLineNumber }

// spacer is a block without lines of its own, like a separator or a brace.
func spacer(tag Tag, prefered int, text string) Block {
	return Block{
		Tag:               tag,
		FirstLineNumber:   instruction.UnknownLineNumber,
		LastLineNumber:    instruction.UnknownLineNumber,
		MinimalLineCount:  0,
		MaximalLineCount:  UnlimitedLineCount,
		PreferedLineCount: prefered,
		FirstOffset:       -1,
		LastOffset:        -1,
		Text:              text,
	}
}

// fixed is a block taking exactly n lines wherever it lands.
func fixed(tag Tag, n int, text string) Block {
	b := spacer(tag, n, text)
	b.MinimalLineCount, b.MaximalLineCount = n, n
	return b
}

// spanned is a block covering first..last. With both lines known the block
// takes exactly the lines between them.
func spanned(tag Tag, first, last int, text string) Block {
	b := spacer(tag, 0, text)
	b.FirstLineNumber, b.LastLineNumber = first, last
	if known(first) && known(last) {
		n := last - first
		b.MinimalLineCount, b.PreferedLineCount, b.MaximalLineCount = n, n, n
	}
	return b
}

// Marked wraps inner between a start and an end marker naming it.
func Marked(start, end Tag, name string, inner []Block) []Block {
	out := make([]Block, 0, len(inner)+2)
	out = append(out, spacer(start, 0, name))
	out = append(out, inner...)
	return append(out, spacer(end, 0, name))
}
