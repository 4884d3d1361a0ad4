package layout

import (
	"fmt"

	"github.com/colorfulnotion/jdcore/jderrors"
)

// Check validates a block sequence: line counts are ordered, known line
// ranges are not inverted, the next known first line lies within the
// minimal and maximal line counts of a block, and known first lines never
// decrease.
func Check(blocks []Block) error {
	last := -1
	for i, b := range blocks {
		if b.MinimalLineCount < 0 || b.MinimalLineCount > b.PreferedLineCount || b.PreferedLineCount > b.MaximalLineCount {
			return fmt.Errorf("block %d (%s): %w", i, b, jderrors.ErrLLineCountOrder)
		}
		if known(b.FirstLineNumber) && known(b.LastLineNumber) && b.FirstLineNumber > b.LastLineNumber {
			return fmt.Errorf("block %d (%s): %w", i, b, jderrors.ErrLLineRange)
		}
		if !known(b.FirstLineNumber) {
			continue
		}
		if b.FirstLineNumber < last {
			return fmt.Errorf("block %d (%s) after line %d: %w", i, b, last, jderrors.ErrLLineRegression)
		}
		last = b.FirstLineNumber
		if i+1 < len(blocks) {
			next := blocks[i+1]
			if known(next.FirstLineNumber) && outside(next.FirstLineNumber, b) {
				return fmt.Errorf("block %d (%s) next starts at %d: %w", i, b, next.FirstLineNumber, jderrors.ErrLBlockSpacing)
			}
		}
	}
	return nil
}

// outside reports whether line cannot follow b: it is before the minimal
// extent of b or past a bounded maximal one.
func outside(line int, b Block) bool {
	if line < b.FirstLineNumber+b.MinimalLineCount {
		return true
	}
	return b.MaximalLineCount != UnlimitedLineCount && line > b.FirstLineNumber+b.MaximalLineCount
}
