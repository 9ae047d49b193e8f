package callpath

import "fmt"

// Translator converts a Frame into a one-line, human-readable string for
// the final report. A Frame with no function and no file (for example, one
// produced by a failed stack capture, see spec.md §7 kind 5) renders as
// "::" so the report still shows one line per frame.
type Translator struct{}

// NewTranslator constructs a Translator. It holds no state today; the
// constructor exists so report code can depend on a value rather than a
// bare function, matching how the rest of this package is structured.
func NewTranslator() Translator {
	return Translator{}
}

// Line renders a single frame.
func (Translator) Line(f Frame) string {
	return f.String()
}

// Lines renders every frame of a path, one string per line, in path order.
// A path with no frames at all (a failed stack capture, see spec.md §7
// kind 5) still renders one "::" line, the same marker an unresolved
// frame uses.
func (t Translator) Lines(p Path) []string {
	if len(p.Frames) == 0 {
		return []string{"::"}
	}
	lines := make([]string, len(p.Frames))
	for i, f := range p.Frames {
		lines[i] = t.Line(f)
	}
	return lines
}

// Header renders the "Count: N" line spec.md §4.5 requires before each
// path's frames.
func (t Translator) Header(count int) string {
	return fmt.Sprintf("Count: %d", count)
}
