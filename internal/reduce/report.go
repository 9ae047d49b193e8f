package reduce

import (
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/leakcheck"
)

// section names the three report sections spec.md §4.5 requires, in
// their fixed print order.
type section struct {
	name    string
	entries []leakcheck.Entry
}

// Report writes the finalize-time dump to w: three count-descending,
// path-ascending sections bracketed by START/END banners, the whole
// thing wrapped in a START REPORT/END REPORT pair. A section with no
// entries is suppressed entirely rather than printed empty.
func Report(w io.Writer, definite, possible, missingAlloc []leakcheck.Entry) error {
	translator := callpath.NewTranslator()
	printer := message.NewPrinter(language.English)

	sections := []section{
		{"LEAKED OBJECTS", definite},
		{"POSSIBLY LEAKED OBJECTS", possible},
		{"ALLOCATION CALL UNKNOWN", missingAlloc},
	}

	if _, err := fmt.Fprintln(w, "START REPORT"); err != nil {
		return err
	}
	for _, s := range sections {
		if len(s.entries) == 0 {
			continue
		}
		if err := printSection(w, printer, translator, s); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "END REPORT")
	return err
}

func printSection(w io.Writer, printer *message.Printer, translator callpath.Translator, s section) error {
	if _, err := fmt.Fprintf(w, "START SECTION: %s\n", s.name); err != nil {
		return err
	}

	ordered := make([]leakcheck.Entry, len(s.entries))
	copy(ordered, s.entries)
	sortByCountThenPath(ordered)

	for _, e := range ordered {
		// printer.Fprintf's %d verb applies locale-aware grouping (e.g. a
		// thousands separator) for large counts; small counts print
		// exactly as translator.Header would.
		if _, err := printer.Fprintf(w, "Count: %d\n", e.Count); err != nil {
			return err
		}
		for _, line := range translator.Lines(e.Path) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "END SECTION: %s\n", s.name); err != nil {
		return err
	}
	return nil
}
