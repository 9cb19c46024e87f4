package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/stats"
)

// Formatter renders run results.
type Formatter interface {
	FormatHeader(version string)
	FormatResult(result *runner.RunResult)
	FormatError(err error)
}

// Flushable is implemented by formatters that write everything at the end.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Names lists the supported formatter names.
var Names = []string{"console", "json", "junit", "tap"}

// New returns the formatter called name writing to w.
func New(name string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(name) {
	case "console", "":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: %s)", name, strings.Join(Names, ", "))
	}
}

// Extension returns the file extension for a formatter's output.
func Extension(name string) string {
	switch strings.ToLower(name) {
	case "json":
		return ".json"
	case "junit":
		return ".xml"
	case "tap":
		return ".tap"
	default:
		return ".txt"
	}
}

func sortedEndpoints(m map[string]stats.Snapshot) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
