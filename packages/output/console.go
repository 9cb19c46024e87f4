package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "\n")

	for _, r := range result.Results {
		label := r.ID + " " + r.Name

		switch r.Status {
		case runner.StatusSkipped:
			if r.SkipReason == "filtered out" && !f.verbose {
				continue
			}
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), label)
			if r.SkipReason != "" && r.SkipReason != "filtered out" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
			continue
		case runner.StatusErrored:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), label, red(fmt.Sprintf("(%v)", r.Error)))
		case runner.StatusFailed:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), label, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), label, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
		}

		for _, v := range r.Violations {
			fmt.Fprintf(f.writer, "    %s %s\n", red("→"), v)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(f.writer, "    %s %s\n", yellow("!"), w)
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Scenarios:  ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errored", result.Errored)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(result.Results))
	if n := result.Violations(); n > 0 {
		fmt.Fprintf(f.writer, "Violations: %s\n", red(n))
	}
	if result.Warnings > 0 {
		fmt.Fprintf(f.writer, "Warnings:   %s\n", yellow(result.Warnings))
	}
	fmt.Fprintf(f.writer, "Time:       %dms\n", result.Duration.Milliseconds())

	if result.Latency.Count > 0 {
		l := result.Latency
		fmt.Fprintf(f.writer, "Latency:    p50 %s  p95 %s  p99 %s  (%d requests)\n",
			l.P50, l.P95, l.P99, l.Count)
		if f.verbose {
			for _, name := range sortedEndpoints(result.Endpoints) {
				e := result.Endpoints[name]
				fmt.Fprintf(f.writer, "  %-10s p50 %s  p95 %s  max %s  (%d)\n", name, e.P50, e.P95, e.Max, e.Count)
			}
		}
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hncheck"), version)
}

// FormatNote prints an informational line, e.g. the trend against the previous run.
func (f *ConsoleFormatter) FormatNote(note string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(f.writer, "%s\n", cyan(note))
}
