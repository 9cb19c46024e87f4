package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/stats"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary   JSONSummary               `json:"summary"`
	Scenarios []JSONScenario            `json:"scenarios"`
	Latency   stats.Snapshot            `json:"latency"`
	Endpoints map[string]stats.Snapshot `json:"endpoints,omitempty"`
	Duration  float64                   `json:"duration"`
	Time      string                    `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Errored    int `json:"errored"`
	Skipped    int `json:"skipped"`
	Violations int `json:"violations"`
	Warnings   int `json:"warnings"`
}

// JSONScenario represents a single scenario result
type JSONScenario struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Tags       []string               `json:"tags,omitempty"`
	Status     string                 `json:"status"`
	SkipReason string                 `json:"skipReason,omitempty"`
	Duration   float64                `json:"duration"`
	Error      string                 `json:"error,omitempty"`
	Violations []assertions.Violation `json:"violations,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// JSONFormatter formats run results as JSON
type JSONFormatter struct {
	writer  io.Writer
	output  JSONOutput
	started time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		output: JSONOutput{Scenarios: make([]JSONScenario, 0)},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	if f.started.IsZero() {
		f.started = result.StartedAt
	}
	for _, r := range result.Results {
		sc := JSONScenario{
			ID:         r.ID,
			Name:       r.Name,
			Tags:       r.Tags,
			Status:     string(r.Status),
			SkipReason: r.SkipReason,
			Duration:   ms(r.Duration),
			Violations: r.Violations,
			Warnings:   r.Warnings,
		}
		if r.Error != nil {
			sc.Error = r.Error.Error()
		}
		f.output.Scenarios = append(f.output.Scenarios, sc)
	}

	s := &f.output.Summary
	s.Total += len(result.Results)
	s.Passed += result.Passed
	s.Failed += result.Failed
	s.Errored += result.Errored
	s.Skipped += result.Skipped
	s.Violations += result.Violations()
	s.Warnings += result.Warnings
	f.output.Latency = result.Latency
	f.output.Endpoints = result.Endpoints
}

func (f *JSONFormatter) FormatError(err error) {
	// Errors are included in individual scenario results
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	f.output.Duration = ms(totalDuration)
	if !f.started.IsZero() {
		f.output.Time = f.started.UTC().Format(time.RFC3339)
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(f.output)
}
