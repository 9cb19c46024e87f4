package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/stats"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *runner.RunResult {
	return &runner.RunResult{
		StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:  50 * time.Millisecond,
		Passed:    2,
		Failed:    1,
		Errored:   1,
		Skipped:   2,
		Warnings:  1,
		Latency: stats.Snapshot{
			Count: 4,
			Min:   5 * time.Millisecond,
			Max:   20 * time.Millisecond,
			Mean:  12 * time.Millisecond,
			P50:   10 * time.Millisecond,
			P95:   20 * time.Millisecond,
			P99:   20 * time.Millisecond,
		},
		Endpoints: map[string]stats.Snapshot{
			"topstories": {Count: 1, Max: 5 * time.Millisecond, P50: 5 * time.Millisecond, P95: 5 * time.Millisecond},
			"item":       {Count: 3, Max: 20 * time.Millisecond, P50: 10 * time.Millisecond, P95: 20 * time.Millisecond},
		},
		Results: []*runner.Result{
			{
				ID: "hn-01", Name: "top stories return a list of ids", Tags: []string{"topstories"},
				Status: runner.StatusPassed, Duration: 12 * time.Millisecond,
			},
			{
				ID: "hn-03", Name: "current top story is a story or job", Tags: []string{"item"},
				Status: runner.StatusFailed, Duration: 20 * time.Millisecond,
				Violations: []assertions.Violation{
					{Code: assertions.MissingField, Path: "by", Message: "required field is missing"},
				},
			},
			{
				ID: "hn-04", Name: "non-existent item id returns null", Tags: []string{"item", "edge"},
				Status: runner.StatusErrored, Duration: 5 * time.Millisecond,
				Error: errors.New("GET http://upstream/item/1.json: unexpected status 503"),
			},
			{
				ID: "hn-07", Name: "top story and its first comment", Tags: []string{"comments"},
				Status: runner.StatusPassed, Duration: 8 * time.Millisecond,
				Warnings: []string{"the top story has no comments at this time"},
			},
			{
				ID: "hn-09", Name: "pretty and compact top stories share a shape", Tags: []string{"topstories"},
				Status: runner.StatusSkipped, SkipReason: "filtered out",
			},
			{
				ID: "hn-10", Name: "top story matches its item schema", Tags: []string{"item", "schema"},
				Status: runner.StatusSkipped, SkipReason: "bail",
			},
		},
	}
}

func TestConsoleFormatter_Golden(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatResult(sampleResult())

	g := goldie.New(t)
	g.Assert(t, "console", buf.Bytes())
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	f.FormatResult(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "  - hn-09 pretty and compact top stories share a shape\n")
	assert.Contains(t, out, "  item       p50 10ms  p95 20ms  max 20ms  (3)\n")
	assert.Contains(t, out, "  topstories p50 5ms  p95 5ms  max 5ms  (1)\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("  item ")), bytes.Index(buf.Bytes(), []byte("  topstories ")))
}

func TestConsoleFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatHeader("1.0.0")
	f.FormatError(errors.New("boom"))
	f.FormatNote("trend: regressed")

	assert.Equal(t, "hncheck 1.0.0\nError: boom\ntrend: regressed\n", buf.String())
}

func TestTAPFormatter_Golden(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(50*time.Millisecond))

	g := goldie.New(t)
	g.Assert(t, "tap", buf.Bytes())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(50*time.Millisecond))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 6, Passed: 2, Failed: 1, Errored: 1, Skipped: 2, Violations: 1, Warnings: 1}, out.Summary)
	assert.Equal(t, "2024-03-01T12:00:00Z", out.Time)
	assert.Equal(t, float64(50), out.Duration)
	assert.Equal(t, int64(4), out.Latency.Count)
	assert.Equal(t, int64(3), out.Endpoints["item"].Count)

	require.Len(t, out.Scenarios, 6)
	failed := out.Scenarios[1]
	assert.Equal(t, "hn-03", failed.ID)
	assert.Equal(t, "failed", failed.Status)
	require.Len(t, failed.Violations, 1)
	assert.Equal(t, assertions.MissingField, failed.Violations[0].Code)
	assert.Equal(t, "by", failed.Violations[0].Path)

	assert.Equal(t, "errored", out.Scenarios[2].Status)
	assert.Contains(t, out.Scenarios[2].Error, "503")
	assert.Equal(t, []string{"the top story has no comments at this time"}, out.Scenarios[3].Warnings)
	assert.Equal(t, "bail", out.Scenarios[5].SkipReason)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(50*time.Millisecond))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(`<?xml version="1.0" encoding="UTF-8"?>`)))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, "hncheck", suites.Name)
	assert.Equal(t, 6, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 2, suites.Skipped)
	assert.Equal(t, "2024-03-01T12:00:00Z", suites.Timestamp)

	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 6)

	assert.Nil(t, cases[0].Failure)
	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "1 violation(s)", cases[1].Failure.Message)
	assert.Contains(t, cases[1].Failure.Content, "MissingField at by: required field is missing")
	require.NotNil(t, cases[2].Error)
	assert.Contains(t, cases[2].Error.Message, "unexpected status 503")
	assert.Contains(t, cases[3].SystemOut, "no comments")
	require.NotNil(t, cases[5].Skipped)
	assert.Equal(t, "bail", cases[5].Skipped.Message)
	assert.Equal(t, "item.schema", cases[5].ClassName)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range Names {
		f, err := New(name, &buf, false, true)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	f, _ := New("JSON", &buf, false, true)
	_, ok := f.(Flushable)
	assert.True(t, ok)

	f, _ = New("console", &buf, false, true)
	_, ok = f.(Flushable)
	assert.False(t, ok)

	_, err := New("html", &buf, false, true)
	assert.Error(t, err)

	assert.Equal(t, ".xml", Extension("junit"))
	assert.Equal(t, ".txt", Extension("console"))
}
