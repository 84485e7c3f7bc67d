package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultNamespace(t *testing.T) {
	r := NewWithWriter("", &bytes.Buffer{})
	if r.namespace != DefaultNamespace {
		t.Errorf("namespace = %q, want %q", r.namespace, DefaultNamespace)
	}
}

func TestRecorderFlushOutput(t *testing.T) {
	var buf bytes.Buffer
	rec := NewWithWriter("MediaMapTest", &buf)
	rec.now = func() time.Time { return time.UnixMilli(1700000000000) }

	rec.Dimension("Source", "local")
	rec.Count("CreatedMedia", 12)
	rec.Count("NoMetatag", 3)
	rec.Metric("DurationSeconds", 61.5, UnitSeconds)
	rec.Property("years", "2021,2022")
	if err := rec.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Errorf("EMF output should be a single line, got %q", output)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if ts := awsMap["Timestamp"]; ts != float64(1700000000000) {
		t.Errorf("Timestamp = %v", ts)
	}

	cw := awsMap["CloudWatchMetrics"].([]any)[0].(map[string]any)
	if cw["Namespace"] != "MediaMapTest" {
		t.Errorf("Namespace = %v", cw["Namespace"])
	}

	metricDefs := cw["Metrics"].([]any)
	var names []string
	for _, m := range metricDefs {
		names = append(names, m.(map[string]any)["Name"].(string))
	}
	if strings.Join(names, ",") != "CreatedMedia,DurationSeconds,NoMetatag" {
		t.Errorf("metric names = %v, want sorted", names)
	}

	if doc["CreatedMedia"] != float64(12) {
		t.Errorf("CreatedMedia = %v, want 12", doc["CreatedMedia"])
	}
	if doc["Source"] != "local" {
		t.Errorf("Source = %v, want local", doc["Source"])
	}
	if doc["years"] != "2021,2022" {
		t.Errorf("years = %v", doc["years"])
	}
}

func TestRecorderFlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	rec := NewWithWriter("ns", &buf)
	rec.Dimension("Source", "remote")
	if err := rec.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output without metrics, got %q", buf.String())
	}
}
