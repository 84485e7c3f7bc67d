// Package metrics emits seeding run counters in the AWS CloudWatch Embedded
// Metric Format (EMF). An EMF document is a single JSON line; when the run
// log is shipped to CloudWatch Logs the counters become metrics without
// any API call.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "MediaMap"

// Standard CloudWatch metric units.
const (
	UnitSeconds = "Seconds"
	UnitCount   = "Count"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates dimensions, metrics and properties for one flush.
// It is not safe for concurrent use; the pipeline fills it once at the end
// of a run.
type Recorder struct {
	namespace  string
	out        io.Writer
	now        func() time.Time
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]any
}

// New creates a Recorder that writes to stdout.
func New(namespace string) *Recorder {
	return NewWithWriter(namespace, os.Stdout)
}

// NewWithWriter creates a Recorder that writes EMF lines to w.
func NewWithWriter(namespace string, w io.Writer) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Recorder{
		namespace:  namespace,
		out:        w,
		now:        time.Now,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]any),
	}
}

// Dimension adds a dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric.
func (r *Recorder) Count(name string, n int) *Recorder {
	return r.Metric(name, float64(n), UnitCount)
}

// Property adds a non-metric field to the document.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as one JSON line. Nothing is written when no
// metric was recorded.
func (r *Recorder) Flush() error {
	if len(r.metrics) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]any, 1+len(r.dimensions)+len(r.values)+len(r.properties))
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	doc["_aws"] = emfDirective{
		Timestamp: r.now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("emf: failed to marshal metrics: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(data)); err != nil {
		return fmt.Errorf("emf: failed to write metrics: %w", err)
	}
	return nil
}
