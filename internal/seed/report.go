package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/media-map/internal/metrics"
)

// RunReport is the end-of-run summary.
type RunReport struct {
	Counters Counters
	Started  time.Time
	Finished time.Time
	Duration time.Duration
	Source   string
	Storage  string
	Years    []string
}

// String renders the human-readable report printed at the end of a run.
func (r *RunReport) String() string {
	c := r.Counters
	var b strings.Builder
	fmt.Fprintf(&b, "Seeding finished in %s\n", FormatElapsed(r.Duration))
	fmt.Fprintf(&b, "  events found:  %d\n", c.FoundEvents)
	fmt.Fprintf(&b, "  media found:   %d\n", c.FoundMedia)
	fmt.Fprintf(&b, "  media created: %d\n", c.CreatedMedia)
	fmt.Fprintf(&b, "  media skipped: %d\n", c.Skipped())
	for _, s := range c.Skips() {
		fmt.Fprintf(&b, "    %-15s %d\n", string(s.Reason)+":", s.Count)
	}
	return b.String()
}

// Log appends the report to the run log as one structured line.
func (r *RunReport) Log() {
	skips := zerolog.Dict()
	for _, s := range r.Counters.Skips() {
		skips.Int(string(s.Reason), s.Count)
	}

	log.Info().
		Str("source", r.Source).
		Str("storage", r.Storage).
		Strs("years", r.Years).
		Int("found_events", r.Counters.FoundEvents).
		Int("found_media", r.Counters.FoundMedia).
		Int("created_media", r.Counters.CreatedMedia).
		Int("skipped", r.Counters.Skipped()).
		Dict("skips", skips).
		Dur("duration", r.Duration).
		Str("elapsed", FormatElapsed(r.Duration)).
		Msg("Seeding run finished")
}

// Record adds the report's counters to an EMF recorder.
func (r *RunReport) Record(rec *metrics.Recorder) {
	c := r.Counters
	rec.Dimension("Source", r.Source).
		Dimension("Storage", r.Storage).
		Count("FoundEvents", c.FoundEvents).
		Count("FoundMedia", c.FoundMedia).
		Count("CreatedMedia", c.CreatedMedia).
		Count("SkippedMedia", c.Skipped()).
		Metric("DurationSeconds", r.Duration.Seconds(), metrics.UnitSeconds).
		Property("Years", strings.Join(r.Years, ","))
	for _, s := range c.Skips() {
		rec.Count("Skip"+strings.ToUpper(string(s.Reason[:1]))+string(s.Reason[1:]), s.Count)
	}
}

// FormatElapsed renders a duration as an hours/minutes/seconds breakdown,
// e.g. "1h 2m 3s" or "45s".
func FormatElapsed(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
