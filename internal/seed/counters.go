package seed

import "sync"

// SkipReason tags the bucket a rejected or failed file is counted in.
type SkipReason string

const (
	ReasonWrongExtension SkipReason = "wrongExtension"
	ReasonEventMissing   SkipReason = "eventMissing"
	ReasonCoordsMissing  SkipReason = "coordsMissing"
	ReasonNoMetatag      SkipReason = "noMetatag"
	ReasonNoImageData    SkipReason = "noImageData"
	ReasonUploadFailed   SkipReason = "uploadFailed"
	ReasonPersistFailed  SkipReason = "persistFailed"
)

// Counters is a point-in-time copy of a run's counters.
type Counters struct {
	FoundMedia   int
	FoundEvents  int
	CreatedMedia int

	WrongExtension int
	EventMissing   int
	CoordsMissing  int
	NoMetatag      int
	NoImageData    int
	UploadFailed   int
	PersistFailed  int
}

// Skipped returns the total over every skip bucket.
func (c Counters) Skipped() int {
	return c.WrongExtension + c.EventMissing + c.CoordsMissing + c.NoMetatag +
		c.NoImageData + c.UploadFailed + c.PersistFailed
}

// Skips returns the skip buckets keyed by reason, in reporting order.
func (c Counters) Skips() []SkipCount {
	return []SkipCount{
		{ReasonWrongExtension, c.WrongExtension},
		{ReasonEventMissing, c.EventMissing},
		{ReasonCoordsMissing, c.CoordsMissing},
		{ReasonNoMetatag, c.NoMetatag},
		{ReasonNoImageData, c.NoImageData},
		{ReasonUploadFailed, c.UploadFailed},
		{ReasonPersistFailed, c.PersistFailed},
	}
}

// SkipCount pairs a reason with its count.
type SkipCount struct {
	Reason SkipReason
	Count  int
}

// RunCounters accumulates the counters of one run. It is safe for
// concurrent use by the worker pool.
type RunCounters struct {
	mu sync.Mutex
	c  Counters
}

// Snapshot returns a copy of the current counters.
func (rc *RunCounters) Snapshot() Counters {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.c
}

func (rc *RunCounters) foundEvents(n int) {
	rc.mu.Lock()
	rc.c.FoundEvents += n
	rc.mu.Unlock()
}

func (rc *RunCounters) foundMedia(n int) {
	rc.mu.Lock()
	rc.c.FoundMedia += n
	rc.mu.Unlock()
}

func (rc *RunCounters) created() {
	rc.mu.Lock()
	rc.c.CreatedMedia++
	rc.mu.Unlock()
}

func (rc *RunCounters) skip(reason SkipReason) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	switch reason {
	case ReasonWrongExtension:
		rc.c.WrongExtension++
	case ReasonEventMissing:
		rc.c.EventMissing++
	case ReasonCoordsMissing:
		rc.c.CoordsMissing++
	case ReasonNoMetatag:
		rc.c.NoMetatag++
	case ReasonNoImageData:
		rc.c.NoImageData++
	case ReasonUploadFailed:
		rc.c.UploadFailed++
	case ReasonPersistFailed:
		rc.c.PersistFailed++
	}
}
