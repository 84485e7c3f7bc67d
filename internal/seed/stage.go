package seed

import "github.com/fpang/media-map/internal/store"

// Stage is the furthest point a file reached in the per-file step.
type Stage int

const (
	StageFetched Stage = iota
	StageMetadataResolved
	StageFiltered
	StageTranscoded
	StageStored
	StagePersisted
)

var stageNames = [...]string{
	StageFetched:          "fetched",
	StageMetadataResolved: "metadataResolved",
	StageFiltered:         "filtered",
	StageTranscoded:       "transcoded",
	StageStored:           "stored",
	StagePersisted:        "persisted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Outcome is the terminal state of one file: Persisted with the stored
// Media on success, or the stage it stopped at together with the skip
// reason.
type Outcome struct {
	Stage  Stage
	Reason SkipReason
	Err    error
	Media  *store.Media
}

// OK reports whether the file was persisted.
func (o Outcome) OK() bool {
	return o.Stage == StagePersisted && o.Reason == ""
}
