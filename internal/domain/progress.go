package domain

// Phase labels the stage a translation job is in.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseTranslatingHeaders Phase = "translating_headers"
	PhaseTranslatingRows    Phase = "translating_rows"
	PhaseFinalizing         Phase = "finalizing"
	PhaseDone               Phase = "done"
)

// Progress is a transient status record pushed to the caller on every phase
// transition. Current/Total count work units (chunks) within the current phase.
type Progress struct {
	Phase      Phase
	Current    int
	Total      int
	Message    string
	InProgress bool
}

// ProgressFunc receives progress updates. Events are emitted strictly in
// order; the chunk index never goes backwards within one job.
type ProgressFunc func(Progress)
