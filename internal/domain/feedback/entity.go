package feedback

import "time"

// TranscriptRecord is one entry of the transcript log. Records are never
// updated once written.
type TranscriptRecord struct {
	Timestamp time.Time `json:"fecha"`
	Text      string    `json:"transcripcion"`
}

// Analysis is the single-slot cache of the most recent feedback.
type Analysis struct {
	Text string `json:"analysis"`
}

// Result is what one pipeline run hands back to the caller. Either Error is
// set, or Transcript and Analysis are.
type Result struct {
	Transcript string `json:"transcript"`
	Analysis   string `json:"analysis"`
	Error      string `json:"error"`
}

// Failed reports whether the run ended in the Failed terminal state.
func (r Result) Failed() bool { return r.Error != "" }

// Stage names, in execution order.
const (
	StageNormalize  = "normalize"
	StageTranscribe = "transcribe"
	StageLog        = "log"
	StageAnalyze    = "analyze"
)
