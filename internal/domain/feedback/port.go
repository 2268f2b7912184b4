package feedback

import "context"

// Normalizer converts an arbitrary audio file into the canonical waveform
// expected by a Transcriber. Any existing file at outputPath is replaced.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// Transcriber turns a canonical waveform file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// TranscriptLog is the append-only history of transcriptions.
type TranscriptLog interface {
	Append(ctx context.Context, text string) (TranscriptRecord, error)
	Load(ctx context.Context) ([]TranscriptRecord, error)
}

// AnalysisCache keeps the last analysis only.
type AnalysisCache interface {
	Save(ctx context.Context, a Analysis) error
	Latest(ctx context.Context) (*Analysis, error)
}

// Analyzer produces feedback for the most recent transcript.
type Analyzer interface {
	Analyze(ctx context.Context) (string, error)
}

// Archive stores a copy of a processed recording. Optional.
type Archive interface {
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
