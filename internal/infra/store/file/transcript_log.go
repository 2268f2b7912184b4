package file

import (
	"context"
	"sync"

	"github.com/bryanwahyu/speech-coach/internal/domain/feedback"
)

// TranscriptLog is an append-only JSON array of transcript records.
type TranscriptLog struct {
	path string
	opts options
	mu   sync.Mutex
}

func NewTranscriptLog(path string, opts ...Option) *TranscriptLog {
	return &TranscriptLog{path: path, opts: buildOptions(opts)}
}

func (l *TranscriptLog) Append(ctx context.Context, text string) (feedback.TranscriptRecord, error) {
	const op = "TranscriptLog.Append"
	if err := ctx.Err(); err != nil {
		return feedback.TranscriptRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.loadUnlocked(op)
	rec := feedback.TranscriptRecord{Timestamp: l.opts.now(), Text: text}
	records = append(records, rec)
	if err := writeJSON(l.path, records); err != nil {
		return feedback.TranscriptRecord{}, feedback.E(feedback.KindPersistence, op, "", err)
	}
	return rec, nil
}

func (l *TranscriptLog) Load(ctx context.Context) ([]feedback.TranscriptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadUnlocked("TranscriptLog.Load"), nil
}

func (l *TranscriptLog) loadUnlocked(op string) []feedback.TranscriptRecord {
	var records []feedback.TranscriptRecord
	if _, err := readJSON(l.path, &records); err != nil {
		l.opts.corrupt(op, l.path, err)
		return []feedback.TranscriptRecord{}
	}
	if records == nil {
		records = []feedback.TranscriptRecord{}
	}
	return records
}
