package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevels(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARNING": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := New(in, "json").GetLevel(); got != want {
			t.Errorf("level %q: want %v, got %v", in, want, got)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "info", "json")
	l.WithField("stage", "normalize").Info("done")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	if line["stage"] != "normalize" || line["msg"] != "done" {
		t.Fatalf("unexpected entry: %v", line)
	}
}
