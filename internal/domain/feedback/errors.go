package feedback

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindDecode        Kind = "decode"
	KindRecognition   Kind = "recognition"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
	KindRemoteService Kind = "remote_service"
	KindPersistence   Kind = "persistence"
	KindUnhandled     Kind = "unhandled"
)

// User-visible messages returned in place of an analysis.
const (
	MsgMissingCredential = "LLM API key is not configured in the environment."
	MsgNoTranscript      = "No transcription was found."
)

// Error is the error contract shared by every pipeline step.
type Error struct {
	Kind    Kind
	Op      string // ex: "TranscriptLog.Append"
	Message string // safe to show to the user
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(kind Kind, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnhandled when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnhandled
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the safe message of err if it has one.
func UserMessage(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return ""
}
