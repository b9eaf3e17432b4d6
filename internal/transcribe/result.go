package transcribe

import (
	"encoding/json"
	"fmt"
)

// Status is the wire tag distinguishing the two result shapes.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FailureKind classifies why a transcription produced no transcript.
type FailureKind string

const (
	// FailureReported means the script ran and printed a non-success status.
	FailureReported FailureKind = "reported"
	// FailureInvalidResponse means stdout contained no JSON object.
	FailureInvalidResponse FailureKind = "invalid_response"
	// FailureParse means a JSON candidate was found but did not decode.
	FailureParse FailureKind = "parse"
	// FailureSpawn means the interpreter could not be started.
	FailureSpawn FailureKind = "spawn"
	// FailureTimeout means the process outlived the configured timeout.
	FailureTimeout FailureKind = "timeout"
	// FailureCancelled means the caller cancelled the request.
	FailureCancelled FailureKind = "cancelled"
)

const (
	MessageInvalidResponse = "Invalid response from Python script"
	MessageParseFailed     = "Failed to parse script output"
)

// Result is either *Success or *Failure. Use a type switch to handle it.
type Result interface {
	json.Marshaler
	Status() Status
	isResult()
}

// Success is a finished transcription reported by the script.
type Success struct {
	Title             string
	FilePath          string
	TranscriptText    string
	TranscriptPreview string
	// Payload is the exact object the script printed.
	Payload json.RawMessage
}

// Status implements Result.
func (s *Success) Status() Status { return StatusSuccess }

func (*Success) isResult() {}

// Transcript returns the full text, falling back to the preview.
func (s *Success) Transcript() string {
	if s.TranscriptText != "" {
		return s.TranscriptText
	}
	return s.TranscriptPreview
}

// MarshalJSON emits the script payload unchanged when present.
func (s *Success) MarshalJSON() ([]byte, error) {
	if len(s.Payload) > 0 {
		return s.Payload, nil
	}
	return json.Marshal(successWire{
		Status:            StatusSuccess,
		Title:             s.Title,
		FilePath:          s.FilePath,
		TranscriptText:    s.TranscriptText,
		TranscriptPreview: s.TranscriptPreview,
	})
}

// Failure is any transcription outcome that is not a Success.
type Failure struct {
	Kind    FailureKind
	Message string
	Details string
	Raw     string
	// Payload is set when the script itself printed the error object.
	Payload json.RawMessage
}

// Status implements Result.
func (f *Failure) Status() Status { return StatusError }

func (*Failure) isResult() {}

// String formats the failure for logs and terminal output.
func (f *Failure) String() string {
	if f.Details == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Message, f.Details)
}

// MarshalJSON emits the script payload unchanged when present.
func (f *Failure) MarshalJSON() ([]byte, error) {
	if len(f.Payload) > 0 {
		return f.Payload, nil
	}
	return json.Marshal(failureWire{
		Status:  StatusError,
		Kind:    f.Kind,
		Message: f.Message,
		Details: f.Details,
		Raw:     f.Raw,
	})
}

type successWire struct {
	Status            Status `json:"status"`
	Title             string `json:"title"`
	FilePath          string `json:"file_path"`
	TranscriptText    string `json:"transcript_text,omitempty"`
	TranscriptPreview string `json:"transcript_preview,omitempty"`
}

type failureWire struct {
	Status  Status      `json:"status"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Details string      `json:"details,omitempty"`
	Raw     string      `json:"raw,omitempty"`
}
