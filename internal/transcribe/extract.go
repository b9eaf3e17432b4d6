package transcribe

import (
	"encoding/json"
	"strings"
)

// ResultMarker prefixes a stdout line carrying the result object. Scripts
// that print it are immune to stray braces in their log output.
const ResultMarker = "@@RESULT@@"

// ParseOutput turns captured process output into a Result. It never fails:
// missing or malformed JSON becomes a *Failure.
func ParseOutput(stdout, stderr string) Result {
	candidate, ok := extractJSON(stdout)
	if !ok {
		details := stdout
		if details == "" {
			details = stderr
		}
		return &Failure{
			Kind:    FailureInvalidResponse,
			Message: MessageInvalidResponse,
			Details: details,
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return &Failure{
			Kind:    FailureParse,
			Message: MessageParseFailed,
			Details: err.Error(),
			Raw:     stdout,
		}
	}
	if fields == nil {
		return &Failure{
			Kind:    FailureParse,
			Message: MessageParseFailed,
			Details: "script printed null instead of an object",
			Raw:     stdout,
		}
	}

	payload := json.RawMessage(candidate)
	if stringField(fields, "status") == string(StatusSuccess) {
		return &Success{
			Title:             stringField(fields, "title"),
			FilePath:          stringField(fields, "file_path"),
			TranscriptText:    stringField(fields, "transcript_text"),
			TranscriptPreview: stringField(fields, "transcript_preview"),
			Payload:           payload,
		}
	}

	return &Failure{
		Kind:    FailureReported,
		Message: stringField(fields, "message"),
		Details: stringField(fields, "details"),
		Raw:     stringField(fields, "raw"),
		Payload: payload,
	}
}

// extractJSON prefers the last marker line holding a JSON object, then falls
// back to the span from the first '{' to the last '}' in stdout.
func extractJSON(stdout string) (string, bool) {
	if candidate, ok := markerCandidate(stdout); ok {
		return candidate, true
	}

	start := strings.IndexByte(stdout, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(stdout, '}')
	if end < start {
		return "", false
	}
	return stdout[start : end+1], true
}

// markerCandidate ignores marker lines whose remainder is not an object, so
// progress text after the marker never hides a result printed elsewhere.
func markerCandidate(stdout string) (string, bool) {
	found := ""
	for _, line := range strings.Split(stdout, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), ResultMarker)
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		if isJSONObject(rest) {
			found = rest
		}
	}
	return found, found != ""
}

func isJSONObject(text string) bool {
	if !strings.HasPrefix(text, "{") {
		return false
	}
	var fields map[string]json.RawMessage
	return json.Unmarshal([]byte(text), &fields) == nil && fields != nil
}

// stringField reads key as a string. Non-string values come back as their
// raw JSON text; absent keys and null yield "".
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
