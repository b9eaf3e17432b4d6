package transcribe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFindsObjectInsideNoise(t *testing.T) {
	payload := `{"status":"success","title":"T","file_path":"/x/y.txt","transcript_text":"hi"}`
	result := ParseOutput("noise..."+payload+"more noise", "")

	success, ok := result.(*Success)
	require.True(t, ok, "result = %#v", result)
	assert.Equal(t, "T", success.Title)
	assert.Equal(t, "/x/y.txt", success.FilePath)
	assert.Equal(t, "hi", success.Transcript())

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(encoded))
}

func TestParseOutputKeepsUnknownFields(t *testing.T) {
	payload := `{"status":"success","title":"T","file_path":"/t.txt","transcript_preview":"pre","video_id":"abc","words":12}`
	result := ParseOutput(payload+"\n", "")

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(encoded))
	assert.Equal(t, "pre", result.(*Success).Transcript())
}

func TestParseOutputWithoutBracesIsInvalidResponse(t *testing.T) {
	result := ParseOutput("Error: Could not extract video ID from URL.\n", "traceback")

	failure, ok := result.(*Failure)
	require.True(t, ok)
	assert.Equal(t, FailureInvalidResponse, failure.Kind)
	assert.Equal(t, "Invalid response from Python script", failure.Message)
	assert.Equal(t, "Error: Could not extract video ID from URL.\n", failure.Details)
}

func TestParseOutputEmptyStdoutUsesStderrDetails(t *testing.T) {
	result := ParseOutput("", "ModuleNotFoundError: youtube_transcript_api")

	failure := result.(*Failure)
	assert.Equal(t, FailureInvalidResponse, failure.Kind)
	assert.Equal(t, "ModuleNotFoundError: youtube_transcript_api", failure.Details)
}

func TestParseOutputClosingBraceBeforeOpening(t *testing.T) {
	failure := ParseOutput("} then {", "").(*Failure)
	assert.Equal(t, FailureInvalidResponse, failure.Kind)
}

func TestParseOutputMalformedJSONIsParseFailure(t *testing.T) {
	stdout := `log {"status": "success", "title": } trailing`
	result := ParseOutput(stdout, "")

	failure, ok := result.(*Failure)
	require.True(t, ok)
	assert.Equal(t, FailureParse, failure.Kind)
	assert.Equal(t, "Failed to parse script output", failure.Message)
	assert.NotEmpty(t, failure.Details)
	assert.Equal(t, stdout, failure.Raw)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	var wire map[string]string
	require.NoError(t, json.Unmarshal(encoded, &wire))
	assert.Equal(t, "error", wire["status"])
	assert.Equal(t, stdout, wire["raw"])
}

func TestParseOutputGreedySpanAcrossTwoObjects(t *testing.T) {
	failure := ParseOutput(`{"a":1} log {"b":2}`, "").(*Failure)
	assert.Equal(t, FailureParse, failure.Kind)
}

func TestParseOutputReportedError(t *testing.T) {
	payload := `{"status":"error","message":"Video unavailable","details":{"code":404}}`
	result := ParseOutput(payload, "")

	failure, ok := result.(*Failure)
	require.True(t, ok)
	assert.Equal(t, FailureReported, failure.Kind)
	assert.Equal(t, "Video unavailable", failure.Message)
	assert.Equal(t, `{"code":404}`, failure.Details)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(encoded))
}

func TestParseOutputPrefersMarkerLine(t *testing.T) {
	stdout := "fetching {video} metadata\n" +
		ResultMarker + ` {"status":"success","title":"Marked","file_path":"/m.txt","transcript_text":"x"}` + "\n" +
		"done }\n"
	success, ok := ParseOutput(stdout, "").(*Success)
	require.True(t, ok)
	assert.Equal(t, "Marked", success.Title)
}

func TestParseOutputMarkerWithoutObjectFallsBackToBraces(t *testing.T) {
	payload := `{"status":"success","title":"T","file_path":"/t.txt","transcript_text":"x"}`
	stdout := ResultMarker + " pending\n" + payload + "\n"

	result := ParseOutput(stdout, "")
	success, ok := result.(*Success)
	require.True(t, ok, "result = %#v", result)
	assert.Equal(t, "T", success.Title)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(encoded))
}

func TestParseOutputMarkerNonObjectWithoutBraces(t *testing.T) {
	failure := ParseOutput(ResultMarker+" [1,2]\n", "").(*Failure)
	assert.Equal(t, FailureInvalidResponse, failure.Kind)
}

func TestParseOutputLastValidMarkerWins(t *testing.T) {
	stdout := ResultMarker + ` {"status":"success","title":"first"}` + "\n" +
		ResultMarker + " {broken\n"
	success, ok := ParseOutput(stdout, "").(*Success)
	require.True(t, ok)
	assert.Equal(t, "first", success.Title)
}

func TestFailureMarshalWithoutPayload(t *testing.T) {
	encoded, err := json.Marshal(&Failure{Kind: FailureTimeout, Message: "Transcription timed out"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","kind":"timeout","message":"Transcription timed out"}`, string(encoded))
}
