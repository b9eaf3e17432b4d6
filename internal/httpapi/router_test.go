package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-transcriber/internal/domain"
	"video-transcriber/internal/jobs"
	"video-transcriber/internal/logging"
	"video-transcriber/internal/transcribe"
)

type fakeService struct {
	transcribe func(url string) transcribe.Result
	history    []domain.HistoryEntry
	saveErr    error
	cancelled  []string
	ctx        context.Context
}

func (f *fakeService) TranscribeVideoContext(ctx context.Context, url string) transcribe.Result {
	f.ctx = ctx
	return f.transcribe(url)
}

func (f *fakeService) CancelTranscription(id string) error {
	if id != "req-1" {
		return jobs.ErrUnknownRequest
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeService) ActiveRequests() []domain.Request {
	return []domain.Request{{ID: "req-1", URL: "u", Status: domain.RequestStatusRunning}}
}

func (f *fakeService) EventsForRequest(id string) []jobs.Event {
	if id != "req-1" {
		return nil
	}
	return []jobs.Event{{Seq: 1, RequestID: id, Type: jobs.EventTypeStatus, Status: domain.RequestStatusRunning}}
}

func (f *fakeService) GetHistory() []domain.HistoryEntry { return f.history }

func (f *fakeService) SaveHistory(entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.history = append([]domain.HistoryEntry{entry}, f.history...)
	return f.history, nil
}

func (f *fakeService) GetDiagnostics() domain.DiagnosticReport {
	return domain.DiagnosticReport{Items: []domain.DiagnosticItem{{ID: domain.DiagnosticScript, Status: domain.DiagnosticStatusPass}}}
}

func serve(t *testing.T, svc Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewRouter(svc, logging.Discard(), nil).ServeHTTP(rec, req)
	return rec
}

func TestTranscribeReturnsScriptPayload(t *testing.T) {
	payload := `{"status":"success","title":"T","file_path":"/x/y.txt","transcript_text":"hi"}`
	svc := &fakeService{transcribe: func(url string) transcribe.Result {
		assert.Equal(t, "https://youtu.be/abc", url)
		return transcribe.ParseOutput(payload, "")
	}}

	rec := serve(t, svc, http.MethodPost, "/api/transcribe", `{"url":" https://youtu.be/abc "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, payload, rec.Body.String())
}

func TestTranscribeFailureIsStillOK(t *testing.T) {
	svc := &fakeService{transcribe: func(string) transcribe.Result {
		return transcribe.ParseOutput("nothing useful", "")
	}}

	rec := serve(t, svc, http.MethodPost, "/api/transcribe", `{"url":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var wire map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wire))
	assert.Equal(t, "error", wire["status"])
	assert.Equal(t, transcribe.MessageInvalidResponse, wire["message"])
}

func TestTranscribeRejectsMissingURL(t *testing.T) {
	svc := &fakeService{transcribe: func(string) transcribe.Result {
		t.Fatal("service must not be called")
		return nil
	}}

	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodPost, "/api/transcribe", `{"url":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, http.MethodPost, "/api/transcribe", `not json`).Code)
}

func TestTranscribeForwardsURLVerbatim(t *testing.T) {
	var got string
	svc := &fakeService{transcribe: func(url string) transcribe.Result {
		got = url
		return &transcribe.Success{Title: "T"}
	}}

	rec := serve(t, svc, http.MethodPost, "/api/transcribe", `{"url":"  https://youtu.be/abc?t=1 "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "  https://youtu.be/abc?t=1 ", got)
}

func TestTranscribeUsesRequestContext(t *testing.T) {
	svc := &fakeService{transcribe: func(string) transcribe.Result {
		return &transcribe.Failure{Kind: transcribe.FailureCancelled, Message: "Transcription cancelled"}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(`{"url":"u"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	NewRouter(svc, logging.Discard(), nil).ServeHTTP(rec, req)

	require.NotNil(t, svc.ctx)
	assert.ErrorIs(t, svc.ctx.Err(), context.Canceled)
}

func TestRequestEvents(t *testing.T) {
	svc := &fakeService{}

	rec := serve(t, svc, http.MethodGet, "/api/requests/req-1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []jobs.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)

	rec = serve(t, svc, http.MethodGet, "/api/requests/nope/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHistoryEndpoints(t *testing.T) {
	svc := &fakeService{history: []domain.HistoryEntry{}}

	rec := serve(t, svc, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(t, svc, http.MethodPost, "/api/history", `{"title":"T","path":"/t.txt","date":"2024-01-01T00:00:00.000Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"title":"T","path":"/t.txt","date":"2024-01-01T00:00:00.000Z"}]`, rec.Body.String())

	svc.saveErr = errors.New("read-only filesystem")
	rec = serve(t, svc, http.MethodPost, "/api/history", `{"title":"T2","path":"/t2.txt"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCancelRequest(t *testing.T) {
	svc := &fakeService{}

	assert.Equal(t, http.StatusNoContent, serve(t, svc, http.MethodDelete, "/api/requests/req-1", "").Code)
	assert.Equal(t, []string{"req-1"}, svc.cancelled)
	assert.Equal(t, http.StatusNotFound, serve(t, svc, http.MethodDelete, "/api/requests/nope", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/history", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	NewRouter(&fakeService{}, logging.Discard(), []string{"http://localhost:5173"}).ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndDiagnostics(t *testing.T) {
	svc := &fakeService{}
	assert.Equal(t, http.StatusOK, serve(t, svc, http.MethodGet, "/healthz", "").Code)

	rec := serve(t, svc, http.MethodGet, "/api/diagnostics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"script"`)
}
