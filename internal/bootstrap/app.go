package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"video-transcriber/internal/config"
	"video-transcriber/internal/diagnostics"
	"video-transcriber/internal/domain"
	"video-transcriber/internal/history"
	"video-transcriber/internal/jobs"
	"video-transcriber/internal/logging"
	"video-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	eventRequest        = "request:event"
	eventHistoryChanged = "history:changed"
)

// App wires configuration, the transcription bridge, history, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	History     historyStore
	Bridge      transcriber
	Requests    *jobs.Registry
	Diagnostics domain.DiagnosticReport
	Log         logrus.FieldLogger
	assets      fs.FS
	checker     *diagnostics.Checker
	newBridge   func(domain.Settings) transcriber

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
	stopWatch  context.CancelFunc
}

// transcriber isolates the transcription bridge behind an interface.
type transcriber interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// historyStore isolates history persistence behind an interface.
type historyStore interface {
	Get() []domain.HistoryEntry
	Save(entry domain.HistoryEntry) ([]domain.HistoryEntry, error)
	Watch(ctx context.Context, onChange func([]domain.HistoryEntry)) error
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	return NewWithSettingsPath(config.SettingsPath(), assets)
}

// NewWithSettingsPath builds the application from an explicit settings file.
// The history path is fixed for the lifetime of the process.
func NewWithSettingsPath(settingsPath string, assets fs.FS) (*App, error) {
	store := config.NewJSONStore(settingsPath)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.New(settings.LogLevel, settings.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)
	if report.HasFailures {
		logger.WithField("items", failedIDs(report)).Warn("startup diagnostics reported failures")
	}

	newBridge := func(s domain.Settings) transcriber { return transcribe.NewBridge(s, logger) }
	return &App{
		Settings:    settings,
		Store:       store,
		History:     history.NewStore(settings.HistoryPath, logger),
		Bridge:      newBridge(settings),
		Requests:    jobs.NewRegistry(),
		Diagnostics: report,
		Log:         logger,
		assets:      assets,
		checker:     checker,
		newBridge:   newBridge,
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:            "Video Transcriber",
		Width:            1200,
		Height:           800,
		MinWidth:         800,
		MinHeight:        600,
		BackgroundColour: &options.RGBA{R: 30, G: 30, B: 30, A: 255},
		AssetServer:      assetOptions,
		OnStartup:        a.Startup,
		OnShutdown:       a.Shutdown,
		Bind:             []interface{}{a},
	})
}

// Startup stores Wails runtime context and starts watching the history file.
func (a *App) Startup(ctx context.Context) {
	watchCtx, stop := context.WithCancel(ctx)

	a.mu.Lock()
	a.runtimeCtx = ctx
	a.stopWatch = stop
	a.mu.Unlock()

	err := a.History.Watch(watchCtx, func(entries []domain.HistoryEntry) {
		a.emit(eventHistoryChanged, entries)
	})
	if err != nil {
		a.logger().WithError(err).Warn("history watcher disabled")
	}
}

// Shutdown cancels running transcriptions and the history watcher.
func (a *App) Shutdown(ctx context.Context) {
	if n := a.Requests.CancelAll(); n > 0 {
		a.logger().WithField("requests", n).Info("cancelled running transcriptions on shutdown")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	a.runtimeCtx = nil
}

// TranscribeVideo runs the transcription script for url. Errors are
// returned as a Failure result so the UI always receives a tagged value.
func (a *App) TranscribeVideo(url string) transcribe.Result {
	return a.TranscribeVideoContext(context.Background(), url)
}

// TranscribeVideoContext is TranscribeVideo bound to parent. Cancelling
// parent kills the script the same way CancelTranscription does.
func (a *App) TranscribeVideoContext(parent context.Context, url string) transcribe.Result {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	req := a.Requests.Start(url, cancel)
	a.publishEvent(jobs.Event{
		RequestID: req.ID,
		Type:      jobs.EventTypeStatus,
		Status:    domain.RequestStatusRunning,
		URL:       url,
		Message:   "Transcription started",
	})

	result, err := a.transcriber().Run(ctx, transcribe.Request{
		URL: url,
		OnLog: func(log transcribe.CommandLog) {
			a.publishEvent(jobs.Event{
				RequestID: req.ID,
				Type:      jobs.EventTypeLog,
				Message:   "Command completed",
				Command:   log.Command,
				Args:      log.Args,
				ExitCode:  log.ExitCode,
				Stdout:    log.Stdout,
				Stderr:    log.Stderr,
			})
		},
	})

	final := transcribe.AsResult(result, err)
	status := requestStatus(final)
	a.Requests.Finish(req.ID, status)

	switch r := final.(type) {
	case *transcribe.Success:
		a.publishEvent(jobs.Event{
			RequestID: req.ID,
			Type:      jobs.EventTypeResult,
			Status:    status,
			URL:       url,
			Message:   r.Title,
			FilePath:  r.FilePath,
		})
	case *transcribe.Failure:
		a.publishEvent(jobs.Event{
			RequestID: req.ID,
			Type:      jobs.EventTypeError,
			Status:    status,
			URL:       url,
			Message:   r.String(),
		})
	}
	return final
}

// CancelTranscription cancels one running request by ID.
func (a *App) CancelTranscription(requestID string) error {
	if err := a.Requests.Cancel(requestID); err != nil {
		return err
	}
	a.publishEvent(jobs.Event{
		RequestID: requestID,
		Type:      jobs.EventTypeStatus,
		Status:    domain.RequestStatusCancelled,
		Message:   "Cancellation requested",
	})
	return nil
}

// ActiveRequests returns transcriptions currently in flight.
func (a *App) ActiveRequests() []domain.Request {
	return a.Requests.Active()
}

// RequestEvents returns all events with sequence greater than sinceSeq.
func (a *App) RequestEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// EventsForRequest returns the retained events of one request in publish order.
func (a *App) EventsForRequest(requestID string) []jobs.Event {
	return a.events.ForRequest(requestID)
}

// GetHistory returns the stored history, newest first.
func (a *App) GetHistory() []domain.HistoryEntry {
	return a.History.Get()
}

// SaveHistory records one entry and returns the updated, truncated list.
func (a *App) SaveHistory(entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	entries, err := a.History.Save(entry)
	if err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return entries, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes the bridge
// and diagnostics. A changed history path applies on next launch.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.newBridge != nil {
		a.Bridge = a.newBridge(normalized)
	}
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// PickScriptDirectory opens a native directory picker for the script location.
func (a *App) PickScriptDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select transcription script directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// CopyTranscript places text on the system clipboard.
func (a *App) CopyTranscript(text string) error {
	ctx, err := a.runtimeContext()
	if err != nil {
		return err
	}
	if err := wailsruntime.ClipboardSetText(ctx, text); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}

// ShowInFolder reveals a transcript file in the platform file manager.
func (a *App) ShowInFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		return fmt.Errorf("transcript path is empty")
	}

	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("resolve transcript path: %w", err)
	}

	return revealInFileManager(target)
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)
	a.emit(eventRequest, published)
}

// emit pushes an event to the webview when the runtime is up.
func (a *App) emit(name string, data interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, data)
	}
}

func (a *App) transcriber() transcriber {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Bridge
}

func (a *App) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logging.Discard()
	}
	return a.Log
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// requestStatus maps a final result onto the request lifecycle status.
func requestStatus(result transcribe.Result) domain.RequestStatus {
	failure, ok := result.(*transcribe.Failure)
	if !ok {
		return domain.RequestStatusDone
	}
	switch failure.Kind {
	case transcribe.FailureCancelled:
		return domain.RequestStatusCancelled
	case transcribe.FailureTimeout:
		return domain.RequestStatusTimedOut
	default:
		return domain.RequestStatusFailed
	}
}

// normalizeSettings trims user inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ScriptDir = strings.TrimSpace(settings.ScriptDir)
	settings.ScriptName = strings.TrimSpace(settings.ScriptName)
	settings.Interpreter = strings.TrimSpace(settings.Interpreter)
	settings.HistoryPath = strings.TrimSpace(settings.HistoryPath)
	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	settings.LogFile = strings.TrimSpace(settings.LogFile)
	return config.Normalize(settings)
}

func failedIDs(report domain.DiagnosticReport) []string {
	var ids []string
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// revealInFileManager launches the platform file explorer with path selected
// where supported, otherwise opens its directory.
func revealInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-R", path)
	case "windows":
		cmd = exec.Command("explorer", "/select,"+filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", filepath.Dir(path))
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
