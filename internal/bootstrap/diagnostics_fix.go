package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"video-transcriber/internal/config"
	"video-transcriber/internal/domain"
	"video-transcriber/internal/transcribe"
)

const (
	requirementsFile      = "requirements.txt"
	installCommandTimeout = 15 * time.Minute
)

// commandFunc runs one external command; replaced in tests.
type commandFunc func(name string, args ...string) error

// InstallOrFixDiagnostic applies a remediation for one failed diagnostic item.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	settingsChanged := false
	var fixErr error

	switch id {
	case domain.DiagnosticInterpreter:
		fixErr = createVenv(settings, runCommand)
	case domain.DiagnosticScript:
		fixErr = fmt.Errorf("script %s cannot be installed automatically; choose its directory in settings",
			filepath.Join(settings.ScriptDir, settings.ScriptName))
	case domain.DiagnosticHistoryDir:
		settings, settingsChanged, fixErr = installOrFixHistoryDir(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		a.logger().WithError(fixErr).WithField("item", id).Warn("diagnostic fix failed")
		return report, fixErr
	}
	return report, nil
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// createVenv builds <ScriptDir>/venv with the system interpreter and installs
// requirements.txt into it when present.
func createVenv(settings domain.Settings, run commandFunc) error {
	if strings.TrimSpace(settings.ScriptDir) == "" {
		return fmt.Errorf("script directory is not configured")
	}

	venvDir := filepath.Join(settings.ScriptDir, "venv")
	if err := run(settings.Interpreter, "-m", "venv", venvDir); err != nil {
		return fmt.Errorf("create venv: %w", err)
	}

	venvPython := transcribe.VenvInterpreter(settings.ScriptDir, goruntime.GOOS)
	requirements := filepath.Join(settings.ScriptDir, requirementsFile)
	if _, err := os.Stat(requirements); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("check %s: %w", requirementsFile, err)
	}

	if err := run(venvPython, "-m", "pip", "install", "-r", requirements); err != nil {
		return fmt.Errorf("install requirements: %w", err)
	}
	return nil
}

func installOrFixHistoryDir(settings domain.Settings) (domain.Settings, bool, error) {
	historyPath := strings.TrimSpace(settings.HistoryPath)
	changed := false
	if historyPath == "" {
		historyPath = config.DefaultSettings().HistoryPath
		settings.HistoryPath = historyPath
		changed = true
	}

	dir := filepath.Dir(historyPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return settings, changed, fmt.Errorf("create history directory %s: %w", dir, err)
	}

	return settings, changed, nil
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", formatCommand(name, args), installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", formatCommand(name, args), err)
	}
	return fmt.Errorf("%s failed: %w (%s)", formatCommand(name, args), err, trimmed)
}

func formatCommand(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
