package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"video-transcriber/internal/domain"
	"video-transcriber/internal/transcribe"
)

// Checker validates the interpreter, the script, and the history location.
type Checker struct {
	goos       string
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		goos:       goruntime.GOOS,
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkInterpreter(settings.ScriptDir, settings.Interpreter),
		c.checkScript(filepath.Join(settings.ScriptDir, settings.ScriptName)),
		c.checkHistoryDir(filepath.Dir(settings.HistoryPath)),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkInterpreter mirrors the bridge's resolution: venv first, then PATH.
func (c *Checker) checkInterpreter(scriptDir, interpreter string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticInterpreter,
		Name: "Python interpreter",
	}

	venv := transcribe.VenvInterpreter(scriptDir, c.goos)
	if _, err := c.stat(venv); err == nil {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Using project venv: %s", venv)
		return item
	}

	path, err := c.lookPath(interpreter)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Interpreter not found: %s", interpreter)
		item.Hint = "Install Python 3 or create a venv next to the transcription script."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using system interpreter: %s", path)
	return item
}

// checkScript verifies the transcription script file exists.
func (c *Checker) checkScript(scriptPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticScript,
		Name: "Transcription script",
	}

	info, err := c.stat(scriptPath)
	switch {
	case err != nil && errors.Is(err, os.ErrNotExist):
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Script does not exist: %s", scriptPath)
		item.Hint = "Set the script directory in settings to the folder containing the script."
	case err != nil:
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot access script: %s", scriptPath)
		item.Hint = "Check permissions for the script directory."
	case info.IsDir():
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Script path is a directory: %s", scriptPath)
		item.Hint = "Point the script name at a file."
	default:
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Script found: %s", scriptPath)
	}
	return item
}

// checkHistoryDir validates history directory existence and write access.
func (c *Checker) checkHistoryDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   domain.DiagnosticHistoryDir,
		Name: "History directory",
	}

	if strings.TrimSpace(dir) == "" || dir == "." {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "History path is empty."
		item.Hint = "Set a history file path in settings."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create history directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("History directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory for the history file."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	goos string,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		goos:       goos,
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
