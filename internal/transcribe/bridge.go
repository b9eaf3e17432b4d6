// Package transcribe runs the external transcription script and turns its
// output into a Result.
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"time"

	"github.com/sirupsen/logrus"

	"video-transcriber/internal/domain"
)

// JSONFlag asks the script to print a JSON status object.
const JSONFlag = "--json"

const killWaitDelay = 5 * time.Second

var (
	// ErrSpawn matches a BridgeError for an interpreter that could not start.
	ErrSpawn = errors.New("transcription process could not be started")
	// ErrTimedOut matches a BridgeError for a process killed at the deadline.
	ErrTimedOut = errors.New("transcription timed out")
	// ErrCancelled matches a BridgeError for a request cancelled by the caller.
	ErrCancelled = errors.New("transcription cancelled")
)

// Request is one transcription invocation.
type Request struct {
	URL   string
	OnLog func(log CommandLog)
}

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	Dir      string   `json:"dir"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	Duration string   `json:"duration"`
}

// BridgeError reports a request that could not produce any script output.
// Output problems are never errors; they come back as *Failure results.
type BridgeError struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	CommandLog CommandLog  `json:"commandLog"`
	Err        error       `json:"-"`
}

// Error formats bridge failures for logs and UI.
func (e *BridgeError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (cmd=%s)", e.Kind, e.Message, e.CommandLog.Command)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *BridgeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the package sentinel for e.Kind.
func (e *BridgeError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrSpawn:
		return e.Kind == FailureSpawn
	case ErrTimedOut:
		return e.Kind == FailureTimeout
	case ErrCancelled:
		return e.Kind == FailureCancelled
	}
	return false
}

// Failure converts the error into a renderable result.
func (e *BridgeError) Failure() *Failure {
	details := ""
	if e.Err != nil {
		details = e.Err.Error()
	}
	return &Failure{
		Kind:    e.Kind,
		Message: e.Message,
		Details: details,
		Raw:     e.CommandLog.Stdout,
	}
}

// AsResult maps a Transcribe return pair onto a single Result.
func AsResult(result Result, err error) Result {
	if err == nil {
		return result
	}
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Failure()
	}
	return &Failure{Kind: FailureSpawn, Message: "Transcription failed", Details: err.Error()}
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
// A non-zero exit is not an error; only start failures and context
// termination are.
func (r *execRunner) Run(ctx context.Context, dir, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = killWaitDelay
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, nil
	}
	result.ExitCode = -1
	return result, err
}

// Bridge locates the interpreter and runs the transcription script.
type Bridge struct {
	scriptDir   string
	scriptName  string
	interpreter string
	timeout     time.Duration
	goos        string
	runner      commandRunner
	stat        func(name string) (os.FileInfo, error)
	now         func() time.Time
	log         logrus.FieldLogger
}

// NewBridge constructs the production bridge from settings.
func NewBridge(settings domain.Settings, log logrus.FieldLogger) *Bridge {
	return &Bridge{
		scriptDir:   settings.ScriptDir,
		scriptName:  settings.ScriptName,
		interpreter: settings.Interpreter,
		timeout:     settings.Timeout(),
		goos:        goruntime.GOOS,
		runner:      &execRunner{},
		stat:        os.Stat,
		now:         time.Now,
		log:         log.WithField("component", "transcribe"),
	}
}

// ScriptPath returns the absolute location of the transcription script.
func (b *Bridge) ScriptPath() string {
	return filepath.Join(b.scriptDir, b.scriptName)
}

// ResolveInterpreter prefers the project venv and falls back to the system
// interpreter. It is checked on every call.
func (b *Bridge) ResolveInterpreter() string {
	venv := VenvInterpreter(b.scriptDir, b.goos)
	if _, err := b.stat(venv); err == nil {
		return venv
	}
	return b.interpreter
}

// Transcribe runs the script for url. The error is non-nil only for
// ErrSpawn, ErrTimedOut, or ErrCancelled.
func (b *Bridge) Transcribe(ctx context.Context, url string) (Result, error) {
	return b.Run(ctx, Request{URL: url})
}

// Run executes one request, reporting the command log through req.OnLog.
func (b *Bridge) Run(ctx context.Context, req Request) (Result, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	interpreter := b.ResolveInterpreter()
	args := BuildArgs(b.ScriptPath(), req.URL)
	log := b.log.WithFields(logrus.Fields{
		"url":         req.URL,
		"interpreter": interpreter,
	})
	log.Info("starting transcription")

	started := b.now()
	cmdResult, runErr := b.runner.Run(ctx, b.scriptDir, interpreter, args...)
	cmdLog := CommandLog{
		Command:  interpreter,
		Args:     args,
		Dir:      b.scriptDir,
		ExitCode: cmdResult.ExitCode,
		Stdout:   cmdResult.Stdout,
		Stderr:   cmdResult.Stderr,
		Duration: b.now().Sub(started).Round(time.Millisecond).String(),
	}
	emitLog(req.OnLog, cmdLog)

	if runErr != nil {
		bridgeErr := classifyRunError(runErr, cmdLog, b.timeout)
		log.WithError(runErr).WithField("kind", bridgeErr.Kind).Error("transcription process did not complete")
		return nil, bridgeErr
	}

	log = log.WithField("exit_code", cmdResult.ExitCode)
	result := ParseOutput(cmdResult.Stdout, cmdResult.Stderr)
	if failure, ok := result.(*Failure); ok {
		log.WithField("kind", failure.Kind).Warn(failure.String())
		return result, nil
	}
	log.Info("transcription finished")
	return result, nil
}

// classifyRunError maps runner errors onto bridge error kinds.
func classifyRunError(err error, cmdLog CommandLog, timeout time.Duration) *BridgeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg := "Transcription timed out"
		if timeout > 0 {
			msg = fmt.Sprintf("Transcription timed out after %s", timeout)
		}
		return &BridgeError{Kind: FailureTimeout, Message: msg, CommandLog: cmdLog, Err: err}
	case errors.Is(err, context.Canceled):
		return &BridgeError{Kind: FailureCancelled, Message: "Transcription cancelled", CommandLog: cmdLog, Err: err}
	default:
		return &BridgeError{
			Kind:       FailureSpawn,
			Message:    fmt.Sprintf("Could not start %s", cmdLog.Command),
			CommandLog: cmdLog,
			Err:        err,
		}
	}
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log CommandLog), log CommandLog) {
	if cb != nil {
		cb(log)
	}
}

// BuildArgs builds the script argument vector. The URL is one argument and
// never passes through a shell.
func BuildArgs(scriptPath, url string) []string {
	return []string{scriptPath, JSONFlag, url}
}

// VenvInterpreter returns the project-local interpreter path for goos.
func VenvInterpreter(scriptDir, goos string) string {
	if goos == "windows" {
		return filepath.Join(scriptDir, "venv", "Scripts", "python.exe")
	}
	return filepath.Join(scriptDir, "venv", "bin", "python")
}

// NewBridgeForTests constructs a bridge with injectable dependencies.
func NewBridgeForTests(
	settings domain.Settings,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	log logrus.FieldLogger,
) *Bridge {
	b := NewBridge(settings, log)
	b.runner = runner
	b.stat = stat
	return b
}
