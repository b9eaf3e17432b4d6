package config

import (
	"os"
	"path/filepath"

	"video-transcriber/internal/domain"
)

const (
	// AppDirName is the per-user application data folder name.
	AppDirName = "video-transcriber"

	defaultScriptName     = "get_transcript.py"
	defaultInterpreter    = "python3"
	defaultTimeoutSeconds = 600
	defaultLogLevel       = "info"
)

// AppDataDir returns the per-user directory holding settings and history.
func AppDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppDirName)
}

// SettingsPath returns the settings file location inside the app data dir.
func SettingsPath() string {
	return filepath.Join(AppDataDir(), "settings.json")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	scriptDir, err := os.Getwd()
	if err != nil {
		scriptDir = "."
	}
	if exe, err := os.Executable(); err == nil {
		if _, statErr := os.Stat(filepath.Join(filepath.Dir(exe), defaultScriptName)); statErr == nil {
			scriptDir = filepath.Dir(exe)
		}
	}

	return domain.Settings{
		ScriptDir:      scriptDir,
		ScriptName:     defaultScriptName,
		Interpreter:    defaultInterpreter,
		HistoryPath:    filepath.Join(AppDataDir(), "history.json"),
		TimeoutSeconds: defaultTimeoutSeconds,
		LogLevel:       defaultLogLevel,
	}
}

// Normalize fills empty fields from defaults. A negative timeout disables it.
func Normalize(settings domain.Settings) domain.Settings {
	defaults := DefaultSettings()
	if settings.ScriptDir == "" {
		settings.ScriptDir = defaults.ScriptDir
	}
	if settings.ScriptName == "" {
		settings.ScriptName = defaults.ScriptName
	}
	if settings.Interpreter == "" {
		settings.Interpreter = defaults.Interpreter
	}
	if settings.HistoryPath == "" {
		settings.HistoryPath = defaults.HistoryPath
	}
	if settings.TimeoutSeconds == 0 {
		settings.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if settings.LogLevel == "" {
		settings.LogLevel = defaults.LogLevel
	}
	return settings
}
