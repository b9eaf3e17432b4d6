package domain

import "time"

// RequestStatus tracks the lifecycle of one transcription request.
type RequestStatus string

const (
	RequestStatusRunning   RequestStatus = "running"
	RequestStatusDone      RequestStatus = "done"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusTimedOut  RequestStatus = "timed_out"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ScriptDir      string `json:"scriptDir"`
	ScriptName     string `json:"scriptName"`
	Interpreter    string `json:"interpreter"`
	HistoryPath    string `json:"historyPath"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	LogLevel       string `json:"logLevel"`
	LogFile        string `json:"logFile,omitempty"`
}

// Timeout converts TimeoutSeconds to a duration; zero or negative means no limit.
func (s Settings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Request stores identity and lifecycle status of one in-flight transcription.
type Request struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Status    RequestStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
}
