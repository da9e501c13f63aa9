package api

import (
	"time"

	"pyrunner/internal/pipeline"
	"pyrunner/internal/result"
	"pyrunner/internal/script"
)

// RunRequest is the API-level request to generate and execute a script.
type RunRequest struct {
	Code    string               `json:"code"`
	Items   []pipeline.InputItem `json:"items,omitempty"`
	EnvVars map[string]string    `json:"env_vars,omitempty"`
	Timeout Duration             `json:"timeout,omitempty"`
	Options *script.Options      `json:"options,omitempty"` // nil = defaults
}

func (r *RunRequest) toPipeline(remoteAddr string) pipeline.Request {
	opts := script.DefaultOptions()
	if r.Options != nil {
		opts = *r.Options
	}
	return pipeline.Request{
		Code:      r.Code,
		Items:     r.Items,
		EnvVars:   r.EnvVars,
		Timeout:   r.Timeout.Duration,
		Options:   opts,
		RequestIP: remoteAddr,
	}
}

// Duration wraps time.Duration for JSON marshaling as a string like "10s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// GenerateResponse carries a composed script without executing it.
type GenerateResponse struct {
	Script string `json:"script"`
}

// ExportResponse carries the downloadable artifacts for one execution.
type ExportResponse struct {
	Files []result.Artifact `json:"files"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Interpreter bool   `json:"interpreter"`
	Database    bool   `json:"database"`
	Uptime      string `json:"uptime"`
}
