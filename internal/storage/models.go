package storage

import "time"

// Execution represents a stored execution record.
type Execution struct {
	ID            string     `json:"id" db:"id"`
	CodeHash      string     `json:"code_hash" db:"code_hash"`
	ExitCode      int        `json:"exit_code" db:"exit_code"`
	ErrorKind     string     `json:"error_kind,omitempty" db:"error_kind"`
	Stdout        string     `json:"stdout" db:"stdout"`
	Stderr        string     `json:"stderr" db:"stderr"`
	DurationMS    int64      `json:"duration_ms" db:"duration_ms"`
	OutputFiles   int        `json:"output_files" db:"output_files"`
	RiskyFindings int        `json:"risky_findings" db:"risky_findings"`
	TimedOut      bool       `json:"timed_out" db:"timed_out"`
	Status        string     `json:"status" db:"status"` // running, completed, timeout, error
	RequestIP     string     `json:"request_ip" db:"request_ip"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ExecutionFilter provides criteria for querying executions.
type ExecutionFilter struct {
	Status string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}
