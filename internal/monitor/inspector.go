package monitor

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// CodeInspector scans user-submitted Python code for risky constructs
// before execution. Findings are logged and counted; they never block
// a run.
type CodeInspector struct {
	patterns []InspectionPattern
}

// InspectionPattern defines a risky construct to match.
type InspectionPattern struct {
	Name        string
	Description string
	Regex       *regexp.Regexp
	Severity    Severity
}

// Severity levels for inspection findings.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Finding represents a matched risky pattern.
type Finding struct {
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
	Line     int    `json:"line,omitempty"`
}

// NewCodeInspector creates an inspector with the default pattern set.
func NewCodeInspector() *CodeInspector {
	return &CodeInspector{
		patterns: defaultInspectionPatterns(),
	}
}

// Inspect checks code for risky patterns and returns all findings.
func (c *CodeInspector) Inspect(code string) []Finding {
	var findings []Finding

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		for _, p := range c.patterns {
			if p.Regex.MatchString(line) {
				f := Finding{
					Pattern:  p.Name,
					Severity: p.Severity.String(),
					Detail:   p.Description,
					Line:     i + 1,
				}
				findings = append(findings, f)

				log.Warn().
					Str("pattern", p.Name).
					Str("severity", p.Severity.String()).
					Int("line", i+1).
					Msg("risky construct found in submitted code")
			}
		}
	}

	return findings
}

func defaultInspectionPatterns() []InspectionPattern {
	return []InspectionPattern{
		{
			Name:        "shell_command",
			Description: "Spawning shell commands via os.system or os.popen",
			Regex:       regexp.MustCompile(`os\.(system|popen|exec[lv]p?e?)\s*\(`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "subprocess_use",
			Description: "Launching subprocesses",
			Regex:       regexp.MustCompile(`subprocess\.(run|call|check_output|check_call|Popen)\s*\(`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "dynamic_eval",
			Description: "Dynamic code evaluation via eval or exec",
			Regex:       regexp.MustCompile(`\b(eval|exec|compile)\s*\(`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "native_ffi",
			Description: "Loading native libraries via ctypes or cffi",
			Regex:       regexp.MustCompile(`\b(ctypes|cffi)\b`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "pickle_load",
			Description: "Deserializing untrusted data with pickle or marshal",
			Regex:       regexp.MustCompile(`\b(pickle|marshal)\.loads?\s*\(`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "raw_socket",
			Description: "Opening raw network sockets",
			Regex:       regexp.MustCompile(`socket\.socket\s*\(`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "env_dump",
			Description: "Reading the full process environment",
			Regex:       regexp.MustCompile(`os\.environ\b(?:\s*$|[^\[])`),
			Severity:    SeverityLow,
		},
		{
			Name:        "path_escape",
			Description: "Accessing paths outside the scratch directory",
			Regex:       regexp.MustCompile(`(["'])(/etc/|/proc/|/sys/|/root/)`),
			Severity:    SeverityMedium,
		},
		{
			Name:        "interpreter_exit",
			Description: "Forcing interpreter shutdown via os._exit",
			Regex:       regexp.MustCompile(`os\._exit\s*\(`),
			Severity:    SeverityLow,
		},
		{
			Name:        "import_hook",
			Description: "Tampering with the import machinery",
			Regex:       regexp.MustCompile(`\b(importlib\.reload|__import__)\s*\(`),
			Severity:    SeverityLow,
		},
	}
}
