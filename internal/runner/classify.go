package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind categorizes an interpreter failure.
type ErrorKind string

const (
	ErrorKindName    ErrorKind = "name"
	ErrorKindType    ErrorKind = "type"
	ErrorKindSyntax  ErrorKind = "syntax"
	ErrorKindImport  ErrorKind = "import"
	ErrorKindGeneric ErrorKind = "generic"
)

// ErrorDetail is the structured classification of a failed execution.
type ErrorDetail struct {
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"message"`
	Line           int       `json:"line,omitempty"`
	MissingModules []string  `json:"missing_modules,omitempty"`
	Traceback      string    `json:"traceback,omitempty"`
}

var (
	moduleNotFoundRe = regexp.MustCompile(`ModuleNotFoundError: No module named '([^']+)'`)
	importErrorRe    = regexp.MustCompile(`ImportError: (?:No module named '?([A-Za-z0-9_.]+)'?|.+)`)
	syntaxErrorRe    = regexp.MustCompile(`(?m)^\s*(SyntaxError|IndentationError|TabError): (.*)$`)
	nameErrorRe      = regexp.MustCompile(`(?m)^\s*NameError: (.*)$`)
	typeErrorRe      = regexp.MustCompile(`(?m)^\s*TypeError: (.*)$`)
	tracebackLineRe  = regexp.MustCompile(`(?m)^\s*File "[^"]*", line (\d+)`)
)

const tracebackHeader = "Traceback (most recent call last):"

// Classify maps a non-zero exit and its stderr to a structured error.
// Returns nil for exit code zero. Unrecognized stderr still yields a generic
// detail carrying the raw text; classification never fails or drops
// information.
func Classify(exitCode int, stderr string) *ErrorDetail {
	if exitCode == 0 {
		return nil
	}

	detail := &ErrorDetail{
		Kind:    ErrorKindGeneric,
		Message: strings.TrimSpace(stderr),
	}
	if detail.Message == "" {
		detail.Message = fmt.Sprintf("script exited with code %d", exitCode)
	}
	if strings.Contains(stderr, tracebackHeader) {
		detail.Traceback = strings.TrimSpace(stderr)
	}
	if matches := tracebackLineRe.FindAllStringSubmatch(stderr, -1); len(matches) > 0 {
		// The deepest frame is the offending line.
		if n, err := strconv.Atoi(matches[len(matches)-1][1]); err == nil {
			detail.Line = n
		}
	}

	switch {
	case moduleNotFoundRe.MatchString(stderr) || strings.Contains(stderr, "ImportError:"):
		detail.Kind = ErrorKindImport
		detail.MissingModules = missingModules(stderr)
		if m := moduleNotFoundRe.FindStringSubmatch(stderr); m != nil {
			detail.Message = "No module named '" + m[1] + "'"
		} else if m := importErrorRe.FindStringSubmatch(stderr); m != nil {
			detail.Message = strings.TrimSpace(m[0])
		}
	case syntaxErrorRe.MatchString(stderr):
		m := syntaxErrorRe.FindStringSubmatch(stderr)
		detail.Kind = ErrorKindSyntax
		detail.Message = m[1] + ": " + strings.TrimSpace(m[2])
	case nameErrorRe.MatchString(stderr):
		detail.Kind = ErrorKindName
		detail.Message = "NameError: " + strings.TrimSpace(nameErrorRe.FindStringSubmatch(stderr)[1])
	case typeErrorRe.MatchString(stderr):
		detail.Kind = ErrorKindType
		detail.Message = "TypeError: " + strings.TrimSpace(typeErrorRe.FindStringSubmatch(stderr)[1])
	}

	return detail
}

func missingModules(stderr string) []string {
	var modules []string
	seen := make(map[string]bool)

	for _, m := range moduleNotFoundRe.FindAllStringSubmatch(stderr, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			modules = append(modules, m[1])
		}
	}
	for _, m := range importErrorRe.FindAllStringSubmatch(stderr, -1) {
		if m[1] != "" && !seen[m[1]] {
			seen[m[1]] = true
			modules = append(modules, m[1])
		}
	}
	return modules
}
