package script

import (
	"errors"
	"testing"
)

func TestCheckSyntaxValid(t *testing.T) {
	sources := []string{
		"x = 1\n",
		"#!/usr/bin/env python3\nimport json\nprint(json.dumps({\"a\": True}))\n",
		"from __future__ import annotations\n\ndef f(x: int) -> int:\n    return x\n",
		"",
	}
	for _, src := range sources {
		if err := CheckSyntax(src); err != nil {
			t.Errorf("CheckSyntax(%q) = %v, want nil", src, err)
		}
	}
}

func TestCheckSyntaxInvalid(t *testing.T) {
	sources := []string{
		"def f(:\n    pass\n",
		"x = = 1\n",
		"if True\n    pass\n",
	}
	for _, src := range sources {
		err := CheckSyntax(src)
		if err == nil {
			t.Errorf("CheckSyntax(%q) = nil, want syntax error", src)
			continue
		}
		var syntaxErr *SyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("CheckSyntax(%q) error type %T, want *SyntaxError", src, err)
		}
	}
}

func TestCheckSyntaxReportsLocation(t *testing.T) {
	err := CheckSyntax("x = 1\ny = = 2\n")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if syntaxErr.Line != 1 {
		t.Errorf("error line = %d, want 1 (0-indexed)", syntaxErr.Line)
	}
}
