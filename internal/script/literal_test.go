package script

import (
	"strings"
	"testing"
)

func TestPythonLiteral(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"null", nil, "None"},
		{"true", true, "True"},
		{"false", false, "False"},
		{"string", "test", `"test"`},
		{"string with quotes", `say "hi"`, `"say \"hi\""`},
		{"string with newline", "a\nb", `"a\nb"`},
		{"int", 123, "123"},
		{"float", 1.5, "1.5"},
		{"whole float", float64(123), "123"},
		{"negative", -42, "-42"},
		{"array", []any{true, false}, "[True, False]"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"object", map[string]any{"flag": true, "enabled": false}, `{"enabled": False, "flag": True}`},
		{"nested", map[string]any{"a": []any{nil, "x", 1.0}}, `{"a": [None, "x", 1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PythonLiteral(tt.value)
			if err != nil {
				t.Fatalf("PythonLiteral(%v) error: %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("PythonLiteral(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// Data that round-tripped through JavaScript JSON must never leak "true",
// "false" or "null" spellings into the generated Python.
func TestPythonLiteralNoForeignBooleans(t *testing.T) {
	value := map[string]any{
		"parameters": map[string]any{
			"__rl":    true,
			"enabled": false,
			"value":   nil,
			"list":    []any{true, false, nil, "string", float64(123)},
		},
	}

	got, err := PythonLiteral(value)
	if err != nil {
		t.Fatal(err)
	}

	for _, foreign := range []string{"true", "false", "null"} {
		if containsWord(got, foreign) {
			t.Errorf("literal contains foreign spelling %q: %s", foreign, got)
		}
	}
	if !strings.Contains(got, `"__rl": True`) {
		t.Errorf("expected Python True for __rl, got %s", got)
	}
}

func TestPythonLiteralAlwaysParses(t *testing.T) {
	values := []any{
		nil,
		true,
		"quote \" backslash \\ newline \n tab \t",
		float64(1e21),
		[]any{map[string]any{"k": []any{1.5, nil, true}}},
		map[string]any{"weird key: with, punctuation": "v"},
	}

	for _, v := range values {
		lit, err := PythonLiteral(v)
		if err != nil {
			t.Fatalf("PythonLiteral(%v): %v", v, err)
		}
		if err := CheckSyntax("x = " + lit + "\n"); err != nil {
			t.Errorf("literal for %v is not valid Python: %v\n%s", v, err, lit)
		}
	}
}

func TestPythonLiteralUnsupportedType(t *testing.T) {
	if _, err := PythonLiteral(make(chan int)); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func containsWord(s, word string) bool {
	for i := 0; i+len(word) <= len(s); i++ {
		if s[i:i+len(word)] != word {
			continue
		}
		beforeOK := i == 0 || !isWordByte(s[i-1])
		afterOK := i+len(word) == len(s) || !isWordByte(s[i+len(word)])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
