package script

import (
	"regexp"
	"testing"
)

var pyIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		key    string
		prefix string
		want   string
		ok     bool
	}{
		{"name", "var", "name", true},
		{"API_KEY", "env", "API_KEY", true},
		{"my-column", "var", "my_column", true},
		{"my column name", "var", "my_column_name", true},
		{"123", "var", "var_123", true},
		{"123abc", "var", "var_123abc", true},
		{"9lives", "env", "env_9lives", true},
		{"_private", "var", "_private", true},
		{"ümlaut", "var", "_mlaut", true},
		{"", "var", "", false},
		{"   ", "var", "", false},
		{"\t\n", "env", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := SanitizeName(tt.key, tt.prefix)
			if ok != tt.ok {
				t.Fatalf("SanitizeName(%q, %q) ok = %v, want %v", tt.key, tt.prefix, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("SanitizeName(%q, %q) = %q, want %q", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

// Regression pin: a key of only special characters joins as prefix + "_" +
// sanitized text, so "@#$%" yields "var_" followed by four underscores.
func TestSanitizeNameAllSpecialCharacters(t *testing.T) {
	got, ok := SanitizeName("@#$%", "var")
	if !ok {
		t.Fatal("SanitizeName(\"@#$%\") should produce a usable name")
	}
	if got != "var_____" {
		t.Errorf("SanitizeName(\"@#$%%\") = %q, want %q", got, "var_____")
	}
}

func TestSanitizeNameAlwaysValidIdentifier(t *testing.T) {
	keys := []string{
		"a", "Z9", "with space", "tab\there", "@#$%", "____", "-",
		"кириллица", "emoji🙂key", "dots.in.key", "a/b\\c", "0",
	}
	for _, key := range keys {
		name, ok := SanitizeName(key, "var")
		if !ok {
			continue
		}
		if !pyIdent.MatchString(name) {
			t.Errorf("SanitizeName(%q) = %q, not a valid identifier", key, name)
		}
	}
}

func TestSanitizeNameStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, _ := SanitizeName("weird key!", "var")
		if got != "weird_key_" {
			t.Fatalf("run %d: SanitizeName = %q, want %q", i, got, "weird_key_")
		}
	}
}
