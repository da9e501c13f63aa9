package script

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrGeneration marks configuration-level composition failures. These are
// surfaced before any subprocess is spawned.
var ErrGeneration = errors.New("script generation failed")

// hiddenValue replaces real values in redacted script variants.
const hiddenValue = `"***hidden***"`

const (
	scriptHeader = "#!/usr/bin/env python3\n# Auto-generated script for Python Function (pyrunner)"

	envPrefix  = "env"
	varPrefix  = "var"
	userMarker = "# User code starts here"
)

// futureImportLine matches a __future__ import statement on its own line.
// CPython requires these to be the first statements in a module, so the
// composer extracts them from the user code and re-emits them ahead of the
// generated scaffolding. Matching is purely line-based and leaves every
// other line untouched.
var futureImportLine = regexp.MustCompile(`^\s*from\s+__future__\s+import\s+.+$`)

// Compose assembles a complete runnable Python script from the user code and
// the injected data. It never fails for malformed keys (those assignments
// are dropped), only for configurations that would make a valid script
// impossible.
func Compose(userCode string, items []Item, envVars EnvVars, files []FileRef, outputDir string, opts Options) (string, error) {
	futures, body := ExtractFutureImports(userCode)

	var b strings.Builder
	b.WriteString(scriptHeader)
	b.WriteString("\n\n")

	for _, f := range futures {
		b.WriteString(f)
		b.WriteString("\n")
	}
	if len(futures) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("import json\nimport sys\n")

	if len(envVars) > 0 {
		section, err := envVarSection(envVars, opts.HideValues)
		if err != nil {
			return "", fmt.Errorf("%w: env vars: %v", ErrGeneration, err)
		}
		b.WriteString(section)
	}

	if len(items) > 0 {
		section, err := itemFieldSection(items[0], opts.HideValues)
		if err != nil {
			return "", fmt.Errorf("%w: item fields: %v", ErrGeneration, err)
		}
		b.WriteString(section)
	}

	if len(files) > 0 {
		b.WriteString("\n# Binary files from previous nodes\n")
		b.WriteString("input_files = " + fileListLiteral(files, opts.HideValues) + "\n")
	}

	if opts.IncludeInputItems || opts.IncludeEnvVarsDict {
		section, err := legacySection(items, envVars, opts)
		if err != nil {
			return "", fmt.Errorf("%w: legacy objects: %v", ErrGeneration, err)
		}
		b.WriteString(section)
	}

	if outputDir != "" {
		b.WriteString("\n# Output directory for generated files\n")
		b.WriteString("output_dir = " + quoteString(outputDir) + "\n")
	}

	b.WriteString("\n" + userMarker + "\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	text := b.String()
	if err := checkDirectivePlacement(text, futures); err != nil {
		return "", err
	}
	return text, nil
}

// ExtractFutureImports pulls __future__ import lines out of the user code,
// preserving their original order and multiplicity. Blank-line runs created
// by the removal collapse to a single blank line; all remaining lines pass
// through unchanged.
func ExtractFutureImports(code string) (directives []string, body string) {
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	removed := false

	for _, line := range lines {
		if futureImportLine.MatchString(line) {
			directives = append(directives, strings.TrimSpace(line))
			removed = true
			continue
		}
		if removed && isBlank(line) && len(kept) > 0 && isBlank(kept[len(kept)-1]) {
			continue
		}
		removed = false
		kept = append(kept, line)
	}

	return directives, strings.Join(kept, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func envVarSection(envVars EnvVars, hide bool) (string, error) {
	keys := make([]string, 0, len(envVars))
	for k := range envVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := SanitizeName(key, envPrefix)
		if !ok {
			continue
		}
		value := hiddenValue
		if !hide {
			lit, err := PythonLiteral(envVars[key])
			if err != nil {
				return "", err
			}
			value = lit
		}
		assignments = append(assignments, name+" = "+value)
	}

	if len(assignments) == 0 {
		return "", nil
	}
	return "\n# Environment variables (from credentials and system)\n" +
		strings.Join(assignments, "\n") + "\n", nil
}

// itemFieldSection binds each field of the first item as its own variable.
// Emitted after the env-var section: on a sanitized-name collision the item
// field wins by ordinary assignment order.
func itemFieldSection(first Item, hide bool) (string, error) {
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := SanitizeName(key, varPrefix)
		if !ok {
			continue
		}
		value := hiddenValue
		if !hide {
			lit, err := PythonLiteral(first[key])
			if err != nil {
				return "", err
			}
			value = lit
		}
		assignments = append(assignments, name+" = "+value)
	}

	if len(assignments) == 0 {
		return "", nil
	}
	return "\n# Individual variables from first input item\n" +
		strings.Join(assignments, "\n") + "\n", nil
}

func legacySection(items []Item, envVars EnvVars, opts Options) (string, error) {
	var parts []string

	if opts.IncludeInputItems {
		value := hiddenValue
		if !opts.HideValues {
			seq := make([]any, len(items))
			for i, item := range items {
				seq[i] = map[string]any(item)
			}
			lit, err := PythonLiteral(seq)
			if err != nil {
				return "", err
			}
			value = lit
		}
		parts = append(parts, "input_items = "+value)
	}

	if opts.IncludeEnvVarsDict {
		value := hiddenValue
		if !opts.HideValues {
			m := make(map[string]any, len(envVars))
			for k, v := range envVars {
				m[k] = v
			}
			lit, err := PythonLiteral(m)
			if err != nil {
				return "", err
			}
			value = lit
		}
		parts = append(parts, "env_vars = "+value)
	}

	if len(parts) == 0 {
		return "", nil
	}
	return "\n# Legacy compatibility objects\n" + strings.Join(parts, "\n") + "\n", nil
}

// fileListLiteral renders the input_files descriptor list with a fixed field
// order per entry. Under hide the payload fields (temp_path, base64_data)
// are replaced with the placeholder; structural metadata stays visible.
func fileListLiteral(files []FileRef, hide bool) string {
	entries := make([]string, 0, len(files))
	for _, f := range files {
		fields := []string{
			quoteString("filename") + ": " + quoteString(f.Filename),
			quoteString("mimetype") + ": " + quoteString(f.MimeType),
			quoteString("size") + ": " + fmt.Sprintf("%d", f.Size),
			quoteString("extension") + ": " + quoteString(f.Extension),
			quoteString("binary_key") + ": " + quoteString(f.BinaryKey),
			quoteString("item_index") + ": " + fmt.Sprintf("%d", f.ItemIndex),
		}
		if f.TempPath != "" {
			value := quoteString(f.TempPath)
			if hide {
				value = hiddenValue
			}
			fields = append(fields, quoteString("temp_path")+": "+value)
		}
		if f.Base64Data != "" {
			value := quoteString(f.Base64Data)
			if hide {
				value = hiddenValue
			}
			fields = append(fields, quoteString("base64_data")+": "+value)
		}
		entries = append(entries, "{"+strings.Join(fields, ", ")+"}")
	}
	return "[" + strings.Join(entries, ", ") + "]"
}

// checkDirectivePlacement verifies that every extracted __future__ directive
// landed ahead of the baseline imports. Line-based extraction makes a
// violation impossible in practice; if bookkeeping ever breaks this reports
// a generation error instead of letting the interpreter reject the script.
func checkDirectivePlacement(text string, directives []string) error {
	lines := strings.Split(text, "\n")
	baseline := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "import json" {
			baseline = i
			break
		}
	}
	if baseline < 0 {
		return fmt.Errorf("%w: baseline imports missing from composed script", ErrGeneration)
	}

	seen := 0
	for i := 0; i < baseline; i++ {
		if futureImportLine.MatchString(lines[i]) {
			seen++
		}
	}
	if seen != len(directives) {
		return fmt.Errorf("%w: %d of %d __future__ directives precede baseline imports",
			ErrGeneration, seen, len(directives))
	}
	return nil
}
