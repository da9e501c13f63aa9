package script

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PythonLiteral renders a JSON-compatible value as Python source text.
//
// Values frequently arrive from a JSON decode of upstream node output, so
// booleans and nulls carry JavaScript spellings in their serialized form.
// Emitting native Python literals here is what prevents the
// "name 'true' is not defined" class of failures: the returned text must
// always be standalone valid Python that evaluates back to an equivalent
// value.
func PythonLiteral(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "None", nil
	case bool:
		if val {
			return "True", nil
		}
		return "False", nil
	case string:
		return quoteString(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			lit, err := PythonLiteral(elem)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			lit, err := PythonLiteral(val[k])
			if err != nil {
				return "", err
			}
			// Mapping keys are string literals, never identifiers.
			parts = append(parts, quoteString(k)+": "+lit)
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// quoteString emits a double-quoted Python string. Go's quoting rules
// (\n, \t, \", \\, \xNN, \uNNNN, \UNNNNNNNN) are a subset of Python's, so
// the output parses identically in both.
func quoteString(s string) string {
	return strconv.Quote(s)
}
