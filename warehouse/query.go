package warehouse

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches {name} template placeholders.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadQuery reads a SQL query template from disk.
func LoadQuery(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading query file: %w", err)
	}
	return string(data), nil
}

// RenderTemplate substitutes {name} placeholders with parameter values.
// Every placeholder must have a value; unused parameters are fine.
func RenderTemplate(template string, params map[string]any) (string, error) {
	missing := make(map[string]struct{})

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := params[name]
		if !ok {
			missing[name] = struct{}{}
			return match
		}
		return fmt.Sprintf("%v", value)
	})

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(names, ", "))
	}

	return rendered, nil
}

// FormatList renders strings as a quoted SQL list: 'a', 'b', 'c'.
// Embedded single quotes are doubled.
func FormatList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
