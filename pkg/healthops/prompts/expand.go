package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholder matches ${name}; names are identifiers.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// MissingVariableError is returned when a template references variables
// that were not supplied.
type MissingVariableError struct {
	Template string
	Names    []string
}

func (e *MissingVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("prompt %s: undefined variable: %s", e.Template, e.Names[0])
	}
	return fmt.Sprintf("prompt %s: undefined variables: %s", e.Template, strings.Join(e.Names, ", "))
}

// expand substitutes every ${name} in text. Values are formatted with %v.
// Every missing name is collected and reported once, in order of first use.
func expand(name, text string, vars map[string]any) (string, error) {
	var missing []string
	seen := make(map[string]bool)

	out := placeholder.ReplaceAllStringFunc(text, func(match string) string {
		key := match[2 : len(match)-1]
		if v, ok := vars[key]; ok {
			return fmt.Sprintf("%v", v)
		}
		if !seen[key] {
			seen[key] = true
			missing = append(missing, key)
		}
		return match
	})

	if len(missing) > 0 {
		return "", &MissingVariableError{Template: name, Names: missing}
	}
	return out, nil
}

// Variables lists the distinct placeholder names in text, sorted.
func Variables(text string) []string {
	set := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		set[m[1]] = true
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
