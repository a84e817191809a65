package browserflow

import (
	"sort"
	"strings"
)

// SubstituteTask rewrites originalTask by replacing every occurrence of each
// extracted parameter's default value with the caller-supplied replacement.
// Replacement is a literal (non-regex) substring substitution.
//
// Only the recognized parameter names are handled; an unrecognized name in
// newValues is silently ignored, as is a name with no extracted original.
// When old values overlap as substrings, replacements are applied
// longest-old-value-first with ties broken by name, so the outcome is
// deterministic. An empty old value is a no-op.
func SubstituteTask(originalTask string, newValues ParameterValues, originalParams ParameterSet) string {
	type replacement struct {
		name     string
		oldValue string
		newValue string
	}

	var replacements []replacement
	for _, param := range originalParams {
		if param.Name != ParamWebsite && param.Name != ParamSearchTerm {
			continue
		}
		newValue, ok := newValues[param.Name]
		if !ok {
			continue
		}
		replacements = append(replacements, replacement{
			name:     param.Name,
			oldValue: param.DefaultValue,
			newValue: newValue,
		})
	}

	sort.SliceStable(replacements, func(i, j int) bool {
		if len(replacements[i].oldValue) != len(replacements[j].oldValue) {
			return len(replacements[i].oldValue) > len(replacements[j].oldValue)
		}
		return replacements[i].name < replacements[j].name
	})

	result := originalTask
	for _, r := range replacements {
		if r.oldValue == "" {
			continue
		}
		result = strings.ReplaceAll(result, r.oldValue, r.newValue)
	}
	return result
}
