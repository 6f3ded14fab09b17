package executor

import (
	"errors"
	"regexp"
	"strings"

	"cadence/internal/correlation"
	"cadence/internal/vars"
)

// placeholderPattern matches ${name} placeholders.
var placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Resolver substitutes ${name} placeholders using the lookup precedence:
// session correlation value, then global correlation value, then the
// variable store (which itself falls back to the literal placeholder).
type Resolver struct {
	Vars         *vars.Store
	Correlations *correlation.Store
}

// ResolveString substitutes every placeholder in text. The only possible
// error is data exhaustion from the variable store, joined across
// placeholders; it must terminate the calling user context's run.
func (r *Resolver) ResolveString(text, userID string) (string, error) {
	// Fast path: nothing to substitute
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]
		if r.Correlations != nil {
			if v, ok := r.Correlations.Resolve(name, userID); ok {
				return v
			}
		}
		if r.Vars != nil {
			v, err := r.Vars.Draw(name, userID)
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return v
		}
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// ResolveMap substitutes placeholders in every value of the map.
func (r *Resolver) ResolveMap(m map[string]string, userID string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		resolved, err := r.ResolveString(v, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result[k] = resolved
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// ResolveValue substitutes placeholders recursively through the closed set
// of value shapes configuration can produce: strings, ordered lists and
// string-keyed mappings. Other scalars pass through unchanged.
func (r *Resolver) ResolveValue(value any, userID string) (any, error) {
	switch v := value.(type) {
	case string:
		return r.ResolveString(v, userID)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.ResolveValue(item, userID)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := r.ResolveValue(item, userID)
			if err != nil {
				return nil, err
			}
			result[k] = resolved
		}
		return result, nil
	default:
		return value, nil
	}
}
