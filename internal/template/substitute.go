// Package template expands ${...} placeholders in configuration values and
// in the form fields sent when a simulated user registers.
package template

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// varPattern matches ${name}, ${env:VAR}, ${fake:kind} and ${fn(args)} placeholders.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars holds the per-user values a template may reference.
type Vars map[string]string

// Substitute replaces every placeholder in text.
// Resolution order: env lookups, faker kinds, built-in functions, then vars.
// All failures are joined into one error.
func Substitute(text string, vars Vars) (string, error) {
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]

		if strings.HasPrefix(name, "env:") {
			val, err := lookupEnv(name[4:])
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return val
		}

		if strings.HasPrefix(name, "fake:") {
			val, err := fake(name[5:])
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return val
		}

		if val, isFunc, err := evalFunction(name); isFunc {
			if err != nil {
				errs = append(errs, err)
				return match
			}
			return val
		}

		if val, ok := vars[name]; ok {
			return val
		}
		errs = append(errs, fmt.Errorf("variable %q not found", name))
		return match
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

// SubstituteMap applies Substitute to every value in m.
func SubstituteMap(m map[string]string, vars Vars) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]string, len(m))
	var errs []error
	for k, v := range m {
		substituted, err := Substitute(v, vars)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", k, err))
			continue
		}
		result[k] = substituted
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// ExpandEnv replaces only ${env:VAR} and ${env:VAR:-default} placeholders and
// leaves every other placeholder untouched, so it can run over a whole config
// file before per-user templates are rendered.
func ExpandEnv(text string) (string, error) {
	if !strings.Contains(text, "${env:") {
		return text, nil
	}

	var errs []error
	result := varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-1]
		if !strings.HasPrefix(name, "env:") {
			return match
		}
		val, err := lookupEnv(name[4:])
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return val
	})

	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return result, nil
}

func lookupEnv(spec string) (string, error) {
	name, def, hasDefault := strings.Cut(spec, ":-")
	if val, ok := os.LookupEnv(name); ok && val != "" {
		return val, nil
	}
	if hasDefault {
		return def, nil
	}
	return "", fmt.Errorf("env var %q not set", name)
}
