package resolver

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Resolver renders host-style expressions in task property values before the
// task runs. Supported forms:
//
//	{{ secret('NAME') }}  — named secret lookup
//	{{ env('NAME') }}     — environment variable lookup
//	{{ vars.key }}        — caller-supplied variable
//
// A task never sees an unresolved expression: unknown names are errors.

var (
	// callPattern matches secret('NAME') and env('NAME') expressions
	callPattern = regexp.MustCompile(`\{\{\s*(secret|env)\(\s*'([^']*)'\s*\)\s*\}\}`)
	// varsPattern matches vars.key expressions
	varsPattern = regexp.MustCompile(`\{\{\s*vars\.([A-Za-z0-9_.-]+)\s*\}\}`)
)

// Secrets provides named secret lookup. Consumers depend on this interface
// rather than a concrete store so they remain testable.
type Secrets interface {
	Secret(name string) (string, bool)
}

// EnvSecrets resolves secrets from the process environment, standing in for
// a workflow host's secret store.
type EnvSecrets struct{}

func (EnvSecrets) Secret(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Resolver substitutes expressions against a secret source and a variable map.
type Resolver struct {
	secrets Secrets
	vars    map[string]string
}

// New creates a Resolver. A nil secrets source falls back to EnvSecrets.
func New(secrets Secrets, vars map[string]string) *Resolver {
	if secrets == nil {
		secrets = EnvSecrets{}
	}
	return &Resolver{secrets: secrets, vars: vars}
}

// Resolve renders every expression in s. Literal text passes through
// untouched; the first unresolvable expression aborts with an error.
func (r *Resolver) Resolve(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var resolveErr error

	out := callPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := callPattern.FindStringSubmatch(match)
		fn, name := parts[1], parts[2]

		if fn == "secret" {
			if v, ok := r.secrets.Secret(name); ok {
				return v
			}
			if resolveErr == nil {
				resolveErr = fmt.Errorf("secret %q is not defined", name)
			}
			return match
		}

		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if resolveErr == nil {
			resolveErr = fmt.Errorf("environment variable %q is not set", name)
		}
		return match
	})

	out = varsPattern.ReplaceAllStringFunc(out, func(match string) string {
		parts := varsPattern.FindStringSubmatch(match)
		if v, ok := r.vars[parts[1]]; ok {
			return v
		}
		if resolveErr == nil {
			resolveErr = fmt.Errorf("variable %q is not defined", parts[1])
		}
		return match
	})

	if resolveErr != nil {
		return "", resolveErr
	}

	return out, nil
}
