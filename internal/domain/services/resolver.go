// Package services contains domain services that encapsulate business logic
// spanning multiple entities: key resolution and template rendering.
package services

import (
	"fmt"
	"os"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/scala-isabelle/devscripts/internal/domain/catalog"
)

// BaseRevisionKey is the built-in default holding the current head revision.
const BaseRevisionKey = "baserevision"

// maxASTNodes limits default expression complexity.
const maxASTNodes = 200

// SourceKind identifies where a key's value comes from.
type SourceKind int

const (
	// SourceUnknown means no profile value and no default exist.
	SourceUnknown SourceKind = iota
	// SourceProfile is a value set by the chosen profile.
	SourceProfile
	// SourceDefaultLiteral is a non-string catalog default used as is.
	SourceDefaultLiteral
	// SourceDefaultExpression is a catalog default evaluated as an expression.
	SourceDefaultExpression
	// SourceBuiltin is a default computed by Go code.
	SourceBuiltin
)

func (k SourceKind) String() string {
	switch k {
	case SourceProfile:
		return "profile"
	case SourceDefaultLiteral:
		return "default-literal"
	case SourceDefaultExpression:
		return "default-expression"
	case SourceBuiltin:
		return "builtin"
	default:
		return "unknown"
	}
}

// BuiltinDefault computes a default value with no inputs.
type BuiltinDefault func() (string, error)

// Binding is the result of looking up a key, tagged by its source.
type Binding struct {
	Value      interface{}
	Builtin    BuiltinDefault
	Expression string
	Kind       SourceKind
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithGetenv replaces the environment lookup used by the env() expression function.
func WithGetenv(getenv func(string) string) ResolverOption {
	return func(r *Resolver) {
		r.getenv = getenv
	}
}

// Resolver resolves substitution keys for one generation run.
//
// Priority: profile value > catalog default > built-in default.
// Defaults are evaluated lazily and memoized; profile values are not.
// A default that (transitively) references itself is reported as a
// CyclicDefaultError instead of recursing forever.
type Resolver struct {
	profile  catalog.Profile
	defaults map[string]interface{}
	builtins map[string]BuiltinDefault
	getenv   func(string) string
	resolved map[string]string
	active   []string
}

// NewResolver creates a resolver over the chosen profile and the defaults.
func NewResolver(
	profile catalog.Profile,
	defaults map[string]interface{},
	builtins map[string]BuiltinDefault,
	opts ...ResolverOption,
) *Resolver {
	r := &Resolver{
		profile:  profile,
		defaults: defaults,
		builtins: builtins,
		getenv:   os.Getenv,
		resolved: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup finds where key is defined without evaluating anything.
func (r *Resolver) Lookup(key string) Binding {
	if v, ok := r.profile[key]; ok {
		return Binding{Kind: SourceProfile, Value: v}
	}
	if v, ok := r.defaults[key]; ok {
		if code, isString := v.(string); isString {
			return Binding{Kind: SourceDefaultExpression, Expression: code}
		}
		return Binding{Kind: SourceDefaultLiteral, Value: v}
	}
	if fn, ok := r.builtins[key]; ok {
		return Binding{Kind: SourceBuiltin, Builtin: fn}
	}
	return Binding{Kind: SourceUnknown}
}

// Get returns the string value of key.
func (r *Resolver) Get(key string) (string, error) {
	binding := r.Lookup(key)

	switch binding.Kind {
	case SourceProfile:
		return stringify(binding.Value), nil
	case SourceUnknown:
		return "", &catalog.UnknownKeyError{
			Key:         key,
			ConfigKeys:  r.profile.Keys(),
			DefaultKeys: r.defaultKeys(),
		}
	}

	if value, ok := r.resolved[key]; ok {
		return value, nil
	}

	if i := slices.Index(r.active, key); i >= 0 {
		chain := append(slices.Clone(r.active[i:]), key)
		return "", &catalog.CyclicDefaultError{Chain: chain}
	}
	r.active = append(r.active, key)
	defer func() {
		r.active = r.active[:len(r.active)-1]
	}()

	var (
		value string
		err   error
	)
	switch binding.Kind {
	case SourceDefaultLiteral:
		if binding.Value == nil {
			return "", &catalog.EmptyDefaultError{Key: key}
		}
		value = stringify(binding.Value)
	case SourceDefaultExpression:
		value, err = r.evaluate(key, binding.Expression)
	case SourceBuiltin:
		value, err = binding.Builtin()
		if err != nil {
			err = &catalog.DefaultEvaluationError{Key: key, Cause: err}
		} else if value == "" {
			err = &catalog.EmptyDefaultError{Key: key}
		}
	}
	if err != nil {
		return "", err
	}

	r.resolved[key] = value
	return value, nil
}

// evaluate runs a default expression with the profile entries as variables
// and get()/env() as functions.
func (r *Resolver) evaluate(key, code string) (string, error) {
	env := make(map[string]interface{}, len(r.profile))
	for k, v := range r.profile {
		if k == "get" || k == "env" {
			continue
		}
		env[k] = catalog.Unwrap(v)
	}

	// Errors raised by nested get() calls keep their type through expr.
	var nestedErr error

	program, err := expr.Compile(code,
		expr.Env(env),
		expr.MaxNodes(maxASTNodes),
		expr.Function("get", func(params ...interface{}) (interface{}, error) {
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("get: argument must be a string")
			}
			value, err := r.Get(name)
			if err != nil {
				nestedErr = err
				return nil, err
			}
			return value, nil
		}, new(func(string) string)),
		expr.Function("env", func(params ...interface{}) (interface{}, error) {
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("env: argument must be a string")
			}
			return r.getenv(name), nil
		}, new(func(string) string)),
	)
	if err != nil {
		return "", &catalog.DefaultEvaluationError{Key: key, Cause: err}
	}

	output, err := expr.Run(program, env)
	if err != nil {
		if nestedErr != nil {
			return "", nestedErr
		}
		return "", &catalog.DefaultEvaluationError{Key: key, Cause: err}
	}

	if output == nil {
		return "", &catalog.EmptyDefaultError{Key: key}
	}
	value := stringify(output)
	if value == "" {
		return "", &catalog.EmptyDefaultError{Key: key}
	}
	return value, nil
}

func (r *Resolver) defaultKeys() []string {
	keys := make([]string, 0, len(r.defaults)+len(r.builtins))
	for k := range r.defaults {
		keys = append(keys, k)
	}
	for k := range r.builtins {
		if _, ok := r.defaults[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
