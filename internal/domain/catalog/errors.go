package catalog

import (
	"fmt"
	"strings"
)

// UnknownProfileError indicates the requested profile is not in the catalog.
type UnknownProfileError struct {
	Name  string
	Known []string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown configuration %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// ReservedKeyError indicates a profile defines a key the generator assigns itself.
type ReservedKeyError struct {
	Profile string
	Key     string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("configuration %q must not define reserved key %q", e.Profile, e.Key)
}

// UnknownKeyError indicates a template references a key that is neither
// configured by the profile nor provided as a default.
type UnknownKeyError struct {
	Key         string
	ConfigKeys  []string
	DefaultKeys []string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf(
		"unknown substitution %s in template. Configured keys: [%s]. Default keys: [%s]",
		e.Key,
		strings.Join(e.ConfigKeys, ", "),
		strings.Join(e.DefaultKeys, ", "),
	)
}

// EmptyDefaultError indicates a computed default produced no value.
type EmptyDefaultError struct {
	Key string
}

func (e *EmptyDefaultError) Error() string {
	return fmt.Sprintf("default key %s returned no value", e.Key)
}

// CyclicDefaultError indicates defaults that reference each other in a loop.
type CyclicDefaultError struct {
	Chain []string
}

func (e *CyclicDefaultError) Error() string {
	return fmt.Sprintf("cyclic default reference: %s", strings.Join(e.Chain, " -> "))
}

// DefaultEvaluationError indicates a default expression failed to compile or run.
type DefaultEvaluationError struct {
	Cause error
	Key   string
}

func (e *DefaultEvaluationError) Error() string {
	return fmt.Sprintf("evaluating default %s: %v", e.Key, e.Cause)
}

func (e *DefaultEvaluationError) Unwrap() error {
	return e.Cause
}
