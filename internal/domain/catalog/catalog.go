// Package catalog contains the profile catalog domain model.
// These are pure domain types with NO infrastructure dependencies.
package catalog

import (
	"fmt"
	"sort"
)

const (
	// RandomPick is the pick value meaning "choose uniformly among all profiles".
	RandomPick = "random"

	// ReservedKey is assigned by the generator to record the chosen profile.
	// Profiles must not define it themselves.
	ReservedKey = "name"
)

// Profile is a named bundle of substitution key/value overrides.
// Values are raw scalars as decoded from the catalog document; numbers
// are wrapped in Literal.
type Profile map[string]interface{}

// Literal is a numeric scalar that remembers how it was written, so that
// "11.0" or "2.10" render as written rather than as the parsed number.
type Literal struct {
	Value interface{}
	Text  string
}

// String returns the source text.
func (l Literal) String() string {
	return l.Text
}

// Unwrap returns the parsed value of a Literal and any other value as is.
func Unwrap(v interface{}) interface{} {
	if l, ok := v.(Literal); ok {
		return l.Value
	}
	return v
}

// Catalog enumerates all profiles plus the selection and default rules.
// This is an aggregate root: Validate enforces its invariants.
//
// Invariants Enforced:
// - At least one profile exists
// - No profile defines the reserved "name" key
type Catalog struct {
	Pick     string                 `yaml:"pick"`
	Defaults map[string]interface{} `yaml:"defaults,omitempty"`
	Configs  map[string]Profile     `yaml:"configs"`
}

// Selection is the outcome of choosing a profile for one run.
type Selection struct {
	Name    string
	Profile Profile
}

// Validate checks the catalog invariants.
func (c *Catalog) Validate() error {
	if len(c.Configs) == 0 {
		return fmt.Errorf("catalog defines no configs")
	}

	for _, name := range c.ProfileNames() {
		if _, ok := c.Configs[name][ReservedKey]; ok {
			return &ReservedKeyError{Profile: name, Key: ReservedKey}
		}
	}

	return nil
}

// ProfileNames returns the profile names in sorted order.
func (c *Catalog) ProfileNames() []string {
	names := make([]string, 0, len(c.Configs))
	for name := range c.Configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Choose selects the profile for this run.
//
// An empty override falls back to the catalog's pick. A pick of RandomPick
// selects uniformly using intn, which must return a value in [0, n).
// The returned profile is a copy with ReservedKey set to the chosen name.
func (c *Catalog) Choose(override string, intn func(n int) int) (*Selection, error) {
	pick := override
	if pick == "" {
		pick = c.Pick
	}
	if pick == "" {
		return nil, fmt.Errorf("catalog has no pick and no profile was requested")
	}

	name := pick
	if pick == RandomPick {
		names := c.ProfileNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("catalog defines no configs")
		}
		name = names[intn(len(names))]
	}

	profile, ok := c.Configs[name]
	if !ok {
		return nil, &UnknownProfileError{Name: name, Known: c.ProfileNames()}
	}
	if _, ok := profile[ReservedKey]; ok {
		return nil, &ReservedKeyError{Profile: name, Key: ReservedKey}
	}

	chosen := make(Profile, len(profile)+1)
	for k, v := range profile {
		chosen[k] = v
	}
	chosen[ReservedKey] = name

	return &Selection{Name: name, Profile: chosen}, nil
}

// Keys returns the profile's keys in sorted order.
func (p Profile) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
