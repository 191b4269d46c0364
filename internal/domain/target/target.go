package target

import "fmt"

// Target is a routable retrieval index with a description of the questions it answers.
type Target struct {
	Name        string
	Description string
}

// Set is an ordered, immutable collection of uniquely named targets.
type Set struct {
	targets []Target
	byName  map[string]int
}

// NewSet validates and creates a Set. Names must be non-empty and unique.
func NewSet(targets ...Target) (Set, error) {
	if len(targets) == 0 {
		return Set{}, fmt.Errorf("at least one target is required")
	}
	byName := make(map[string]int, len(targets))
	out := make([]Target, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			return Set{}, fmt.Errorf("target %d: name is required", i)
		}
		if _, dup := byName[t.Name]; dup {
			return Set{}, fmt.Errorf("duplicate target name %q", t.Name)
		}
		byName[t.Name] = i
		out[i] = t
	}
	return Set{targets: out, byName: byName}, nil
}

// All returns the targets in configuration order.
func (s Set) All() []Target {
	out := make([]Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// Names returns the target names in configuration order.
func (s Set) Names() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a target by exact name.
func (s Set) Lookup(name string) (Target, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Target{}, false
	}
	return s.targets[i], true
}

// Len returns the number of targets.
func (s Set) Len() int { return len(s.targets) }
