package llm

import (
	"fmt"
	"sort"
	"strings"
)

// constructors maps invoker names to their constructors.
// Invokers register themselves via Register.
var constructors = make(map[string]func(Config) Invoker)

// Register registers an invoker constructor by name.
func Register(name string, constructor func(Config) Invoker) {
	constructors[strings.ToLower(name)] = constructor
}

// New creates an invoker by name.
func New(name string, cfg Config) (Invoker, error) {
	constructor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown invoker: %s (supported: %s)", name, strings.Join(Available(), ", "))
	}
	return constructor(cfg), nil
}

// Available returns the registered invoker names, sorted.
func Available() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
