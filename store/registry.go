// Package store holds the registry of Backend types.
// Backend subpackages register themselves in their init functions,
// so a program chooses the types available to it by importing them.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/revs"
)

// Factory creates a Backend from a configuration map.
type Factory func(context.Context, map[string]interface{}) (revs.Backend, error)

var (
	mu       sync.Mutex
	registry = make(map[string]Factory)
)

// Register makes a Backend type available to Create under the given key.
func Register(key string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[key] = f
}

// Create creates a Backend of the type registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (revs.Backend, error) {
	mu.Lock()
	f, ok := registry[key]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend type %q (known types: %s)", key, strings.Join(Types(), ", "))
	}
	return f(ctx, conf)
}

// Types lists the registered keys in sorted order.
func Types() []string {
	mu.Lock()
	defer mu.Unlock()
	var out []string
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CreateNested creates the Backend described by the "nested" parameter of conf.
// Decorating Backends use it.
func CreateNested(ctx context.Context, conf map[string]interface{}) (revs.Backend, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	b, err := Create(ctx, nestedType, nested)
	return b, errors.Wrap(err, "creating nested backend")
}

// String returns the string parameter named key, or an error if it is missing.
func String(conf map[string]interface{}, key string) (string, error) {
	s, ok := conf[key].(string)
	if !ok {
		return "", fmt.Errorf("missing %q parameter", key)
	}
	return s, nil
}

// Int returns the integer parameter named key.
// Config files decode numbers in various ways,
// all of which are accepted.
func Int(conf map[string]interface{}, key string) (int, bool, error) {
	v, ok := conf[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case uint64:
		return int(n), true, nil
	case float64:
		if n != float64(int(n)) {
			return 0, true, fmt.Errorf("parameter %q is not an integer", key)
		}
		return int(n), true, nil
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return int(i), true, errors.Wrapf(err, "parsing parameter %q", key)
	}
	return 0, true, fmt.Errorf("parameter %q has type %T, want a number", key, v)
}
