// Package source resolves named data sources into fieldlists.
//
// A Source is anything that can produce a FieldList: a local file, a URL, an
// S3 object, an in-memory list or a one-shot reader. Sources are created
// either through typed constructors (NewFile, NewURL, ...) or by name through
// the registry, which also accepts runtime-registered plugins. Built-in names
// always win over plugins; an unknown name fails with errs.ErrUnknownSource.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/fieldlist"
)

var log = logrus.WithField("component", "source")

// Source produces a fieldlist. Implementations that read remote data honor
// ctx for cancellation; local implementations ignore it.
type Source interface {
	FieldList(ctx context.Context) (*fieldlist.FieldList, error)
}

// Args carries the string-keyed arguments of a registry lookup. Each built-in
// documents the keys it understands.
type Args map[string]any

// Factory builds a source from registry arguments.
type Factory func(cfg *config.Config, args Args) (Source, error)

var (
	registryMu sync.RWMutex
	plugins    = map[string]Factory{}
)

// builtins is fixed at init and consulted before plugins, so a plugin can
// never shadow a built-in name.
var builtins = map[string]Factory{
	"file":   fileFactory,
	"url":    urlFactory,
	"stream": streamFactory,
	"memory": memoryFactory,
	"s3":     s3Factory,
	"sample": sampleFactory,
}

// Register adds a plugin factory under name. Registering a built-in name is
// allowed but has no effect on lookups.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	plugins[name] = factory
}

// Names returns the resolvable source names, built-ins and plugins, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]struct{}, len(builtins)+len(plugins))
	names := make([]string, 0, len(builtins)+len(plugins))
	for name := range builtins {
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for name := range plugins {
		if _, dup := seen[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}

// New resolves name through the registry and builds the source.
func New(cfg *config.Config, name string, args Args) (Source, error) {
	if factory, ok := builtins[name]; ok {
		return factory(cfg, args)
	}

	registryMu.RLock()
	factory, ok := plugins[name]
	registryMu.RUnlock()
	if ok {
		return factory(cfg, args)
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrUnknownSource, name)
}

// stringArg reads a required string argument.
func stringArg(args Args, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("source argument %q is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("source argument %q: want string, got %T", key, v)
	}

	return s, nil
}

// stringsArg reads an argument that may be a string or a []string.
func stringsArg(args Args, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("source argument %q is required", key)
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	default:
		return nil, fmt.Errorf("source argument %q: want string or []string, got %T", key, v)
	}
}
