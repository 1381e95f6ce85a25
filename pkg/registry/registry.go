// Package registry holds the resource types an API serves. Types are
// loaded from a directory of YAML files, one type per file, and can be
// reloaded at runtime.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/open-resource-api/pkg/document"
	"github.com/r9s-ai/open-resource-api/pkg/pipeline"
)

type Registry struct {
	mu       sync.RWMutex
	types    map[string]*Type
	basePath string
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*Type{}}
}

// SetBasePath sets the prefix used by default URL templates, e.g. "/api".
func (r *Registry) SetBasePath(p string) {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	r.mu.Lock()
	r.basePath = p
	r.mu.Unlock()
}

type LoadResult struct {
	LoadedTypes  []string
	SkippedFiles []string
}

var typeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func validateTypeName(name string) error {
	if !typeNamePattern.MatchString(name) {
		return fmt.Errorf("invalid type name %q, expected pattern %s", name, typeNamePattern.String())
	}
	return nil
}

func isTypeFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// ParseTypeFile reads and validates a single type file. The declared name
// must match the file name.
func ParseTypeFile(path string) (*Type, error) {
	// #nosec G304 -- type files come from a configured directory or an explicit CLI argument.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type file %q: %w", path, err)
	}
	var t Type
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse type file %q: %w", path, err)
	}
	t.Name = strings.TrimSpace(t.Name)
	expected := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if t.Name == "" {
		t.Name = expected
	}
	if t.Name != expected {
		return nil, fmt.Errorf("type file %q declares name %q, expected %q", path, t.Name, expected)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("type file %q: %w", path, err)
	}
	t.Path = path
	return &t, nil
}

// loadDir parses every type file in dir. Files that fail to parse, and
// types whose relationships point at unknown types, end up in errs keyed by
// file name.
func loadDir(dir string) (map[string]*Type, map[string]error, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil, fmt.Errorf("types dir is empty")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Type{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read types dir %q: %w", dir, err)
	}

	next := map[string]*Type{}
	errs := map[string]error{}
	for _, entry := range entries {
		if entry.IsDir() || !isTypeFile(entry.Name()) {
			continue
		}
		t, err := ParseTypeFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs[entry.Name()] = err
			continue
		}
		if _, exists := next[t.Name]; exists {
			errs[entry.Name()] = fmt.Errorf("type %q is declared more than once", t.Name)
			continue
		}
		next[t.Name] = t
	}
	pruneDangling(next, errs)
	return next, errs, nil
}

// pruneDangling drops types whose relationships target a type that is not
// loaded. Dropping one type can orphan another, so it repeats until a pass
// removes nothing.
func pruneDangling(types map[string]*Type, errs map[string]error) {
	for {
		removed := false
		for _, name := range sortedNames(types) {
			t := types[name]
			for _, rel := range t.Relationships {
				if _, ok := types[rel.Type]; ok {
					continue
				}
				errs[filepath.Base(t.Path)] = fmt.Errorf("type %q: relationship %q targets unknown type %q", name, rel.Name, rel.Type)
				delete(types, name)
				removed = true
				break
			}
		}
		if !removed {
			return
		}
	}
}

func sortedNames(types map[string]*Type) []string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReloadFromDir replaces all types with the ones found in dir. Invalid
// files are skipped and reported in the result; a missing dir yields an
// empty registry.
func (r *Registry) ReloadFromDir(dir string) (LoadResult, error) {
	next, errs, err := loadDir(dir)
	if err != nil {
		return LoadResult{}, err
	}
	res := LoadResult{LoadedTypes: make([]string, 0, len(next)), SkippedFiles: make([]string, 0, len(errs))}
	for name := range next {
		res.LoadedTypes = append(res.LoadedTypes, name)
	}
	for file := range errs {
		res.SkippedFiles = append(res.SkippedFiles, file)
	}
	sort.Strings(res.LoadedTypes)
	sort.Strings(res.SkippedFiles)

	r.mu.Lock()
	r.types = next
	r.mu.Unlock()
	return res, nil
}

// ValidateTypesDir loads dir without touching any registry and fails on
// the first invalid file.
func ValidateTypesDir(dir string) (LoadResult, error) {
	next, errs, err := loadDir(dir)
	if err != nil {
		return LoadResult{}, err
	}
	if len(errs) > 0 {
		files := make([]string, 0, len(errs))
		for f := range errs {
			files = append(files, f)
		}
		sort.Strings(files)
		return LoadResult{}, errs[files[0]]
	}
	res := LoadResult{LoadedTypes: make([]string, 0, len(next))}
	for name := range next {
		res.LoadedTypes = append(res.LoadedTypes, name)
	}
	sort.Strings(res.LoadedTypes)
	return res, nil
}

// Register adds or replaces a single type. Registered types are dropped by
// the next ReloadFromDir.
func (r *Registry) Register(t Type) error {
	t.Name = strings.TrimSpace(t.Name)
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = &t
	return nil
}

func (r *Registry) ListTypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Type returns the type named name. The returned value must not be
// modified.
func (r *Registry) Type(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Schema is Type under the name the default validator looks for.
func (r *Registry) Schema(name string) (*Type, bool) { return r.Type(name) }

func (r *Registry) HasType(name string) bool {
	_, ok := r.Type(name)
	return ok
}

// URLTemplates returns the link templates of every type: the type's own
// urls, completed with defaults under the base path.
func (r *Registry) URLTemplates() document.URLTemplates {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(document.URLTemplates, len(r.types))
	for name, t := range r.types {
		tpl := map[string]string{
			document.LinkSelf:         r.basePath + "/{type}/{id}",
			document.LinkRelationship: r.basePath + "/{type}/{id}/relationships/{relationship}",
			document.LinkRelated:      r.basePath + "/{type}/{id}/{relationship}",
		}
		for k, v := range t.URLs {
			tpl[k] = v
		}
		out[name] = tpl
	}
	return out
}

// LabelToIDs resolves label through the labels declared by typ. Labels
// that are not declared are used as plain ids.
func (r *Registry) LabelToIDs(_ context.Context, typ, label string, _ pipeline.Registry, _ any) (pipeline.IDs, error) {
	t, ok := r.Type(typ)
	if !ok {
		return pipeline.OneID(label), nil
	}
	target, ok := t.Labels[label]
	if !ok {
		return pipeline.OneID(label), nil
	}
	return target.Resolve(), nil
}
