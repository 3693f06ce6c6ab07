package language

import (
	"sort"
	"sync"

	appErr "codeval/pkg/errors"
)

// Registry holds the set of supported languages. Lookups for unknown
// identifiers fail before any sandbox resource is touched.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// DefaultRegistry returns a registry preloaded with the built-in
// language set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range builtinSpecs() {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Spec) error {
	if s.ID == "" {
		return appErr.ValidationError("id", "required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[s.ID] = s
	return nil
}

// Get resolves a language identifier. Aliases resolve to their
// canonical spec.
func (r *Registry) Get(id string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := aliases[id]
	if !ok {
		canonical = id
	}
	s, ok := r.specs[canonical]
	if !ok {
		return Spec{}, appErr.Newf(appErr.UnsupportedLanguage, "unsupported language: %s", id)
	}
	return s, nil
}

// Supported reports whether the identifier resolves without error.
func (r *Registry) Supported(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// Languages lists the registered canonical identifiers, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for id := range r.specs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var aliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"node":    "javascript",
	"c++":     "cpp",
}

func builtinSpecs() []Spec {
	return []Spec{
		{
			ID:               "python",
			Name:             "Python 3",
			SourceFile:       "main.py",
			RunTpl:           "python3 {source_file}",
			Env:              []string{"PYTHONIOENCODING=utf-8", "PYTHONUNBUFFERED=1"},
			TimeMultiplier:   3,
			MemoryMultiplier: 2,
		},
		{
			ID:               "javascript",
			Name:             "Node.js",
			SourceFile:       "main.js",
			RunTpl:           "node {source_file}",
			TimeMultiplier:   3,
			MemoryMultiplier: 2,
		},
		{
			ID:               "java",
			Name:             "Java",
			SourceFile:       "Main.java",
			BinaryFile:       "Main.class",
			CompileTpl:       "javac -encoding UTF-8 {source_file}",
			RunTpl:           "java -XX:+UseSerialGC -Xss64m Main",
			TimeMultiplier:   2,
			MemoryMultiplier: 2,
		},
		{
			ID:         "cpp",
			Name:       "C++17",
			SourceFile: "main.cpp",
			BinaryFile: "main",
			CompileTpl: "g++ -O2 -pipe -std=c++17 -o {binary_file} {source_file}",
			RunTpl:     "./{binary_file}",
		},
	}
}
