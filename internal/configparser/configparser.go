// Package configparser loads render contexts from uploaded configuration
// files. Parsers are registered per file extension; the built-in set covers
// TOML, YAML, and CSV.
package configparser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxFileSize bounds uploaded configuration files (30 MiB).
	DefaultMaxFileSize = 30 * 1024 * 1024
	// DefaultMaxMemorySize bounds the parsed structure's estimated
	// footprint (150 MiB).
	DefaultMaxMemorySize = 150 * 1024 * 1024
	// DefaultCSVKey is the context key CSV rows are stored under.
	DefaultCSVKey = "csv_rows"
	// DefaultCSVFill replaces empty CSV cells.
	DefaultCSVFill = "#"
)

// Config holds parsing limits and CSV shaping settings.
type Config struct {
	maxFileSize   int
	maxMemorySize int
	csvKey        string
	csvFill       string
}

// Option customises parsing.
type Option func(*Config)

// WithMaxFileSize overrides the configuration file-size ceiling in bytes.
func WithMaxFileSize(n int) Option {
	return func(c *Config) { c.maxFileSize = n }
}

// WithMaxMemorySize overrides the parsed-structure memory ceiling in bytes.
func WithMaxMemorySize(n int) Option {
	return func(c *Config) { c.maxMemorySize = n }
}

// WithCSVKey overrides the context key CSV rows are stored under. An empty
// key is ignored.
func WithCSVKey(key string) Option {
	return func(c *Config) {
		if key != "" {
			c.csvKey = key
		}
	}
}

// WithCSVFill overrides the replacement for empty CSV cells.
func WithCSVFill(fill string) Option {
	return func(c *Config) { c.csvFill = fill }
}

func newParseConfig(options ...Option) Config {
	c := Config{
		maxFileSize:   DefaultMaxFileSize,
		maxMemorySize: DefaultMaxMemorySize,
		csvKey:        DefaultCSVKey,
		csvFill:       DefaultCSVFill,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&c)
	}
	return c
}

// ParseFunc turns raw file bytes into a render context.
type ParseFunc func(data []byte, config Config) (map[string]any, error)

// Registry maps file extensions to parsers. The zero value is not usable;
// construct with NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]ParseFunc
}

// NewRegistry builds a registry with the built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]ParseFunc)}
	r.Register(".toml", parseTOML)
	r.Register(".yaml", parseYAML)
	r.Register(".yml", parseYAML)
	r.Register(".csv", parseCSV)
	return r
}

// Register installs a parser for an extension, replacing any existing one.
// The extension must include the leading dot.
func (r *Registry) Register(ext string, fn ParseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[strings.ToLower(ext)] = fn
}

func (r *Registry) lookup(ext string) (ParseFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.parsers[strings.ToLower(ext)]
	return fn, ok
}

// Parse dispatches on the filename's extension and returns the render
// context the file describes. The raw bytes are bounded before parsing and
// the parsed structure is bounded after.
func (r *Registry) Parse(filename string, data []byte, options ...Option) (map[string]any, error) {
	config := newParseConfig(options...)
	if len(data) > config.maxFileSize {
		return nil, fmt.Errorf("File size exceeds the maximum limit")
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("configparser: binary content detected")
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("configparser: invalid UTF-8 bytes")
	}
	fn, ok := r.lookup(filepath.Ext(filename))
	if !ok {
		return nil, fmt.Errorf("Unsupported file type")
	}
	parsed, err := fn(data, config)
	if err != nil {
		return nil, err
	}
	if estimateSize(parsed) > config.maxMemorySize {
		return nil, fmt.Errorf("configparser: parsed structure exceeds maximum limit of %d bytes", config.maxMemorySize)
	}
	return parsed, nil
}

func parseTOML(data []byte, _ Config) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("configparser: %w", err)
	}
	return out, nil
}

// parseYAML accepts only a top-level mapping: a scalar or sequence document
// cannot serve as a render context.
func parseYAML(data []byte, _ Config) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("configparser: %w", err)
	}
	out, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("Invalid YAML file loaded.")
	}
	return out, nil
}

// estimateSize approximates the in-memory footprint of a parsed structure.
func estimateSize(v any) int {
	const wordSize = 8
	switch t := v.(type) {
	case nil:
		return wordSize
	case string:
		return len(t) + wordSize
	case []byte:
		return len(t) + wordSize
	case map[string]any:
		total := wordSize
		for key, entry := range t {
			total += len(key) + wordSize + estimateSize(entry)
		}
		return total
	case []any:
		total := wordSize
		for _, entry := range t {
			total += estimateSize(entry)
		}
		return total
	case []map[string]any:
		total := wordSize
		for _, entry := range t {
			total += estimateSize(map[string]any(entry))
		}
		return total
	default:
		return 2 * wordSize
	}
}
