package sandbox

import "fmt"

const (
	// DefaultMaxFileSize bounds uploaded template files (30 MiB).
	DefaultMaxFileSize = 30 * 1024 * 1024
	// DefaultMaxMemorySize bounds rendered output (250 MiB).
	DefaultMaxMemorySize = 250 * 1024 * 1024
	// DefaultMaxRangeSize bounds literal range-loop iteration counts.
	DefaultMaxRangeSize = 100000
)

func defaultRestrictedTags() map[string]struct{} {
	return setOf("macro", "include", "import", "extends", "do")
}

func defaultRestrictedAttributes() map[string]struct{} {
	return setOf(
		"request", "config", "os", "sys", "builtins",
		"eval", "exec", "getattr", "setattr", "delattr",
		"globals", "locals",
		"__class__", "__base__", "__subclasses__", "__mro__",
	)
}

func setOf(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Config holds the limits and name sets the validator enforces. It is
// populated once through New and never mutated afterwards.
type Config struct {
	maxFileSize          int
	maxMemorySize        int
	maxRangeSize         int
	restrictedTags       map[string]struct{}
	restrictedAttributes map[string]struct{}
}

// Option customises the validator configuration.
type Option func(*Config)

// WithMaxFileSize overrides the template file-size ceiling in bytes.
func WithMaxFileSize(n int) Option {
	return func(c *Config) { c.maxFileSize = n }
}

// WithMaxMemorySize overrides the post-render memory ceiling in bytes.
func WithMaxMemorySize(n int) Option {
	return func(c *Config) { c.maxMemorySize = n }
}

// WithMaxRangeSize overrides the literal loop-iteration bound.
func WithMaxRangeSize(n int) Option {
	return func(c *Config) { c.maxRangeSize = n }
}

// WithRestrictedTags replaces the forbidden tag set.
func WithRestrictedTags(tags ...string) Option {
	return func(c *Config) { c.restrictedTags = setOf(tags...) }
}

// WithRestrictedAttributes replaces the forbidden identifier set.
func WithRestrictedAttributes(names ...string) Option {
	return func(c *Config) { c.restrictedAttributes = setOf(names...) }
}

func newConfig(options ...Option) (Config, error) {
	c := Config{
		maxFileSize:          DefaultMaxFileSize,
		maxMemorySize:        DefaultMaxMemorySize,
		maxRangeSize:         DefaultMaxRangeSize,
		restrictedTags:       defaultRestrictedTags(),
		restrictedAttributes: defaultRestrictedAttributes(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&c)
	}
	if c.maxFileSize <= 0 {
		return Config{}, fmt.Errorf("sandbox: max file size must be positive, got %d", c.maxFileSize)
	}
	if c.maxMemorySize <= 0 {
		return Config{}, fmt.Errorf("sandbox: max memory size must be positive, got %d", c.maxMemorySize)
	}
	if c.maxRangeSize <= 0 {
		return Config{}, fmt.Errorf("sandbox: max range size must be positive, got %d", c.maxRangeSize)
	}
	return c, nil
}

// MaxFileSize returns the template file-size ceiling in bytes.
func (c Config) MaxFileSize() int { return c.maxFileSize }

// MaxMemorySize returns the post-render memory ceiling in bytes.
func (c Config) MaxMemorySize() int { return c.maxMemorySize }

// MaxRangeSize returns the literal loop-iteration bound.
func (c Config) MaxRangeSize() int { return c.maxRangeSize }

func (c Config) tagRestricted(tag string) bool {
	_, ok := c.restrictedTags[tag]
	return ok
}

func (c Config) attributeRestricted(name string) bool {
	_, ok := c.restrictedAttributes[name]
	return ok
}
