package hydrogen

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hydrogen-tpl/hydrogen/bytecode"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of an Engine.
type Config struct {
	// Autoescape HTML-escapes printed variables unless an autoescape tag or a
	// safe filter says otherwise.
	Autoescape bool `yaml:"autoescape"`

	// AllowRawCode accepts <?= expr ?> regions in template text.
	AllowRawCode bool `yaml:"allow_raw_code"`

	// PrintMissing prints {?name?} for variables missing from the context
	// instead of failing the render.
	PrintMissing bool `yaml:"print_missing"`

	// MaxDepth limits extends chains and include nesting.
	MaxDepth int `yaml:"max_depth"`

	// BaseURL prefixes the urls built by the url tag.
	BaseURL string `yaml:"base_url"`

	// Locale selects the message catalog used by the trans filter.
	Locale string `yaml:"locale"`

	// MessagesDir holds <locale>.po files.
	MessagesDir string `yaml:"messages_dir"`

	// Globals are available to every template, beneath the render context.
	Globals map[string]interface{} `yaml:"globals"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Autoescape: true,
		MaxDepth:   bytecode.DefaultMaxDepth,
	}
}

// ParseConfig reads a YAML configuration.  Settings missing from the input
// keep their default values.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg = DefaultConfig()
	var dec = yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if cfg.MaxDepth <= 0 {
		return cfg, fmt.Errorf("config: max_depth must be positive, got %d", cfg.MaxDepth)
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ParseConfig(f)
}
