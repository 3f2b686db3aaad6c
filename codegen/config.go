package codegen

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the file name LoadConfig looks for by default.
const ConfigFile = "typeddoc.yml"

// DefaultImport is the import path of the typed document contract.
const DefaultImport = "github.com/hanpama/typeddoc"

// Config is the generator configuration read from typeddoc.yml.
type Config struct {
	// Schema and Documents are file patterns, see NewFileSystemDiscovery.
	Schema    []string `yaml:"schema"`
	Documents []string `yaml:"documents"`
	// Package is the name of the generated package.
	Package string `yaml:"package"`
	// Output is the generated file, relative to the config file.
	Output string `yaml:"output"`
	// Scalars maps custom scalar names to Go types written as
	// "import/path.Type" or a predeclared type name.
	Scalars map[string]string `yaml:"scalars,omitempty"`
	// Import overrides the import path of the document contract.
	Import string `yaml:"import,omitempty"`
	// Adapters emits one client function per operation.
	Adapters bool `yaml:"adapters,omitempty"`

	// directory the config was loaded from
	dir string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Schema:    []string{"*.graphqls"},
		Documents: []string{"*.graphql"},
		Package:   "graphql",
		Output:    "documents_gen.go",
		Import:    DefaultImport,
	}
}

// LoadConfig reads the config at path. A missing file yields the defaults
// rooted at the file's directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.dir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Import == "" {
		cfg.Import = DefaultImport
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the generator relies on.
func (c *Config) Validate() error {
	if !token.IsIdentifier(c.Package) {
		return fmt.Errorf("package %q is not a valid Go identifier", c.Package)
	}
	if c.Output == "" || !strings.HasSuffix(c.Output, ".go") {
		return fmt.Errorf("output %q must name a .go file", c.Output)
	}
	for name, typ := range c.Scalars {
		if _, _, err := splitGoType(typ); err != nil {
			return fmt.Errorf("scalar %s: %w", name, err)
		}
	}
	return nil
}

// Dir is the directory patterns and the output are relative to.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

// OutputPath is the generated file's location on disk.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Dir(), filepath.FromSlash(c.Output))
}

// Discovery returns a FileSystemDiscovery over the config's directory.
func (c *Config) Discovery(ctx context.Context) (*FileSystemDiscovery, error) {
	return NewFileSystemDiscovery(ctx, c.Dir(), c.Schema, c.Documents)
}

// splitGoType splits "import/path.Type" into its import path and name. A
// bare identifier has no import path.
func splitGoType(s string) (pkg, name string, err error) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		if !token.IsIdentifier(s) {
			return "", "", fmt.Errorf("invalid Go type %q", s)
		}
		return "", s, nil
	}
	pkg, name = s[:i], s[i+1:]
	if pkg == "" || !token.IsExported(name) {
		return "", "", fmt.Errorf("invalid Go type %q", s)
	}
	return pkg, name, nil
}
