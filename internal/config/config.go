// Package config loads typegrid.hcl project files.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/jward/typegrid"
	"github.com/jward/typegrid/internal/ctxlog"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "typegrid.hcl"

// Config is a decoded project file with defaults applied.
type Config struct {
	RootSheet    string
	SubProcesses []string
	BasicTypes   []string
	Layout       typegrid.Layout
	LogLevel     string
	LogFormat    string
	Hooks        []Hook
}

// Hook is a Risor script run after each compilation. Script paths are
// resolved against the configuration file's directory.
type Hook struct {
	Name   string
	Script string
}

// hclFile is the top-level structure of a configuration file for decoding.
type hclFile struct {
	RootSheet    *string    `hcl:"root_sheet,optional"`
	SubProcesses []string   `hcl:"sub_processes,optional"`
	BasicTypes   []string   `hcl:"basic_types,optional"`
	Layout       *hclLayout `hcl:"layout,block"`
	Log          *hclLog    `hcl:"log,block"`
	Hooks        []*hclHook `hcl:"hook,block"`
}

type hclLayout struct {
	HierarchyColumns *int `hcl:"hierarchy_columns,optional"`
	NameColumn       *int `hcl:"name_column,optional"`
	TypeColumn       *int `hcl:"type_column,optional"`
	NotesColumn      *int `hcl:"notes_column,optional"`
	RootFirstRow     *int `hcl:"root_first_row,optional"`
	RefFirstRow      *int `hcl:"ref_first_row,optional"`
}

type hclLog struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type hclHook struct {
	Name   string `hcl:"name,label"`
	Script string `hcl:"script"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		RootSheet:  typegrid.DefaultRootSheet,
		BasicTypes: typegrid.DefaultBasicTypes(),
		Layout:     typegrid.DefaultLayout(),
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads the configuration file at path. A missing file yields the
// defaults; any other read, parse or validation failure is an error.
func Load(ctx context.Context, path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		ctxlog.FromContext(ctx).Debug("no configuration file, using defaults", "path", path)
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i, h := range cfg.Hooks {
		if !filepath.IsAbs(h.Script) {
			cfg.Hooks[i].Script = filepath.Join(dir, h.Script)
		}
	}
	ctxlog.FromContext(ctx).Debug("loaded configuration", "path", path, "hooks", len(cfg.Hooks))
	return cfg, nil
}

// Parse decodes HCL source. filename is used in diagnostics only.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to parse HCL file %s: %w", filename, diags)
	}

	var root hclFile
	diags = gohcl.DecodeBody(f.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := Default()
	if root.RootSheet != nil {
		cfg.RootSheet = *root.RootSheet
	}
	cfg.SubProcesses = root.SubProcesses
	if root.BasicTypes != nil {
		cfg.BasicTypes = root.BasicTypes
	}
	if l := root.Layout; l != nil {
		setInt(&cfg.Layout.HierarchyColumns, l.HierarchyColumns)
		setInt(&cfg.Layout.NameColumn, l.NameColumn)
		setInt(&cfg.Layout.TypeColumn, l.TypeColumn)
		setInt(&cfg.Layout.NotesColumn, l.NotesColumn)
		setInt(&cfg.Layout.RootFirstRow, l.RootFirstRow)
		setInt(&cfg.Layout.RefFirstRow, l.RefFirstRow)
	}
	if l := root.Log; l != nil {
		if l.Level != nil {
			cfg.LogLevel = *l.Level
		}
		if l.Format != nil {
			cfg.LogFormat = *l.Format
		}
	}
	seen := make(map[string]bool)
	for _, h := range root.Hooks {
		if seen[h.Name] {
			return nil, fmt.Errorf("config: %s: duplicate hook %q", filename, h.Name)
		}
		seen[h.Name] = true
		cfg.Hooks = append(cfg.Hooks, Hook{Name: h.Name, Script: h.Script})
	}

	if cfg.RootSheet == "" {
		return nil, fmt.Errorf("config: %s: root_sheet must not be empty", filename)
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Options translates the configuration into compiler options.
func (c *Config) Options() []typegrid.Option {
	opts := []typegrid.Option{
		typegrid.WithSubProcesses(c.SubProcesses...),
		typegrid.WithBasicTypes(c.BasicTypes...),
		typegrid.WithLayout(c.Layout),
	}
	for _, h := range c.Hooks {
		opts = append(opts, typegrid.WithHook(h.Name, h.Script))
	}
	return opts
}
