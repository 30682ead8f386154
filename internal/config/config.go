// Package config loads the engine configuration from an HCL file: provider
// endpoints, execution limits, server settings, and logging options. A
// missing file yields defaults so the CLI works out of the box.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/flowgrid/flowgrid/internal/provider"
)

// Config is the fully resolved engine configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	// MaxConcurrent bounds simultaneous executor invocations; zero means
	// unbounded.
	MaxConcurrent int

	Listen      string
	PostgresDSN string

	// Providers maps provider names to resolved endpoints; API keys are
	// read from the environment variable each block names, never stored in
	// the file itself.
	Providers map[string]provider.Endpoint

	// RealtimeURL is the socket server used by realtime-conversation nodes.
	RealtimeURL string
}

type fileConfig struct {
	Log       *logBlock       `hcl:"log,block"`
	Limits    *limitsBlock    `hcl:"limits,block"`
	Server    *serverBlock    `hcl:"server,block"`
	Realtime  *realtimeBlock  `hcl:"realtime,block"`
	Providers []providerBlock `hcl:"provider,block"`
}

type logBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

type limitsBlock struct {
	MaxConcurrent int `hcl:"max_concurrent,optional"`
}

type serverBlock struct {
	Listen      string `hcl:"listen,optional"`
	PostgresDSN string `hcl:"postgres_dsn,optional"`
}

type realtimeBlock struct {
	ServerURL string `hcl:"server_url,optional"`
}

type providerBlock struct {
	Name      string `hcl:"name,label"`
	BaseURL   string `hcl:"base_url"`
	APIKeyEnv string `hcl:"api_key_env,optional"`
	Model     string `hcl:"model,optional"`
	Timeout   string `hcl:"timeout,optional"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Listen:    ":8080",
		Providers: map[string]provider.Endpoint{},
	}
}

// Load reads and resolves the config file at path. A missing file is not an
// error; defaults are returned.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse decodes HCL config bytes. filename is used in diagnostics only.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &fc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", filename, diags)
	}

	cfg := Default()
	if fc.Log != nil {
		if fc.Log.Level != "" {
			cfg.LogLevel = fc.Log.Level
		}
		if fc.Log.Format != "" {
			cfg.LogFormat = fc.Log.Format
		}
	}
	if fc.Limits != nil {
		cfg.MaxConcurrent = fc.Limits.MaxConcurrent
	}
	if fc.Server != nil {
		if fc.Server.Listen != "" {
			cfg.Listen = fc.Server.Listen
		}
		cfg.PostgresDSN = fc.Server.PostgresDSN
	}
	if fc.Realtime != nil {
		cfg.RealtimeURL = fc.Realtime.ServerURL
	}

	seen := make(map[string]bool, len(fc.Providers))
	for _, p := range fc.Providers {
		ep := provider.Endpoint{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}
		if p.APIKeyEnv != "" {
			ep.APIKey = os.Getenv(p.APIKeyEnv)
		}
		if p.Timeout != "" {
			d, err := time.ParseDuration(p.Timeout)
			if err != nil {
				return nil, fmt.Errorf("provider %q: invalid timeout %q: %w", p.Name, p.Timeout, err)
			}
			ep.Timeout = d
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("provider %q declared twice", p.Name)
		}
		seen[p.Name] = true
		cfg.Providers[p.Name] = ep
	}
	return cfg, nil
}

// evalContext exposes the process environment to config expressions as
// env.NAME, so files can reference hosts and paths without hardcoding them.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
