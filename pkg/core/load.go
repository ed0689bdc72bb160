package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	manifest "github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
)

// LoadConfig reads a manifest. Files ending in .hcl are HCL with the process
// environment available as env.NAME; anything else is TOML.
func LoadConfig(path string) (manifest.Config, error) {
	var cfg manifest.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		if err := hclsimple.DecodeFile(path, envContext(), &cfg); err != nil {
			return manifest.Config{}, err
		}
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return manifest.Config{}, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return manifest.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault is LoadConfig, except a missing file yields
// manifest.Default().
func LoadConfigOrDefault(path string) (manifest.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return manifest.Default(), nil
	}
	return LoadConfig(path)
}

func envContext() *hcl.EvalContext {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}
