package core

import (
	"os"
	"path/filepath"
	"testing"

	manifest "github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig_TOML(t *testing.T) {
	p := writeFile(t, "rpc.toml", `
[server]
api_prefix = "/rpc"
timeout_ms = 500

[[route]]
path = "hello"
procedure = "greet"
[route.guard]
roles = ["editor"]
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "/rpc", cfg.Server.APIPrefix)
	require.Equal(t, 500, cfg.Server.TimeoutMS)
	require.EqualValues(t, manifest.DefaultMaxBodyBytes, cfg.Server.MaxBodyBytes)
	require.Len(t, cfg.Routes, 1)
	require.Equal(t, "/hello", cfg.Routes[0].Path)
	require.Equal(t, []string{"editor"}, cfg.Routes[0].Guard.Roles)
}

func TestLoadConfig_HCLWithEnv(t *testing.T) {
	t.Setenv("RPC_GREET_PROC", "greet")
	p := writeFile(t, "rpc.hcl", `
server {
  max_body_bytes = 2048
  codec          = "json"
}

sanitize {
  disabled = true
}

route "/hello" {
  procedure = env.RPC_GREET_PROC
  guard {
    require_auth = true
  }
}
`)
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, manifest.DefaultAPIPrefix, cfg.Server.APIPrefix)
	require.EqualValues(t, 2048, cfg.Server.MaxBodyBytes)
	require.True(t, cfg.Sanitize.Disabled)
	require.Len(t, cfg.Routes, 1)
	require.Equal(t, "greet", cfg.Routes[0].Procedure)
	require.True(t, cfg.Routes[0].Guard.RequireAuth)
}

func TestLoadConfig_Invalid(t *testing.T) {
	p := writeFile(t, "bad.toml", `
[[route]]
path = "/metrics"
procedure = "greet"
`)
	_, err := LoadConfig(p)
	require.ErrorContains(t, err, "reserved")
}

func TestLoadConfigOrDefault_Missing(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.Equal(t, manifest.DefaultAPIPrefix, cfg.Server.APIPrefix)
	require.Empty(t, cfg.Routes)
}
