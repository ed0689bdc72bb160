package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
)

const (
	DefaultAPIPrefix    = "/api/method"
	DefaultMaxBodyBytes = 1 << 20
)

// Config is the top-level manifest. Every section is optional; Validate
// fills in defaults.
type Config struct {
	Server   *Server   `toml:"server" hcl:"server,block"`
	Sanitize *Sanitize `toml:"sanitize" hcl:"sanitize,block"`
	Routes   []Route   `toml:"route" hcl:"route,block"`
}

type Server struct {
	APIPrefix    string `toml:"api_prefix" hcl:"api_prefix,optional"`
	MaxBodyBytes int64  `toml:"max_body_bytes" hcl:"max_body_bytes,optional"`
	TimeoutMS    int    `toml:"timeout_ms" hcl:"timeout_ms,optional"`
	Codec        string `toml:"codec" hcl:"codec,optional"` // "json-strict" (default) | "json"
}

// Sanitize controls cleaning of guest-supplied string arguments for
// procedures that are not registered as XSS-safe.
type Sanitize struct {
	Disabled bool `toml:"disabled" hcl:"disabled,optional"`
}

// Default is the manifest used when no file is configured.
func Default() Config {
	c := Config{}
	_ = c.Validate()
	return c
}

func (c *Config) Validate() error {
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Sanitize == nil {
		c.Sanitize = &Sanitize{}
	}
	if err := c.Server.normalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return c.validateRoutes()
}

func (s *Server) normalize() error {
	p := strings.TrimSpace(s.APIPrefix)
	if p == "" {
		p = DefaultAPIPrefix
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "/" {
		return errors.New("api_prefix cannot be the root path")
	}
	s.APIPrefix = p

	if s.MaxBodyBytes < 0 {
		return errors.New("max_body_bytes must be >= 0")
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.TimeoutMS < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	if _, ok := codec.ByName(s.Codec); !ok {
		return fmt.Errorf("codec %q unknown", s.Codec)
	}
	return nil
}

// ArgCodec is the codec used to decode procedure arguments.
func (s *Server) ArgCodec() codec.Codec {
	c, ok := codec.ByName(s.Codec)
	if !ok {
		return codec.JSONStrict
	}
	return c
}
