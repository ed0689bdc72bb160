package manifest

import (
	"errors"
	"path"
	"strings"
)

// Route publishes a whitelisted procedure under a friendly path in addition
// to the standard {api_prefix}/{name} path.
type Route struct {
	Path      string   `toml:"path" hcl:"path,label"`
	Procedure string   `toml:"procedure" hcl:"procedure"`
	TimeoutMS int      `toml:"timeout_ms" hcl:"timeout_ms,optional"`
	Guard     *Guard   `toml:"guard" hcl:"guard,block"`
	Tags      []string `toml:"tags" hcl:"tags,optional"`
}

// Guard narrows access beyond the procedure's own guest policy.
type Guard struct {
	Roles       []string `toml:"roles" hcl:"roles,optional"`
	Users       []string `toml:"users" hcl:"users,optional"`
	RequireAuth bool     `toml:"require_auth" hcl:"require_auth,optional"`
}

// reserved paths are mounted by the router itself
var reserved = map[string]struct{}{"/metrics": {}, "/ping": {}}

// normalize path/procedure
func (r *Route) normalize() error {
	r.Path = strings.TrimSpace(r.Path)
	if r.Path == "" {
		return errors.New("path is required")
	}
	if !strings.HasPrefix(r.Path, "/") {
		r.Path = "/" + r.Path
	}
	if r.Path != "/" {
		r.Path = path.Clean(r.Path)
	}
	r.Procedure = strings.TrimSpace(r.Procedure)
	if r.Guard == nil {
		r.Guard = &Guard{}
	}
	return nil
}

// validate fields that are independent of global state.
func (r *Route) validate(apiPrefix string) error {
	if r.Procedure == "" {
		return errors.New("procedure is required")
	}
	if _, ok := reserved[r.Path]; ok {
		return errors.New("path is reserved")
	}
	if r.Path == apiPrefix || strings.HasPrefix(r.Path, apiPrefix+"/") {
		return errors.New("path overlaps api_prefix")
	}
	if r.TimeoutMS < 0 {
		return errors.New("timeout_ms must be >= 0")
	}
	return nil
}
