package manifest

import "fmt"

// validateRoutes normalizes every route and rejects duplicates.
func (c *Config) validateRoutes() error {
	seen := make(map[string]int, len(c.Routes))
	for i := range c.Routes {
		if err := c.Routes[i].normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		if err := c.Routes[i].validate(c.Server.APIPrefix); err != nil {
			return fmt.Errorf("route %d (%s): %w", i, c.Routes[i].Path, err)
		}
		if j, dup := seen[c.Routes[i].Path]; dup {
			return fmt.Errorf("route %d (%s): duplicate of route %d", i, c.Routes[i].Path, j)
		}
		seen[c.Routes[i].Path] = i
	}
	return nil
}
