package core

import (
	"bytes"
	"encoding/json"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
	"github.com/microcosm-cc/bluemonday"
)

// sanitizeJSON strips markup from every string value in raw. Object keys and
// non-string scalars pass through; numbers keep their literal form.
func sanitizeJSON(raw []byte, p *bluemonday.Policy) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return codec.JSON.Marshal(scrub(v, p))
}

func scrub(v any, p *bluemonday.Policy) any {
	switch t := v.(type) {
	case string:
		return p.Sanitize(t)
	case []any:
		for i := range t {
			t[i] = scrub(t[i], p)
		}
		return t
	case map[string]any:
		for k, x := range t {
			t[k] = scrub(x, p)
		}
		return t
	default:
		return v
	}
}
