package core

import (
	"encoding/json"
	"net/http"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
)

// response is the envelope for successful calls.
type response struct {
	Message any `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v. hardened output escapes <, > and & so a guest-facing
// payload cannot smuggle markup into an HTML context.
func writeJSON(w http.ResponseWriter, v any, status int, hardened bool) {
	var (
		payload []byte
		err     error
	)
	if hardened {
		payload, err = json.Marshal(v)
		w.Header().Set("X-Content-Type-Options", "nosniff")
	} else {
		payload, err = codec.JSONStrict.Marshal(v)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(errorResponse{Error: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func statusIf(s, def int) int {
	if s > 0 {
		return s
	}
	return def
}
