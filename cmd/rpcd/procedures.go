package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-rpc/pkg/core"
	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
)

// Note is the payload accepted by notes.Add.
type Note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (n Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

var errDuplicate = errors.New("duplicate title")

// notes is an in-memory store behind the demo procedures.
type notes struct {
	mu    sync.RWMutex
	items map[string]Note
}

func newNotes() *notes { return &notes{items: map[string]Note{}} }

func (s *notes) Add(_ context.Context, n Note) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[n.Title]; ok {
		return Note{}, &core.StatusError{Code: http.StatusConflict, Err: fmt.Errorf("%w: %s", errDuplicate, n.Title)}
	}
	s.items[n.Title] = n
	return n, nil
}

func (s *notes) Get(_ context.Context, title string) (Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[title]
	if !ok {
		return Note{}, &core.StatusError{Code: http.StatusNotFound, Err: fmt.Errorf("no note %q", title)}
	}
	return n, nil
}

func (s *notes) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func ping() string { return "pong" }

func sum(nums ...float64) float64 {
	var t float64
	for _, n := range nums {
		t += n
	}
	return t
}

func registerProcedures(reg *whitelist.Registry) {
	s := newNotes()
	whitelist.Register(reg, ping, whitelist.AllowGuest(), whitelist.XSSSafe(), whitelist.As("ping"))
	whitelist.Register(reg, sum, whitelist.AllowGuest(), whitelist.Methods("GET", "POST"), whitelist.As("math.sum"))
	whitelist.Register(reg, s.Add, whitelist.Methods("POST"), whitelist.As("notes.add"))
	whitelist.Register(reg, s.Get, whitelist.AllowGuest(), whitelist.Methods("GET"), whitelist.As("notes.get"))
	whitelist.Register(reg, s.Count, whitelist.AllowGuest(), whitelist.XSSSafe(), whitelist.As("notes.count"))
}
