package server

import (
	"sync"
	"time"

	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

type reloadInfo struct {
	At      time.Time
	Loaded  int
	Skipped []string
	Err     string
}

type state struct {
	mu         sync.RWMutex
	startedAt  time.Time
	lastReload reloadInfo
}

func (s *state) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

func (s *state) SetStartedAt(ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = ts
}

func (s *state) LastReload() reloadInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.lastReload
	out.Skipped = append([]string(nil), out.Skipped...)
	return out
}

// RecordReload stores the outcome of a registry reload. A failed reload
// keeps the previous counts.
func (s *state) RecordReload(res registry.LoadResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReload.At = time.Now()
	if err != nil {
		s.lastReload.Err = err.Error()
		return
	}
	s.lastReload = reloadInfo{
		At:      s.lastReload.At,
		Loaded:  len(res.LoadedTypes),
		Skipped: append([]string(nil), res.SkippedFiles...),
	}
}
