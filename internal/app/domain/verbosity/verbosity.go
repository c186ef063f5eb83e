package verbosity

import (
	"fmt"
	"maps"
	"modbot/internal/app/domain"
	"modbot/internal/app/ports"
	"sync"
)

type Level string

const (
	Loud  Level = "loud"
	Quiet Level = "quiet"
)

// Store keeps the per-channel verbosity. Channels never set are loud. Every
// mutation is written through the persister before Set returns; when the write
// fails the previous value is restored.
type Store struct {
	mu        sync.RWMutex
	levels    map[string]Level
	persister ports.Persister[map[string]Level]
}

func New(persister ports.Persister[map[string]Level]) (*Store, error) {
	levels, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("load verbosity: %w", err)
	}

	s := &Store{
		levels:    make(map[string]Level, len(levels)),
		persister: persister,
	}
	for ch, lvl := range levels {
		if lvl != Loud && lvl != Quiet {
			continue
		}
		s.levels[domain.ChannelKey(ch)] = lvl
	}
	return s, nil
}

func (s *Store) Level(channel string) Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if lvl, ok := s.levels[domain.ChannelKey(channel)]; ok {
		return lvl
	}
	return Loud
}

func (s *Store) IsQuiet(channel string) bool {
	return s.Level(channel) == Quiet
}

func (s *Store) SetLoud(channel string) error {
	return s.Set(channel, Loud)
}

func (s *Store) SetQuiet(channel string) error {
	return s.Set(channel, Quiet)
}

func (s *Store) Set(channel string, level Level) error {
	if level != Loud && level != Quiet {
		return fmt.Errorf("unknown verbosity level %q", level)
	}
	key := domain.ChannelKey(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.levels[key]
	s.levels[key] = level

	if err := s.persister.Save(maps.Clone(s.levels)); err != nil {
		if existed {
			s.levels[key] = prev
		} else {
			delete(s.levels, key)
		}
		return fmt.Errorf("persist verbosity for %s: %w", key, err)
	}
	return nil
}

func (s *Store) Snapshot() map[string]Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.levels)
}
