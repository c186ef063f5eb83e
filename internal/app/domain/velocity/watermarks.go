package velocity

import (
	"fmt"
	"maps"
	"modbot/internal/app/ports"
	"sync"
)

// Watermarks holds the newest follower already processed per channel id.
// Commit is the only mutator and always rewrites the whole map.
type Watermarks struct {
	mu        sync.RWMutex
	marks     map[string]ports.FollowData
	persister ports.Persister[map[string]ports.FollowData]
}

func NewWatermarks(persister ports.Persister[map[string]ports.FollowData]) (*Watermarks, error) {
	marks, err := persister.Load()
	if err != nil {
		return nil, fmt.Errorf("load watermarks: %w", err)
	}
	if marks == nil {
		marks = make(map[string]ports.FollowData)
	}

	return &Watermarks{
		marks:     marks,
		persister: persister,
	}, nil
}

func (w *Watermarks) Get(channelID string) (ports.FollowData, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	fd, ok := w.marks[channelID]
	return fd, ok
}

func (w *Watermarks) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.marks)
}

func (w *Watermarks) Snapshot() map[string]ports.FollowData {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return maps.Clone(w.marks)
}

// Commit applies updates that move a channel's watermark forward, persists
// the full map and only then makes it visible. On a failed write the
// in-memory map is left untouched.
func (w *Watermarks) Commit(updates map[string]ports.FollowData) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := maps.Clone(w.marks)
	changed := false
	for id, fd := range updates {
		if cur, ok := next[id]; ok && !fd.FollowedAt.After(cur.FollowedAt) {
			continue
		}
		next[id] = fd
		changed = true
	}
	if !changed {
		return nil
	}

	if err := w.persister.Save(next); err != nil {
		return fmt.Errorf("persist watermarks: %w", err)
	}
	w.marks = next
	return nil
}
