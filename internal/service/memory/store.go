package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sandevgo/tuskmem/internal/core"
	"github.com/sandevgo/tuskmem/pkg/log"
)

// Store is a fixed-capacity FIFO of items. An empty session id addresses
// every session. With a non-empty path each mutation rewrites the snapshot.
type Store struct {
	mu       sync.RWMutex
	items    []Item
	capacity int
	path     string
}

// NewStore seeds the store from the snapshot at path, keeping the newest
// capacity items. A snapshot that cannot be read is logged and ignored.
func NewStore(ctx context.Context, capacity int, path string) (*Store, error) {
	s, err := newStore(capacity, path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return s, nil
	}

	items, err := readSnapshot(path)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("path", path).Msg("discarding unreadable memory snapshot")
		return s, nil
	}
	s.items = newest(items, capacity)

	log.FromCtx(ctx).Debug().Int("items", len(s.items)).Str("path", path).Msg("memory snapshot restored")
	return s, nil
}

// restoreStore builds a store holding the newest capacity of items and
// snapshots it right away.
func restoreStore(ctx context.Context, capacity int, path string, items []Item) (*Store, error) {
	s, err := newStore(capacity, path)
	if err != nil {
		return nil, err
	}
	s.items = newest(items, capacity)
	s.persist(ctx)
	return s, nil
}

func newStore(capacity int, path string) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("store capacity must be positive, got %d", capacity)
	}
	return &Store{
		items:    make([]Item, 0, capacity),
		capacity: capacity,
		path:     path,
	}, nil
}

func newest(items []Item, n int) []Item {
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]Item, len(items), n)
	copy(out, items)
	return out
}

func (s *Store) Capacity() int { return s.capacity }

func (s *Store) Path() string { return s.path }

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Add appends item, evicting the oldest one when full.
func (s *Store) Add(ctx context.Context, item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == s.capacity {
		copy(s.items, s.items[1:])
		s.items = s.items[:len(s.items)-1]
	}
	s.items = append(s.items, item)

	s.persist(ctx)
}

func (s *Store) GetAll(sessionID string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(sessionID)
}

// GetRecent returns at most count of the latest items, oldest first.
func (s *Store) GetRecent(count int, sessionID string) []Item {
	if count <= 0 {
		return []Item{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.filter(sessionID)
	if len(items) > count {
		items = items[len(items)-count:]
	}
	return items
}

func (s *Store) Clear(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" {
		s.items = s.items[:0]
	} else {
		kept := make([]Item, 0, s.capacity)
		for _, it := range s.items {
			if it.sessionID != sessionID {
				kept = append(kept, it)
			}
		}
		s.items = kept
	}

	s.persist(ctx)
}

// FormattedText renders message items as "User: ..." / "Assistant: ..."
// blocks separated by blank lines.
func (s *Store) FormattedText(sessionID string) string {
	var sb strings.Builder
	for _, it := range s.GetAll(sessionID) {
		switch it.kind {
		case KindMessage:
			role := "Assistant"
			if it.Role() == core.RoleHuman {
				role = "User"
			}
			sb.WriteString(role)
			sb.WriteString(": ")
			sb.WriteString(it.content)
			sb.WriteString("\n\n")
		case KindSummary, KindFact, KindMetadata:
		}
	}
	return sb.String()
}

// filter must be called with mu held.
func (s *Store) filter(sessionID string) []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if sessionID == "" || it.sessionID == sessionID {
			out = append(out, it)
		}
	}
	return out
}

// persist must be called with mu held. Failures leave memory authoritative.
func (s *Store) persist(ctx context.Context) {
	if s.path == "" {
		return
	}
	if err := writeSnapshot(s.path, s.items); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("path", s.path).Msg("failed to write memory snapshot")
	}
}
