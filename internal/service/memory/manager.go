package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/pkg/log"
)

var ErrEmptySession = errors.New("session id is required")

// Manager turns conversation events into memory items. It owns its config
// copy and swaps the store when the capacity changes.
type Manager struct {
	mu    sync.RWMutex
	cfg   config.MemoryConfig
	store *Store
}

func NewManager(ctx context.Context, cfg config.MemoryConfig) (*Manager, error) {
	path := cfg.SnapshotPath()
	if path != "" {
		if err := os.MkdirAll(cfg.General.PersistenceDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persistence dir: %w", err)
		}
	}

	store, err := NewStore(ctx, cfg.ShortTerm.MaxSize, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create short-term store: %w", err)
	}

	return &Manager{cfg: cfg, store: store}, nil
}

func (m *Manager) current() *Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

func (m *Manager) add(ctx context.Context, it Item) {
	// Held across Add so a capacity swap never loses a concurrent write.
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.store.Add(ctx, it)
}

func (m *Manager) StoreMessage(
	ctx context.Context,
	sessionID, userID, content, role string,
	metadata map[string]any,
) (Item, error) {
	it, err := NewMessage(sessionID, userID, content, role, WithMetadata(metadata))
	if err != nil {
		return Item{}, err
	}
	m.add(ctx, it)
	return it, nil
}

func (m *Manager) StoreSummary(
	ctx context.Context,
	sessionID, userID, content string,
	body SummaryBody,
	metadata map[string]any,
) (Item, error) {
	it, err := NewSummary(sessionID, userID, content, body, WithMetadata(metadata))
	if err != nil {
		return Item{}, err
	}
	m.add(ctx, it)
	return it, nil
}

func (m *Manager) StoreFact(
	ctx context.Context,
	sessionID, userID string,
	body FactBody,
	importance float64,
	metadata map[string]any,
) (Item, error) {
	it, err := NewFact(sessionID, userID, body, WithImportance(importance), WithMetadata(metadata))
	if err != nil {
		return Item{}, err
	}
	m.add(ctx, it)
	return it, nil
}

// GetConversationHistory returns the session's latest message items in
// chronological order. limit <= 0 means short_term.max_size.
func (m *Manager) GetConversationHistory(sessionID string, limit int) []Item {
	m.mu.RLock()
	if limit <= 0 {
		limit = m.cfg.ShortTerm.MaxSize
	}
	store := m.store
	m.mu.RUnlock()

	var messages []Item
	for _, it := range store.GetAll(sessionID) {
		if it.kind == KindMessage {
			messages = append(messages, it)
		}
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []Item{}
	}
	return messages
}

// GetFormattedHistory renders the whole cached session. limit is accepted
// for callers that already pass one and is not applied.
func (m *Manager) GetFormattedHistory(sessionID string, _ int) string {
	return m.current().FormattedText(sessionID)
}

func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.store.Clear(ctx, sessionID)
	return nil
}

func (m *Manager) ClearAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.store.Clear(ctx, "")
}

// UpdateConfig sets section.key on the manager's config. A new
// short_term.max_size rebuilds the store on the same snapshot path and
// carries over the newest items that fit.
func (m *Manager) UpdateConfig(ctx context.Context, section, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg
	if err := next.Set(section, key, value); err != nil {
		return err
	}

	if section == config.SectionShortTerm && key == config.KeyMaxSize && next.ShortTerm.MaxSize != m.store.Capacity() {
		items := m.store.GetAll("")
		store, err := restoreStore(ctx, next.ShortTerm.MaxSize, m.store.Path(), items)
		if err != nil {
			return err
		}

		log.FromCtx(ctx).Info().
			Int("from", m.store.Capacity()).
			Int("to", store.Capacity()).
			Int("kept", store.Len()).
			Msg("short-term memory resized")
		m.store = store
	}

	m.cfg = next
	return nil
}

func (m *Manager) Config() config.MemoryConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Store exposes the current short-term store for read-only inspection.
func (m *Manager) Store() *Store {
	return m.current()
}
