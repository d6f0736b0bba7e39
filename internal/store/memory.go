package store

import (
	"context"
	"sort"
	"sync"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// Memory is an in-process Store used when no database is configured.
// Contents are lost on restart.
type Memory struct {
	mu          sync.RWMutex
	conversions map[string]models.Conversion
	entries     map[string][]models.Entry
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		conversions: make(map[string]models.Conversion),
		entries:     make(map[string][]models.Entry),
	}
}

func (m *Memory) SaveConversion(_ context.Context, c *models.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *c
	stored.Entries = nil
	m.conversions[c.SessionID] = stored
	if len(c.Entries) > 0 {
		m.entries[c.SessionID] = append([]models.Entry(nil), c.Entries...)
	} else {
		delete(m.entries, c.SessionID)
	}
	return nil
}

func (m *Memory) GetConversion(_ context.Context, sessionID string) (*models.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListConversions(_ context.Context, limit int) ([]models.Conversion, error) {
	m.mu.RLock()
	out := make([]models.Conversion, 0, len(m.conversions))
	for _, c := range m.conversions {
		out = append(out, summary(c))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListEntries(_ context.Context, sessionID string) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.conversions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	return append([]models.Entry{}, m.entries[sessionID]...), nil
}

func (m *Memory) DeleteConversion(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.conversions, sessionID)
	delete(m.entries, sessionID)
	return nil
}
