package store

import (
	"context"
	"errors"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// ErrNotFound is returned when a conversion does not exist.
var ErrNotFound = errors.New("not found")

// Store persists conversion results.
type Store interface {
	// SaveConversion inserts or replaces a conversion by session id. When
	// c.Entries is non-empty the entries are stored too.
	SaveConversion(ctx context.Context, c *models.Conversion) error
	// GetConversion returns a conversion including its playlist text but
	// without entries.
	GetConversion(ctx context.Context, sessionID string) (*models.Conversion, error)
	// ListConversions returns the most recent conversions, newest first,
	// without playlist text or entries.
	ListConversions(ctx context.Context, limit int) ([]models.Conversion, error)
	// ListEntries returns the stored entries of a conversion in playlist
	// order. It returns an empty slice when only the summary was stored.
	ListEntries(ctx context.Context, sessionID string) ([]models.Entry, error)
	// DeleteConversion removes a conversion and its entries.
	DeleteConversion(ctx context.Context, sessionID string) error
}

// DefaultListLimit and MaxListLimit bound ListConversions.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// ClampLimit applies the list defaults.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func summary(c models.Conversion) models.Conversion {
	c.Playlist = ""
	c.Entries = nil
	return c
}
