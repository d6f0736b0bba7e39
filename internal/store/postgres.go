package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// SaveConversion upserts the conversion row and replaces its items.
func (p *Postgres) SaveConversion(ctx context.Context, c *models.Conversion) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("SaveConversion: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO conversions (session_id, portal_url, mac_address, mode,
		   channel_count, movie_count, series_count, total_count, m3u_content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO UPDATE SET
		   portal_url = EXCLUDED.portal_url, mac_address = EXCLUDED.mac_address, mode = EXCLUDED.mode,
		   channel_count = EXCLUDED.channel_count, movie_count = EXCLUDED.movie_count,
		   series_count = EXCLUDED.series_count, total_count = EXCLUDED.total_count,
		   m3u_content = EXCLUDED.m3u_content, created_at = EXCLUDED.created_at`,
		c.SessionID, c.PortalURL, c.MACAddress, string(c.Mode),
		c.ChannelCount, c.MovieCount, c.SeriesCount, c.TotalCount, c.Playlist, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveConversion: upsert: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM conversion_items WHERE session_id = $1`, c.SessionID); err != nil {
		return fmt.Errorf("SaveConversion: delete items: %w", err)
	}
	if len(c.Entries) > 0 {
		rows := make([][]any, len(c.Entries))
		for i, e := range c.Entries {
			rows[i] = []any{c.SessionID, e.Position, e.MediaType, e.ID, e.Name, e.URL, e.Logo, e.Group}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"conversion_items"},
			[]string{"session_id", "position", "media_type", "item_id", "name", "url", "logo", "group_title"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("SaveConversion: copy items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("SaveConversion: commit: %w", err)
	}
	return nil
}

// GetConversion returns a conversion with its playlist text.
func (p *Postgres) GetConversion(ctx context.Context, sessionID string) (*models.Conversion, error) {
	var c models.Conversion
	var mode string
	err := p.pool.QueryRow(ctx,
		`SELECT session_id, portal_url, mac_address, mode, channel_count, movie_count,
		        series_count, total_count, m3u_content, created_at
		 FROM conversions WHERE session_id = $1`, sessionID,
	).Scan(&c.SessionID, &c.PortalURL, &c.MACAddress, &mode, &c.ChannelCount, &c.MovieCount,
		&c.SeriesCount, &c.TotalCount, &c.Playlist, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConversion: %w", err)
	}
	c.Mode = models.EnumerationMode(mode)
	return &c, nil
}

// ListConversions returns recent conversion summaries, newest first.
func (p *Postgres) ListConversions(ctx context.Context, limit int) ([]models.Conversion, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT session_id, portal_url, mac_address, mode, channel_count, movie_count,
		        series_count, total_count, created_at
		 FROM conversions ORDER BY created_at DESC, session_id LIMIT $1`, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ListConversions: %w", err)
	}
	defer rows.Close()

	var out []models.Conversion
	for rows.Next() {
		var c models.Conversion
		var mode string
		if err := rows.Scan(&c.SessionID, &c.PortalURL, &c.MACAddress, &mode, &c.ChannelCount,
			&c.MovieCount, &c.SeriesCount, &c.TotalCount, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListConversions: scan: %w", err)
		}
		c.Mode = models.EnumerationMode(mode)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListConversions: %w", err)
	}
	return out, nil
}

// ListEntries returns stored items in playlist order.
func (p *Postgres) ListEntries(ctx context.Context, sessionID string) ([]models.Entry, error) {
	var exists bool
	if err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversions WHERE session_id = $1)`, sessionID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("ListEntries: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := p.pool.Query(ctx,
		`SELECT position, media_type, item_id, name, url, logo, group_title
		 FROM conversion_items WHERE session_id = $1 ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ListEntries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.Position, &e.MediaType, &e.ID, &e.Name, &e.URL, &e.Logo, &e.Group); err != nil {
			return nil, fmt.Errorf("ListEntries: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEntries: %w", err)
	}
	return entries, nil
}

// DeleteConversion removes a conversion; items cascade.
func (p *Postgres) DeleteConversion(ctx context.Context, sessionID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("DeleteConversion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
