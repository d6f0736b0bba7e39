package playlist

import (
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/voyagen/stalker2m3u/internal/models"
)

// WriteFile writes entries to path atomically: readers see either the old
// file or the complete new one.
func WriteFile(path string, entries []models.Entry) (err error) {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending playlist file: %w", err)
	}
	// No-op once CloseAtomicallyReplace has succeeded.
	defer func() { _ = pending.Cleanup() }()

	if err := Write(pending, entries); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace playlist file: %w", err)
	}
	return nil
}
