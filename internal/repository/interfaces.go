package repository

import (
	"context"

	"launchbox/internal/iconcache"
)

// IconRepository persists resolved icons between runs. Keys are shortcut
// paths; implementations compare them case-insensitively.
type IconRepository interface {
	// LoadIcon returns the stored entry for path, reporting false when none
	// exists.
	LoadIcon(ctx context.Context, path string) (iconcache.Entry, bool, error)
	SaveIcon(ctx context.Context, path string, entry iconcache.Entry) error
	// PruneIcons deletes every entry whose path is not in active and returns
	// the number removed.
	PruneIcons(ctx context.Context, active []string) (int, error)
	CountIcons(ctx context.Context) (int, error)
}
