package place

import (
	"context"
	"fmt"
)

// SeedIfEmpty upserts seed into repo when the catalog holds no places.
// A non-empty catalog is left untouched. Returns the number of places written.
func SeedIfEmpty(ctx context.Context, repo Repository, seed []Place) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check catalog: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, p := range seed {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return i, fmt.Errorf("failed to seed place %q: %w", p.Name, err)
		}
	}
	return len(seed), nil
}
