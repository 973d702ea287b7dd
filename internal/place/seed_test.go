package place

import (
	"context"
	"errors"
	"testing"
)

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	n, err := SeedIfEmpty(ctx, repo, DemoPlaces())
	if err != nil {
		t.Fatalf("SeedIfEmpty() error = %v", err)
	}
	if n != len(DemoPlaces()) {
		t.Errorf("seeded %d places, want %d", n, len(DemoPlaces()))
	}

	places, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(places) != len(DemoPlaces()) {
		t.Fatalf("catalog has %d places, want %d", len(places), len(DemoPlaces()))
	}
	if places[0].ID != DemoID(places[0].Name) {
		t.Errorf("seeded place kept ID %q, want demo ID", places[0].ID)
	}

	// A populated catalog is not reseeded.
	n, err = SeedIfEmpty(ctx, repo, DemoPlaces())
	if err != nil {
		t.Fatalf("second SeedIfEmpty() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second SeedIfEmpty() wrote %d places, want 0", n)
	}
}

func TestSeedIfEmpty_KeepsExistingCatalog(t *testing.T) {
	ctx := context.Background()
	own := DemoPlaces()[0]
	own.ID = "own-place"
	repo := NewInMemoryRepository(own)

	n, err := SeedIfEmpty(ctx, repo, DemoPlaces())
	if err != nil || n != 0 {
		t.Fatalf("SeedIfEmpty() = %d, %v; want 0, nil", n, err)
	}
	places, _ := repo.List(ctx)
	if len(places) != 1 || places[0].ID != "own-place" {
		t.Errorf("catalog changed: %+v", places)
	}
}

type failingRepository struct {
	Repository
	listErr   error
	upsertErr error
}

func (f failingRepository) List(context.Context) ([]Place, error) { return nil, f.listErr }

func (f failingRepository) Upsert(context.Context, Place) (string, error) {
	return "", f.upsertErr
}

func TestSeedIfEmpty_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name string
		repo failingRepository
	}{
		{"list fails", failingRepository{listErr: boom}},
		{"upsert fails", failingRepository{upsertErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := SeedIfEmpty(context.Background(), tt.repo, DemoPlaces())
			if !errors.Is(err, boom) {
				t.Errorf("SeedIfEmpty() error = %v, want %v", err, boom)
			}
			if n != 0 {
				t.Errorf("SeedIfEmpty() wrote %d places, want 0", n)
			}
		})
	}
}
