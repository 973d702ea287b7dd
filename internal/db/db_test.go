package db

import (
	"context"
	"strings"
	"testing"
)

func TestSchema_DefinesCatalogTables(t *testing.T) {
	for _, table := range []string{"places", "place_reviews"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema does not create table %q", table)
		}
	}
	if !strings.Contains(Schema, "idx_places_geohash") {
		t.Error("schema does not index places by geohash")
	}
}

func TestOpen_RequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty database url")
	}
}
