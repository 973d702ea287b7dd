package place

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/onnwee/placerank/internal/tracing"
)

// PostgresRepository implements Repository on the places and place_reviews tables.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// List returns all places ordered by creation time, with their reviews.
func (r *PostgresRepository) List(ctx context.Context) (places []Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, budget, lat, lng
		FROM places
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Budget, &p.Location.Lat, &p.Location.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		index[p.ID] = len(places)
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	if len(places) == 0 {
		return places, nil
	}

	reviewRows, err := r.db.QueryContext(ctx, `
		SELECT place_id, text, language
		FROM place_reviews
		ORDER BY place_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer reviewRows.Close()

	for reviewRows.Next() {
		var placeID string
		var rv Review
		if err := reviewRows.Scan(&placeID, &rv.Text, &rv.Language); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if i, ok := index[placeID]; ok {
			places[i].Reviews = append(places[i].Reviews, rv)
		}
	}
	if err := reviewRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return places, nil
}

// Get returns the place with the given ID or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (p *Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var out Place
	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, address, budget, lat, lng
		FROM places
		WHERE id = $1
	`, id).Scan(&out.ID, &out.Name, &out.Address, &out.Budget, &out.Location.Lat, &out.Location.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT text, language
		FROM place_reviews
		WHERE place_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.Text, &rv.Language); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out.Reviews = append(out.Reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return &out, nil
}

// Upsert inserts or replaces a place and all of its reviews in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, p Place) (id string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback transaction", slog.String("error", err.Error()))
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO places (id, name, address, budget, lat, lng, geohash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    address = EXCLUDED.address,
		    budget = EXCLUDED.budget,
		    lat = EXCLUDED.lat,
		    lng = EXCLUDED.lng,
		    geohash = EXCLUDED.geohash,
		    updated_at = NOW()
	`, p.ID, p.Name, p.Address, int(p.Budget), p.Location.Lat, p.Location.Lng, p.Location.Geohash())
	if err != nil {
		return "", fmt.Errorf("failed to upsert place: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM place_reviews WHERE place_id = $1`, p.ID); err != nil {
		return "", fmt.Errorf("failed to clear reviews: %w", err)
	}

	if len(p.Reviews) > 0 {
		texts := make([]string, len(p.Reviews))
		langs := make([]string, len(p.Reviews))
		for i, rv := range p.Reviews {
			texts[i] = rv.Text
			langs[i] = rv.Language
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO place_reviews (place_id, position, text, language)
			SELECT $1, r.ord, r.text, r.language
			FROM unnest($2::text[], $3::text[]) WITH ORDINALITY AS r(text, language, ord)
		`, p.ID, pq.Array(texts), pq.Array(langs))
		if err != nil {
			return "", fmt.Errorf("failed to insert reviews: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Debug("upserted place",
		slog.String("place_id", p.ID),
		slog.Int("reviews", len(p.Reviews)))
	return p.ID, nil
}
