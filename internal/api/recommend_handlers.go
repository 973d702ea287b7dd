package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/placerank/internal/breaker"
	"github.com/onnwee/placerank/internal/geo"
	"github.com/onnwee/placerank/internal/place"
	"github.com/onnwee/placerank/internal/ranking"
	"github.com/onnwee/placerank/internal/validate"
)

// Request defaults applied when a field is omitted.
const (
	DefaultBudget           = place.BudgetExpensive
	DefaultLat              = 29.9595 // Maadi, Cairo
	DefaultLng              = 31.2589
	DefaultRecommendTimeout = 30 * time.Second

	maxRequestBodyBytes = 64 << 10
)

// Ranker orders candidate places for a user.
type Ranker interface {
	Rank(ctx context.Context, user place.UserProfile, places []place.Place) ([]ranking.Result, error)
}

// RecommendRequest is the body of POST /api/recommend.
// Preference weights are relative; they are normalized to sum to 1.
type RecommendRequest struct {
	Preferences map[string]float64 `json:"preferences" validate:"max=64,dive,keys,required,max=128,endkeys,gte=0"`
	Budget      *int               `json:"budget" validate:"omitempty,budget"`
	Coords      []float64          `json:"coords" validate:"omitempty,len=2"` // [lat, lng]
	Limit       int                `json:"limit" validate:"gte=0,lte=100"`    // 0 returns every place
}

// coordinates validates the decoded coords pair.
type coordinates struct {
	Lat float64 `json:"coords[0]" validate:"latitude"`
	Lng float64 `json:"coords[1]" validate:"longitude"`
}

// Recommendation is one ranked place in the response.
type Recommendation struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	Budget         place.BudgetLevel `json:"budget"`
	Location       geo.Point         `json:"location"`
	ScoringDetails ranking.Breakdown `json:"scoring_details"`
}

// RecommendResponse is the body of a successful POST /api/recommend.
type RecommendResponse struct {
	Success         bool             `json:"success"`
	Count           int              `json:"count"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RecommendHandlers serves ranking and catalog endpoints.
type RecommendHandlers struct {
	ranker     Ranker
	places     place.Repository
	attributes []string
	timeout    time.Duration
}

// RecommendHandlersConfig configures RecommendHandlers.
type RecommendHandlersConfig struct {
	Ranker     Ranker
	Places     place.Repository
	Attributes []string
	Timeout    time.Duration // default: DefaultRecommendTimeout
}

// NewRecommendHandlers creates a new RecommendHandlers instance.
func NewRecommendHandlers(cfg RecommendHandlersConfig) *RecommendHandlers {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRecommendTimeout
	}
	attrs := make([]string, len(cfg.Attributes))
	copy(attrs, cfg.Attributes)
	return &RecommendHandlers{
		ranker:     cfg.Ranker,
		places:     cfg.Places,
		attributes: attrs,
		timeout:    timeout,
	}
}

// Recommend handles POST /api/recommend - ranks the catalog for the user.
func (h *RecommendHandlers) Recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeCodedError(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	var req RecommendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCodedError(w, r, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	user, err := req.toUserProfile()
	if err != nil {
		writeCodedError(w, r, ErrCodeValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	candidates, err := h.places.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list places", "error", err)
		writeCodedError(w, r, ErrCodeInternal, "Failed to load places")
		return
	}

	results, err := h.ranker.Rank(ctx, user, candidates)
	if err != nil {
		code, msg := classifyRankError(err)
		slog.ErrorContext(ctx, "ranking failed", "error", err, "error_code", code)
		writeCodedError(w, r, code, msg)
		return
	}

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	resp := RecommendResponse{
		Success:         true,
		Count:           len(results),
		Recommendations: make([]Recommendation, len(results)),
	}
	for i, res := range results {
		resp.Recommendations[i] = Recommendation{
			ID:             res.Place.ID,
			Name:           res.Place.Name,
			Address:        addressOrUnknown(res.Place.Address),
			Budget:         res.Place.Budget,
			Location:       res.Place.Location,
			ScoringDetails: res.Breakdown,
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// toUserProfile validates the request and applies defaults.
func (req *RecommendRequest) toUserProfile() (place.UserProfile, error) {
	if err := validate.Struct(req); err != nil {
		return place.UserProfile{}, err
	}

	user := place.UserProfile{
		Preferences: place.NormalizePreferences(req.Preferences),
		Budget:      DefaultBudget,
		Location:    geo.NewPoint(DefaultLat, DefaultLng),
	}
	if req.Budget != nil {
		user.Budget = place.BudgetLevel(*req.Budget)
	}
	if len(req.Coords) == 2 {
		c := coordinates{Lat: req.Coords[0], Lng: req.Coords[1]}
		if err := validate.Struct(&c); err != nil {
			return place.UserProfile{}, err
		}
		user.Location = geo.NewPoint(c.Lat, c.Lng)
	}
	return user, nil
}

// classifyRankError maps a Rank failure to an API error code and message.
func classifyRankError(err error) (code, message string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout, "Ranking timed out"
	case errors.Is(err, breaker.ErrUnavailable):
		return ErrCodeUnavailable, "Scoring backend temporarily unavailable"
	case errors.Is(err, ranking.ErrCollaborator):
		return ErrCodeUpstream, "Scoring backend failed"
	default:
		return ErrCodeInternal, "Failed to rank places"
	}
}

func addressOrUnknown(addr string) string {
	if addr == "" {
		return "Unknown"
	}
	return addr
}

// Attributes handles GET /api/attributes - lists the preference vocabulary.
func (h *RecommendHandlers) Attributes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeCodedError(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"attributes": h.attributes})
}

// PlaceSummary is a catalog entry without its reviews.
type PlaceSummary struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Address     string            `json:"address,omitempty"`
	Budget      place.BudgetLevel `json:"budget"`
	Location    geo.Point         `json:"location"`
	Geohash     string            `json:"geohash"`
	ReviewCount int               `json:"review_count"`
}

// ListPlaces handles GET /api/places - lists the catalog.
func (h *RecommendHandlers) ListPlaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeCodedError(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	places, err := h.places.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list places", "error", err)
		writeCodedError(w, r, ErrCodeInternal, "Failed to load places")
		return
	}

	summaries := make([]PlaceSummary, len(places))
	for i, p := range places {
		summaries[i] = PlaceSummary{
			ID:          p.ID,
			Name:        p.Name,
			Address:     p.Address,
			Budget:      p.Budget,
			Location:    p.Location,
			Geohash:     p.Location.Geohash(),
			ReviewCount: len(p.Reviews),
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"places": summaries, "count": len(summaries)})
}

// GetPlace handles GET /api/places/{id} - returns one place with its reviews.
func (h *RecommendHandlers) GetPlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeCodedError(w, r, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	p, err := h.places.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, place.ErrNotFound) {
		writeCodedError(w, r, ErrCodeNotFound, "Place not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get place", "error", err)
		writeCodedError(w, r, ErrCodeInternal, "Failed to load place")
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
