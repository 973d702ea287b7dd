package place

import (
	"github.com/google/uuid"

	"github.com/onnwee/placerank/internal/geo"
)

// demoNamespace scopes deterministic IDs for the demo catalog.
var demoNamespace = uuid.MustParse("6f1c8a56-3f0e-4d84-9a43-0d2b1f1f6c11")

// DemoID returns the deterministic ID used for a demo place with the given name.
func DemoID(name string) string {
	return uuid.NewSHA1(demoNamespace, []byte(name)).String()
}

// DemoPlaces returns a small catalog of places around Cairo used by the CLI
// and by the API server when no database is configured.
func DemoPlaces() []Place {
	return []Place{
		{
			ID:      DemoID("The Grand Cafe"),
			Name:    "The Grand Cafe",
			Address: "Downtown Cairo",
			Reviews: []Review{
				{Text: "Very trendy spot with great music! Always lively and energetic."},
				{Text: "Perfect for groups, great atmosphere for socializing."},
				{Text: "Modern decor and excellent coffee selection."},
			},
			Budget:   BudgetExpensive,
			Location: geo.NewPoint(30.0444, 31.2357),
		},
		{
			ID:      DemoID("Quiet Corner Books"),
			Name:    "Quiet Corner Books",
			Address: "Zamalek District",
			Reviews: []Review{
				{Text: "A very quiet and cozy place for reading and studying."},
				{Text: "Perfect workspace with reliable Wi-Fi and comfortable seating."},
				{Text: "Great coffee and peaceful environment for solo work."},
			},
			Budget:   BudgetModerate,
			Location: geo.NewPoint(30.0561, 31.2394),
		},
		{
			ID:      DemoID("Uptown Lounge"),
			Name:    "Uptown Lounge",
			Address: "New Cairo",
			Reviews: []Review{
				{Text: "Super energetic and trendy. The place to be seen!"},
				{Text: "Elegant setting with gourmet food and artistic decor."},
				{Text: "Perfect for romantic dates with scenic city views."},
			},
			Budget:   BudgetVeryExpensive,
			Location: geo.NewPoint(30.0450, 31.2360),
		},
		{
			ID:      DemoID("Family Garden Restaurant"),
			Name:    "Family Garden Restaurant",
			Address: "Maadi",
			Reviews: []Review{
				{Text: "Amazing family-friendly atmosphere with outdoor seating."},
				{Text: "Great for kids, pet-friendly with excellent comfort food."},
				{Text: "Wheelchair accessible with convenient parking."},
			},
			Budget:   BudgetModerate,
			Location: geo.NewPoint(30.0333, 31.2200),
		},
		{
			ID:      DemoID("Bohemian Arts Cafe"),
			Name:    "Bohemian Arts Cafe",
			Address: "Heliopolis",
			Reviews: []Review{
				{Text: "Incredibly artistic and bohemian vibe with unique decor."},
				{Text: "Perfect for creative minds, great coffee and desserts."},
				{Text: "Casual atmosphere that's inspiring and relaxing."},
			},
			Budget:   BudgetExpensive,
			Location: geo.NewPoint(30.0600, 31.2400),
		},
		{
			ID:      DemoID("Healthy Bites Kitchen"),
			Name:    "Healthy Bites Kitchen",
			Address: "Dokki",
			Reviews: []Review{
				{Text: "Excellent healthy options with many vegan-friendly choices."},
				{Text: "Fresh ingredients and nutritious meals that actually taste great."},
				{Text: "Clean, bright atmosphere perfect for health-conscious diners."},
			},
			Budget:   BudgetExpensive,
			Location: geo.NewPoint(30.0400, 31.2300),
		},
	}
}
