package preference

// DefaultAttributes is the attribute vocabulary used when none is configured.
var DefaultAttributes = []string{
	"Cozy", "Trendy", "Romantic", "Lively", "Quiet", "Elegant", "Casual",
	"Artistic", "Bohemian", "Family-Friendly", "Pet-Friendly", "Outdoor Seating",
	"Good for Groups", "Good for Solo", "Gourmet", "Comfort Food", "Healthy",
	"Vegan-Friendly", "Dessert", "Coffee", "Date", "Scenic View",
	"Parking Available", "Wheelchair Accessible", "Wi-Fi Available", "Workspace",
}

// Attributes returns a copy of DefaultAttributes.
func Attributes() []string {
	out := make([]string, len(DefaultAttributes))
	copy(out, DefaultAttributes)
	return out
}
