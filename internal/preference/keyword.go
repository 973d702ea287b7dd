package preference

import (
	"context"
	"strings"
)

// DefaultKeywords maps each default attribute to phrases that signal it in
// review text. Every attribute also matches its own lowercased label.
var DefaultKeywords = map[string][]string{
	"Cozy":                  {"cozy", "cosy", "warm", "snug", "comfy"},
	"Trendy":                {"trendy", "hip", "stylish", "modern", "instagram"},
	"Romantic":              {"romantic", "candle", "intimate", "anniversary"},
	"Lively":                {"lively", "vibrant", "busy", "buzzing", "energetic", "music"},
	"Quiet":                 {"quiet", "calm", "peaceful", "silent", "relaxing", "هادي", "رايق"},
	"Elegant":               {"elegant", "classy", "upscale", "luxurious", "fancy"},
	"Casual":                {"casual", "laid-back", "relaxed", "simple"},
	"Artistic":              {"artistic", "art", "gallery", "paintings", "creative"},
	"Bohemian":              {"bohemian", "boho", "eclectic", "artsy"},
	"Family-Friendly":       {"family", "kids", "children", "playground"},
	"Pet-Friendly":          {"pet", "dog", "dogs", "cat"},
	"Outdoor Seating":       {"outdoor", "terrace", "patio", "garden", "outside"},
	"Good for Groups":       {"group", "groups", "friends", "party", "رفقاتي"},
	"Good for Solo":         {"solo", "alone", "by myself", "reading", "book", "books"},
	"Gourmet":               {"gourmet", "chef", "exquisite", "fine dining", "divine"},
	"Comfort Food":          {"comfort", "hearty", "homemade", "burger", "pizza"},
	"Healthy":               {"healthy", "fresh", "salad", "nutritious", "organic"},
	"Vegan-Friendly":        {"vegan", "vegetarian", "plant-based"},
	"Dessert":               {"dessert", "cake", "sweet", "pastry", "ice cream"},
	"Coffee":                {"coffee", "espresso", "latte", "cappuccino", "قهوة"},
	"Date":                  {"date", "couple", "partner"},
	"Scenic View":           {"view", "scenic", "nile", "sunset", "المنظر"},
	"Parking Available":     {"parking", "park the car", "valet"},
	"Wheelchair Accessible": {"wheelchair", "accessible", "ramp"},
	"Wi-Fi Available":       {"wifi", "wi-fi", "internet"},
	"Workspace":             {"work", "laptop", "study", "workspace", "meeting"},
}

// KeywordEmbedder is a deterministic offline embedder. Each dimension counts
// the keyword hits of one attribute, so a label embeds onto its own axis and
// a review embeds onto the attributes it mentions.
type KeywordEmbedder struct {
	dims [][]string
}

// NewKeywordEmbedder builds an embedder with one dimension per attribute.
// Attributes missing from keywords match only their own label.
func NewKeywordEmbedder(attributes []string, keywords map[string][]string) *KeywordEmbedder {
	dims := make([][]string, len(attributes))
	for i, attr := range attributes {
		seen := map[string]bool{}
		for _, k := range append([]string{attr}, keywords[attr]...) {
			k = strings.ToLower(k)
			if !seen[k] {
				seen[k] = true
				dims[i] = append(dims[i], k)
			}
		}
	}
	return &KeywordEmbedder{dims: dims}
}

// Embed returns the per-attribute keyword hit counts for text.
func (e *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	padded := " " + normalizeText(text) + " "
	vec := make([]float32, len(e.dims))
	for i, phrases := range e.dims {
		for _, p := range phrases {
			if strings.Contains(padded, " "+p+" ") {
				vec[i]++
			}
		}
	}
	return vec, nil
}

// normalizeText lowercases text and replaces punctuation other than hyphens
// with spaces so phrases match on word boundaries.
func normalizeText(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r < 128 && !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9'):
			return ' '
		default:
			return r
		}
	}, text)
}
