package sentiment

import (
	"context"
	"strings"
	"unicode"
)

var englishPositive = []string{
	"good", "great", "excellent", "amazing", "awesome", "fantastic", "wonderful",
	"love", "loved", "lovely", "perfect", "best", "delicious", "tasty", "friendly",
	"nice", "beautiful", "recommend", "recommended", "divine", "cozy", "enjoyed",
	"fresh", "clean", "helpful", "top-notch", "reasonable",
}

var englishNegative = []string{
	"bad", "terrible", "awful", "horrible", "worst", "poor", "rude", "dirty",
	"slow", "cold", "bland", "overpriced", "expensive", "disappointing",
	"disappointed", "crowded", "noisy", "never", "mediocre", "stale",
}

var arabicPositive = []string{
	"ممتاز", "ممتازة", "تحفة", "رايق", "حلوة", "حلو", "جميل", "جميلة", "رائع",
	"يستاهل", "أنصح", "لذيذ", "نظيف", "نظيفاً", "ودود", "مظبوطة", "ساحر",
	"طيب", "عجبني", "مزيانة", "واعر",
}

var arabicNegative = []string{
	"سيء", "سيئ", "وحش", "زفت", "غالي", "بطيء", "بطيئة", "وسخ", "مقرف", "بارد",
}

// LexiconModel classifies text by counting positive and negative words.
// More positive words score 1, more negative words score 0, a tie scores Neutral.
type LexiconModel struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexiconModel builds a model from positive and negative word lists.
func NewLexiconModel(positive, negative []string) *LexiconModel {
	m := &LexiconModel{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		m.positive[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range negative {
		m.negative[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// NewEnglishLexicon returns the built-in English lexicon model.
func NewEnglishLexicon() *LexiconModel {
	return NewLexiconModel(englishPositive, englishNegative)
}

// NewArabicLexicon returns the built-in Arabic lexicon model.
func NewArabicLexicon() *LexiconModel {
	return NewLexiconModel(arabicPositive, arabicNegative)
}

// Classify implements Model.
func (m *LexiconModel) Classify(_ context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = m.score(t)
	}
	return out, nil
}

func (m *LexiconModel) score(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	var pos, neg int
	for _, w := range words {
		if _, ok := m.positive[w]; ok {
			pos++
		}
		if _, ok := m.negative[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return 1
	case neg > pos:
		return 0
	default:
		return Neutral
	}
}

// NewLexiconAnalyzer returns a Router over the built-in English and Arabic
// lexicons. It needs no network access.
func NewLexiconAnalyzer() *Router {
	return NewRouter(map[string]Model{
		LanguageEnglish: NewEnglishLexicon(),
		LanguageArabic:  NewArabicLexicon(),
	}, nil)
}
