package validator

// defaultToneLexicon maps tone names to the indicator words that signal
// them. KB mode can extend or replace entries through the knowledge
// base's tone_lexicon document.
var defaultToneLexicon = map[string][]string{
	"fear-driven": {"afraid", "scared", "terrified", "panic", "disaster"},
	"aggressive":  {"must", "now", "immediately", "demand", "force"},
	"judgmental":  {"should", "failure", "wrong", "blame", "fault"},
	"empathetic":  {"understand", "support", "help", "care", "together"},
	"supportive":  {"encourage", "empower", "achieve", "grow", "thrive"},
	"inclusive":   {"everyone", "all", "community", "belong", "welcome"},
}

// Tones grouped by polarity for dominant-tone classification.
var (
	positiveTones = []string{"empathetic", "supportive", "inclusive"}
	negativeTones = []string{"fear-driven", "aggressive", "judgmental"}
)

// detectDominantTone classifies text by counting positive vs negative
// indicator hits across the lexicon. Texts leaning positive read as
// formal brand voice, negative-leaning texts as casual, and everything
// else as neutral.
func (v *Validator) detectDominantTone(lower string) Tone {
	positive := 0
	for _, tone := range positiveTones {
		positive += len(matchIndicators(lower, v.lexicon[tone]))
	}
	negative := 0
	for _, tone := range negativeTones {
		negative += len(matchIndicators(lower, v.lexicon[tone]))
	}

	switch {
	case positive > negative && positive > 0:
		return ToneFormal
	case negative > 0:
		return ToneCasual
	default:
		return ToneNeutral
	}
}
