// Package validator implements rule-based brand compliance checking.
//
// A Validator runs in one of two modes sharing a single Validate
// contract: static mode takes explicit forbidden-word and
// required-keyword lists (the older construction), KB mode evaluates
// the categorized rule sets and tone profile of a knowledge base.
// Validation is a pure function of the text and the loaded rule state;
// nothing is persisted between calls.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"brandstudio/internal/kb"
	"brandstudio/internal/logging"
)

// Tone classifies the dominant tone of validated text.
type Tone string

const (
	ToneFormal  Tone = "formal"
	ToneCasual  Tone = "casual"
	ToneNeutral Tone = "neutral"
	ToneUnknown Tone = "unknown"
)

// Result is the immutable outcome of one Validate call.
// IsValid is true exactly when Violations is empty.
type Result struct {
	IsValid             bool     `json:"is_valid"`
	Violations          []string `json:"violations"`
	Warnings            []string `json:"warnings"`
	DetectedTone        Tone     `json:"detected_tone"`
	MissingKeywords     []string `json:"missing_keywords"`
	ForbiddenWordsFound []string `json:"forbidden_words_found"`
}

// Default rule sets for static mode.
var (
	DefaultForbiddenWords = []string{"cheap", "scam", "fraud", "terrible", "worst", "hate"}

	defaultFormalIndicators = []string{
		"furthermore", "therefore", "moreover", "consequently",
		"nevertheless", "accordingly", "henceforth",
	}
	defaultCasualIndicators = []string{
		"hey", "cool", "awesome", "yeah", "gonna", "wanna",
		"kinda", "pretty much", "you guys",
	}
)

// Validator checks text against brand rules.
type Validator struct {
	// Static mode rule sets; nil kb means static mode.
	forbiddenWords   []string
	requiredKeywords []string
	formalIndicators []string
	casualIndicators []string

	// KB mode.
	kb      *kb.Loader
	lexicon map[string][]string
}

// NewStatic creates a validator from explicit rule lists. A nil
// forbidden list falls back to the default banned terms; a nil required
// list means no keyword checks.
func NewStatic(forbiddenWords, requiredKeywords []string) *Validator {
	if forbiddenWords == nil {
		forbiddenWords = DefaultForbiddenWords
	}
	logging.Validator("static validator: %d forbidden words, %d required keywords",
		len(forbiddenWords), len(requiredKeywords))
	return &Validator{
		forbiddenWords:   forbiddenWords,
		requiredKeywords: requiredKeywords,
		formalIndicators: defaultFormalIndicators,
		casualIndicators: defaultCasualIndicators,
	}
}

// NewFromKB creates a validator driven by a knowledge base. The tone
// lexicon is the compiled-in default overlaid with any entries from the
// KB's tone_lexicon document, so policy authors can extend the tone
// vocabulary without code changes.
func NewFromKB(loader *kb.Loader) *Validator {
	lexicon := make(map[string][]string, len(defaultToneLexicon))
	for tone, words := range defaultToneLexicon {
		lexicon[tone] = words
	}
	overrides := loader.ToneLexicon()
	for _, tone := range overrides.Keys() {
		lexicon[tone] = overrides.Get(tone)
	}

	logging.Validator("KB validator: %d forbidden categories, %d encouraged categories, %d lexicon tones",
		loader.ForbiddenLanguage().Len(), loader.AllowedLanguage().Len(), len(lexicon))
	return &Validator{kb: loader, lexicon: lexicon}
}

// Validate checks text against the active rule set.
func (v *Validator) Validate(text string) Result {
	timer := logging.StartTimer(logging.CategoryValidator, "Validate")
	defer timer.Stop()

	if strings.TrimSpace(text) == "" {
		return Result{
			IsValid:             false,
			Violations:          []string{"Text is empty"},
			Warnings:            []string{},
			DetectedTone:        ToneUnknown,
			MissingKeywords:     []string{},
			ForbiddenWordsFound: []string{},
		}
	}

	if v.kb != nil {
		return v.validateKB(strings.ToLower(text))
	}
	return v.validateStatic(strings.ToLower(text))
}

// validateKB runs the category-driven rule pipeline.
func (v *Validator) validateKB(lower string) Result {
	violations := []string{}
	warnings := []string{}
	forbiddenFound := []string{}

	// Forbidden categories: one violation per matched category, naming
	// every matched term.
	forbidden := v.kb.ForbiddenLanguage()
	for _, category := range forbidden.Keys() {
		var matches []string
		for _, term := range forbidden.Get(category) {
			if term != "" && strings.Contains(lower, strings.ToLower(term)) {
				matches = append(matches, term)
			}
		}
		if len(matches) > 0 {
			forbiddenFound = append(forbiddenFound, matches...)
			violations = append(violations, fmt.Sprintf("Contains %s: %s",
				categoryLabel(category), strings.Join(matches, ", ")))
		}
	}

	// Disallowed tones: indicator words looked up in the lexicon. Tone
	// names the lexicon does not know are skipped without comment
	// (fail-open: tone categories are free-form policy input).
	for _, tone := range v.kb.ToneProfile().Get("disallowed_tone") {
		indicators, ok := v.lexicon[tone]
		if !ok {
			continue
		}
		matches := matchIndicators(lower, indicators)
		if len(matches) > 0 {
			if len(matches) > 2 {
				matches = matches[:2]
			}
			violations = append(violations, fmt.Sprintf("Disallowed tone (%s): %s",
				tone, strings.Join(matches, ", ")))
		}
	}

	// Encouraged language is rewarded, never required.
	allowed := v.kb.AllowedLanguage()
	for _, category := range allowed.Keys() {
		var matches []string
		for _, phrase := range allowed.Get(category) {
			if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
				matches = append(matches, phrase)
			}
		}
		if len(matches) > 0 {
			warnings = append(warnings, fmt.Sprintf("Good use of %s language: %s",
				categoryLabel(category), strings.Join(matches, ", ")))
		}
	}

	return Result{
		IsValid:             len(violations) == 0,
		Violations:          violations,
		Warnings:            warnings,
		DetectedTone:        v.detectDominantTone(lower),
		MissingKeywords:     []string{},
		ForbiddenWordsFound: forbiddenFound,
	}
}

// validateStatic runs the explicit-list pipeline with word-boundary
// matching.
func (v *Validator) validateStatic(lower string) Result {
	violations := []string{}
	warnings := []string{}

	var forbiddenFound []string
	for _, word := range v.forbiddenWords {
		if matchWholeWord(lower, word) {
			forbiddenFound = append(forbiddenFound, word)
		}
	}
	if len(forbiddenFound) > 0 {
		violations = append(violations, fmt.Sprintf("Contains forbidden words: %s",
			strings.Join(forbiddenFound, ", ")))
	}

	missing := []string{}
	for _, keyword := range v.requiredKeywords {
		if !matchWholeWord(lower, keyword) {
			missing = append(missing, keyword)
		}
	}
	if len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf("Missing required keywords: %s",
			strings.Join(missing, ", ")))
	}

	if forbiddenFound == nil {
		forbiddenFound = []string{}
	}

	return Result{
		IsValid:             len(violations) == 0,
		Violations:          violations,
		Warnings:            warnings,
		DetectedTone:        v.detectStaticTone(lower),
		MissingKeywords:     missing,
		ForbiddenWordsFound: forbiddenFound,
	}
}

// matchWholeWord reports whether word occurs in text on word
// boundaries, case-insensitively (text is already lowercased).
func matchWholeWord(lower, word string) bool {
	if word == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(word)) + `\b`)
	if err != nil {
		return false
	}
	return re.MatchString(lower)
}

// matchIndicators returns the lexicon indicator words present in text.
func matchIndicators(lower string, indicators []string) []string {
	var matches []string
	for _, word := range indicators {
		if word != "" && strings.Contains(lower, strings.ToLower(word)) {
			matches = append(matches, word)
		}
	}
	return matches
}

// categoryLabel turns a category key into its human-readable form
// ("absolute_claims" -> "absolute claims").
func categoryLabel(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

// detectStaticTone classifies by counting formal vs casual indicators.
func (v *Validator) detectStaticTone(lower string) Tone {
	formal := len(matchIndicators(lower, v.formalIndicators))
	casual := len(matchIndicators(lower, v.casualIndicators))

	switch {
	case formal == 0 && casual == 0:
		return ToneNeutral
	case formal > casual:
		return ToneFormal
	case casual > formal:
		return ToneCasual
	default:
		return ToneNeutral
	}
}
