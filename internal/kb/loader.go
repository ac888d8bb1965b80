// Package kb loads categorized brand-policy documents from a knowledge
// base directory and caches them in memory.
//
// Missing or malformed policy files are never fatal: they degrade the
// rule set to an empty mapping and are logged. A false negative (content
// let through) is judged less harmful than blocking every downstream
// generation on a broken policy file.
package kb

import (
	"os"
	"path/filepath"
	"sync"

	"brandstudio/internal/logging"
)

// Logical keys for the policy documents the loader knows about.
const (
	KeyForbiddenLanguage = "forbidden_language"
	KeyAllowedLanguage   = "allowed_language"
	KeyToneProfile       = "tone_profile"
	KeyToneLexicon       = "tone_lexicon"
	KeyContextRules      = "context_rules"
)

// relPaths maps logical keys to paths under the KB root.
var relPaths = map[string]string{
	KeyForbiddenLanguage: filepath.Join("policy", "forbidden_language.json"),
	KeyAllowedLanguage:   filepath.Join("policy", "allowed_language.json"),
	KeyToneProfile:       filepath.Join("tone", "tone_profile.json"),
	KeyToneLexicon:       filepath.Join("tone", "tone_lexicon.json"),
	KeyContextRules:      filepath.Join("context_rules", "allowed_context_types.json"),
}

// knownToneKeys is the documented tone-profile key space. Unrecognized
// keys are warned about at load time, never rejected: brand policy
// schemas evolve.
var knownToneKeys = map[string]bool{
	"required_tone":   true,
	"preferred_tone":  true,
	"disallowed_tone": true,
	"writing_style":   true,
}

// Loader reads brand-policy documents and caches each by logical key.
// The cache is cleared with Invalidate; loads are otherwise one-shot
// for the loader's lifetime.
type Loader struct {
	root  string
	mu    sync.RWMutex
	cache map[string]*CategoryMap
}

// NewLoader creates a loader rooted at the KB directory.
func NewLoader(root string) *Loader {
	logging.KB("initialized knowledge base loader at %s", root)
	return &Loader{
		root:  root,
		cache: make(map[string]*CategoryMap),
	}
}

// Root returns the KB directory the loader reads from.
func (l *Loader) Root() string {
	return l.root
}

// ForbiddenLanguage loads forbidden terms by category, e.g.
// {"absolute_claims": ["guaranteed", "100% success"], ...}.
func (l *Loader) ForbiddenLanguage() *CategoryMap {
	return l.load(KeyForbiddenLanguage)
}

// AllowedLanguage loads encouraged phrases by category.
func (l *Loader) AllowedLanguage() *CategoryMap {
	return l.load(KeyAllowedLanguage)
}

// ToneProfile loads the tone profile (required_tone, disallowed_tone,
// writing_style). Unrecognized keys are kept but logged.
func (l *Loader) ToneProfile() *CategoryMap {
	m := l.load(KeyToneProfile)
	for _, k := range m.Keys() {
		if !knownToneKeys[k] {
			logging.Get(logging.CategoryKB).Warn("tone profile has unrecognized key %q (keeping it)", k)
		}
	}
	return m
}

// ToneLexicon loads tone-name → indicator-word overrides. Policy authors
// can extend the tone vocabulary here without code changes; the
// validator merges these over its compiled-in defaults.
func (l *Loader) ToneLexicon() *CategoryMap {
	return l.load(KeyToneLexicon)
}

// ContextRules loads allowed/restricted section rules.
func (l *Loader) ContextRules() *CategoryMap {
	return l.load(KeyContextRules)
}

// AllForbiddenTerms returns every forbidden term across all categories,
// category order then within-category order.
func (l *Loader) AllForbiddenTerms() []string {
	return l.ForbiddenLanguage().Flatten()
}

// AllAllowedPhrases returns every encouraged phrase across all categories.
func (l *Loader) AllAllowedPhrases() []string {
	return l.AllowedLanguage().Flatten()
}

// Invalidate clears all cached documents; subsequent loads re-read from
// disk.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*CategoryMap)
	logging.KB("knowledge base cache invalidated")
}

// load returns the cached document for key, reading and parsing it on
// first access. Any failure yields an empty mapping (fail-open).
func (l *Loader) load(key string) *CategoryMap {
	l.mu.RLock()
	if m, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return m
	}
	l.mu.RUnlock()

	rel, ok := relPaths[key]
	if !ok {
		logging.Get(logging.CategoryKB).Warn("unknown knowledge base key %q", key)
		return NewCategoryMap()
	}
	path := filepath.Join(l.root, rel)

	m := l.read(path, key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[key]; ok {
		return cached
	}
	l.cache[key] = m
	return m
}

func (l *Loader) read(path, key string) *CategoryMap {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Get(logging.CategoryKB).Warn("KB file not found: %s", path)
		} else {
			logging.Get(logging.CategoryKB).Error("failed to open %s: %v", path, err)
		}
		return NewCategoryMap()
	}
	defer f.Close()

	m, err := decodeCategories(f)
	if err != nil {
		logging.Get(logging.CategoryKB).Error("failed to parse %s: %v", path, err)
		return NewCategoryMap()
	}

	logging.KB("loaded %s: %d categories", key, m.Len())
	return m
}
