package kb

import (
	"encoding/json"
	"fmt"
	"io"
)

// CategoryMap is an ordered mapping from category name to a list of
// terms/phrases. Iteration order follows the source document, which
// matters for flattening: flattened term order is category order then
// within-category order.
type CategoryMap struct {
	keys  []string
	terms map[string][]string
}

// NewCategoryMap returns an empty CategoryMap.
func NewCategoryMap() *CategoryMap {
	return &CategoryMap{terms: make(map[string][]string)}
}

// Set appends or replaces a category. First insertion fixes its position.
func (c *CategoryMap) Set(name string, terms []string) {
	if _, ok := c.terms[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.terms[name] = terms
}

// Get returns the terms for a category, or nil.
func (c *CategoryMap) Get(name string) []string {
	return c.terms[name]
}

// Keys returns category names in source order.
func (c *CategoryMap) Keys() []string {
	return c.keys
}

// Len returns the number of categories.
func (c *CategoryMap) Len() int {
	return len(c.keys)
}

// Flatten concatenates all category values into one slice, category
// order first, then within-category order.
func (c *CategoryMap) Flatten() []string {
	var out []string
	for _, k := range c.keys {
		out = append(out, c.terms[k]...)
	}
	return out
}

// decodeCategories reads a JSON object of the shape
// {"category": ["term", ...], ...} preserving key order. encoding/json
// maps discard order, so this walks the token stream instead.
func decodeCategories(r io.Reader) (*CategoryMap, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	out := NewCategoryMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		var terms []string
		if err := dec.Decode(&terms); err != nil {
			return nil, fmt.Errorf("category %q: %w", key, err)
		}
		out.Set(key, terms)
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
