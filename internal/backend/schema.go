package backend

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// PageValidator checks a page envelope's shape before it reaches a feed.
// Individual records are not constrained; malformed records are skipped by
// the item factory instead of failing the whole page.
type PageValidator struct {
	schema   *gojsonschema.Schema
	itemsKey string
}

var validators sync.Map // itemsKey -> *PageValidator

// NewPageValidator compiles the page schema for a list keyed by itemsKey
func NewPageValidator(itemsKey string) (*PageValidator, error) {
	if v, ok := validators.Load(itemsKey); ok {
		return v.(*PageValidator), nil
	}

	schema := map[string]any{
		"type":     "object",
		"required": []string{itemsKey},
		"properties": map[string]any{
			itemsKey:      map[string]any{"type": []string{"array", "null"}},
			"NextPageURL": map[string]any{"type": []string{"string", "null"}},
			"HasMore":     map[string]any{"type": "boolean"},
		},
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile page schema for %q: %w", itemsKey, err)
	}

	v := &PageValidator{schema: compiled, itemsKey: itemsKey}
	actual, _ := validators.LoadOrStore(itemsKey, v)
	return actual.(*PageValidator), nil
}

// Validate returns ErrMalformedResponse describing every violation
func (v *PageValidator) Validate(data []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("%w: %s page: %s", ErrMalformedResponse, v.itemsKey, strings.Join(problems, "; "))
}
