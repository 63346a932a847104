// Package schema validates inbound JSON payloads against embedded JSON Schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Names of the embedded schemas.
const (
	RawLead      = "raw_lead"
	QuoteRequest = "quote_request"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator compiles embedded schemas on first use and keeps them in an
// expiring LRU.
type Validator struct {
	mu    sync.Mutex // js.Compiler is not safe for concurrent use
	cache *expirable.LRU[string, *js.Schema]
}

// NewValidator creates a validator caching up to size compiled schemas.
func NewValidator(size int) *Validator {
	if size < 1 {
		size = 16
	}
	return &Validator{
		cache: expirable.NewLRU[string, *js.Schema](size, nil, time.Hour),
	}
}

func (v *Validator) compiled(name string) (*js.Schema, error) {
	if s, ok := v.cache.Get(name); ok {
		return s, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache.Get(name); ok {
		return s, nil
	}

	raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	c := js.NewCompiler()
	url := "mem://schemas/" + name + ".json"
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema %q: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	v.cache.Add(name, s)
	return s, nil
}

// Validate checks body against the named schema. Schema violations and
// malformed JSON are returned as *domain.ErrValidation.
func (v *Validator) Validate(name string, body []byte) error {
	s, err := v.compiled(name)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid JSON"}
	}

	if err := s.Validate(doc); err != nil {
		var ve *js.ValidationError
		if errors.As(err, &ve) {
			leaf := deepest(ve)
			field := leaf.InstanceLocation
			if field == "" {
				field = "body"
			}
			return &domain.ErrValidation{Field: field, Message: leaf.Message}
		}
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

func deepest(ve *js.ValidationError) *js.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
