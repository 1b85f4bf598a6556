package validation

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "catalog-search/internal/common/errors"
)

// Schema is a compiled JSON schema for a flat map of request parameters.
// Query-string values arrive as strings, so numeric parameters are described
// with patterns rather than numeric types.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// MustCompile compiles schema or panics; schemas are package-level literals.
func MustCompile(name string, schema map[string]interface{}) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("validation: compile schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Check returns every violation of params against the schema.
func (s *Schema) Check(params map[string]interface{}) ([]ValidationError, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "(root)" {
			if p, ok := re.Details()["property"].(string); ok {
				field = p
			}
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Validate returns a VALIDATION_FAILED error describing the first violation.
func (s *Schema) Validate(params map[string]interface{}) error {
	violations, err := s.Check(params)
	if err != nil {
		return apperrors.NewValidationError(s.name, err.Error())
	}
	if len(violations) == 0 {
		return nil
	}
	v := violations[0]
	return apperrors.NewValidationError(v.Field, fmt.Sprintf("%s: %s", v.Field, v.Message))
}

// FromQuery flattens url.Values to their first value per key.
func FromQuery(values url.Values) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

var integerString = map[string]interface{}{
	"type":    "string",
	"pattern": "^-?[0-9]+$",
}

// SuggestParams covers GET /search/suggest.
var SuggestParams = MustCompile("suggest", map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"q": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 200,
		},
		"limit": integerString,
	},
	"required": []string{"q"},
})

// SearchParams covers GET /products/search. page and pageSize are lenient and
// normalized later, so only q is constrained.
var SearchParams = MustCompile("search", map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"q": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 200,
		},
	},
	"required": []string{"q"},
})

// ProductIDParams covers path ids.
var ProductIDParams = MustCompile("productId", map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id": map[string]interface{}{
			"type":    "string",
			"pattern": "^[0-9]{1,19}$",
		},
	},
	"required": []string{"id"},
})
