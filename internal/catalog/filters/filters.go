// Package filters turns raw, loosely-typed request parameters into a
// canonical models.FilterSet.
package filters

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	apperrors "catalog-search/internal/common/errors"
	"catalog-search/internal/models"
)

const DefaultPage = 1

// Limits bounds pagination. Zero values fall back to 12 and 100.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = 12
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = 100
	}
	if l.DefaultPageSize > l.MaxPageSize {
		l.DefaultPageSize = l.MaxPageSize
	}
	return l
}

// RawParams holds list parameters exactly as received.
type RawParams struct {
	Page        string
	PageSize    string
	Category    string
	Brand       string
	IsFlashSale string
	IsNew       string
	IncludeMeta string
}

// FromQuery reads list parameters from a query string. Both camelCase and
// snake_case spellings are accepted for the multi-word keys.
func FromQuery(values url.Values) RawParams {
	return RawParams{
		Page:        values.Get("page"),
		PageSize:    first(values, "pageSize", "page_size"),
		Category:    values.Get("category"),
		Brand:       values.Get("brand"),
		IsFlashSale: first(values, "isFlashSale", "is_flash_sale"),
		IsNew:       first(values, "isNew", "is_new"),
		IncludeMeta: first(values, "includeMeta", "include_meta"),
	}
}

func first(values url.Values, keys ...string) string {
	for _, k := range keys {
		if _, ok := values[k]; ok {
			return values.Get(k)
		}
	}
	return ""
}

// Normalize validates and canonicalizes raw list parameters.
func Normalize(raw RawParams, limits Limits) (models.FilterSet, error) {
	page, pageSize := Pagination(raw.Page, raw.PageSize, limits)

	fs := models.FilterSet{
		Page:        page,
		PageSize:    pageSize,
		IncludeMeta: parseLenientBool(raw.IncludeMeta),
	}

	fs.Category = DecodeText(raw.Category)
	fs.Brand = DecodeText(raw.Brand)

	var err error
	if fs.IsFlashSale, err = ParseFlag("isFlashSale", raw.IsFlashSale); err != nil {
		return models.FilterSet{}, err
	}
	if fs.IsNew, err = ParseFlag("isNew", raw.IsNew); err != nil {
		return models.FilterSet{}, err
	}

	return fs, nil
}

// Pagination resolves page and pageSize. Missing, non-numeric and non-positive
// values take the defaults; pageSize is capped at the configured maximum.
func Pagination(rawPage, rawPageSize string, limits Limits) (int, int) {
	return Clamp(atoi(rawPage), atoi(rawPageSize), limits)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Clamp applies the same rules as Pagination to already-parsed values.
func Clamp(page, pageSize int, limits Limits) (int, int) {
	limits = limits.withDefaults()

	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = limits.DefaultPageSize
	}
	if pageSize > limits.MaxPageSize {
		pageSize = limits.MaxPageSize
	}
	// page*pageSize must fit in an int so the offset never wraps negative.
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

// DecodeText percent-decodes and trims a text filter. Blank input yields nil.
// '+' is kept literally so values like "C++" survive. A value that is not a
// valid escape sequence, such as an already-decoded "100% Cotton", is used as is.
func DecodeText(raw string) *string {
	value := raw
	if strings.Contains(value, "%") {
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// ParseFlag parses a tri-state boolean: absent means no filter.
func ParseFlag(field, raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1", "yes":
		v := true
		return &v, nil
	case "false", "0", "no":
		v := false
		return &v, nil
	}
	return nil, apperrors.NewValidationError(field, field+" must be a boolean")
}

func parseLenientBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
