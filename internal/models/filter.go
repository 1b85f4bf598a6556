// internal/models/filter.go
package models

// FilterSet is the canonical, request-scoped product filter. Optional filters
// are nil when the client did not supply them.
type FilterSet struct {
	Page        int
	PageSize    int
	Category    *string
	Brand       *string
	IsFlashSale *bool
	IsNew       *bool
	IncludeMeta bool
}

// Offset returns the row offset for the current page.
func (f FilterSet) Offset() int {
	return (f.Page - 1) * f.PageSize
}
