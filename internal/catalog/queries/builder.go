// Package queries builds parameterized PostgreSQL statements for the product
// catalog. Nothing here touches the database; every user-supplied value ends up
// in Args and is referenced by a $n placeholder.
package queries

import (
	"fmt"
	"strings"

	"catalog-search/internal/models"
)

// Query is one SQL statement and its bound arguments.
type Query struct {
	SQL  string
	Args []interface{}
}

// ProductListQuery pairs a count with a page over the same predicate. Page.Args
// starts with exactly Count.Args followed by limit and offset.
type ProductListQuery struct {
	Count            Query
	Page             Query
	ResolvedCategory *string
	ResolvedBrand    *string
}

// qualityGateColumns must be present and meaningful for a product to be listed.
var qualityGateColumns = []string{"name", "price", "category", "brand", "img"}

const listOrder = "created_at DESC, id DESC"

// where accumulates AND-ed predicates and their arguments.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) bind(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) qualityGate() {
	for _, col := range qualityGateColumns {
		w.add(fmt.Sprintf("%[1]s IS NOT NULL AND TRIM(%[1]s) <> '' AND TRIM(%[1]s) <> 'null'", col))
	}
}

// matchText matches a column case-insensitively, either exactly after trimming
// or as a substring.
func (w *where) matchText(col, value string) {
	exact := w.bind(value)
	like := w.bind("%" + EscapeLike(value) + "%")
	w.add(fmt.Sprintf("(LOWER(TRIM(%s)) = LOWER(%s) OR %s ILIKE %s)", col, exact, col, like))
}

func (w *where) String() string {
	return strings.Join(w.clauses, " AND ")
}

func (w *where) paged(page, pageSize int) ProductListQuery {
	predicate := w.String()
	countArgs := append([]interface{}(nil), w.args...)

	pageArgs := append([]interface{}(nil), w.args...)
	n := len(pageArgs)
	pageArgs = append(pageArgs, pageSize, (page-1)*pageSize)

	return ProductListQuery{
		Count: Query{
			SQL:  "SELECT COUNT(*) FROM products WHERE " + predicate,
			Args: countArgs,
		},
		Page: Query{
			SQL: fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
				ProductColumns, predicate, listOrder, n+1, n+2),
			Args: pageArgs,
		},
	}
}

// BuildProductList builds the count and page statements for a listing. The
// FilterSet is assumed normalized: Page >= 1 and PageSize >= 1.
func BuildProductList(f models.FilterSet) ProductListQuery {
	w := &where{}
	w.qualityGate()

	if f.Category != nil {
		w.matchText("category", *f.Category)
	}
	if f.Brand != nil {
		w.matchText("brand", *f.Brand)
	}
	if f.IsFlashSale != nil {
		w.add("is_flash_sale = " + w.bind(*f.IsFlashSale))
	}
	if f.IsNew != nil {
		w.add("is_new = " + w.bind(*f.IsNew))
	}

	q := w.paged(f.Page, f.PageSize)
	q.ResolvedCategory = f.Category
	q.ResolvedBrand = f.Brand
	return q
}

// BuildProductSearch matches q anywhere in the product name.
func BuildProductSearch(q string, page, pageSize int) ProductListQuery {
	w := &where{}
	w.qualityGate()
	w.add("name ILIKE " + w.bind("%"+EscapeLike(q)+"%"))
	return w.paged(page, pageSize)
}

// BuildProductsByTag lists products carrying exactly tag.
func BuildProductsByTag(tag string, page, pageSize int) ProductListQuery {
	w := &where{}
	w.qualityGate()
	w.add("EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = products.id AND pt.tag = " + w.bind(tag) + ")")
	return w.paged(page, pageSize)
}

// BuildProductByID fetches one row as stored; the quality gate does not apply.
func BuildProductByID(id int64) Query {
	return Query{
		SQL:  "SELECT " + ProductColumns + " FROM products WHERE id = $1",
		Args: []interface{}{id},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters using PostgreSQL's default escape
// character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
