package queries

import (
	"database/sql"

	"catalog-search/internal/models"
)

// ProductColumns is the projection ScanProduct expects, in order.
const ProductColumns = "id, name, price, price_old, percent, brand, category, img, rating, " +
	"flash_sale_count, sold, is_flash_sale, is_new, is_loan, is_online, is_upcoming, link, " +
	"created_at, updated_at"

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// ScanProduct reads one row selected with ProductColumns. Tags is left nil for
// the tag aggregator to fill.
func ScanProduct(s Scanner) (models.Product, error) {
	var (
		p                                    models.Product
		name, price, brand, category, img    sql.NullString
		priceOld, percent, rating            sql.NullString
		flashSaleCount, sold, link           sql.NullString
		isFlashSale, isNew, isLoan, isOnline sql.NullBool
		isUpcoming                           sql.NullBool
		createdAt, updatedAt                 sql.NullTime
	)

	err := s.Scan(
		&p.ID, &name, &price, &priceOld, &percent, &brand, &category, &img, &rating,
		&flashSaleCount, &sold, &isFlashSale, &isNew, &isLoan, &isOnline, &isUpcoming, &link,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return models.Product{}, err
	}

	p.Name = name.String
	p.Price = price.String
	p.Brand = brand.String
	p.Category = category.String
	p.Img = img.String
	p.PriceOld = nullable(priceOld)
	p.Percent = nullable(percent)
	p.Rating = nullable(rating)
	p.FlashSaleCount = nullable(flashSaleCount)
	p.Sold = nullable(sold)
	p.Link = nullable(link)
	p.IsFlashSale = isFlashSale.Bool
	p.IsNew = isNew.Bool
	p.IsLoan = isLoan.Bool
	p.IsOnline = isOnline.Bool
	p.IsUpcoming = isUpcoming.Bool
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	return p, nil
}

// ScanProducts drains rows. The result is never nil.
func ScanProducts(rows *sql.Rows) ([]models.Product, error) {
	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
