// Package page parses the optional page/size query pair used by list
// endpoints.
package page

import "github.com/xenking/promo-pricing/internal/domain/apperror"

var (
	// ErrSizeRequired is returned when a page number is given without a size.
	ErrSizeRequired = apperror.Validation("page size must be specified", nil)
	// ErrInvalidNumber is returned for a page number below one.
	ErrInvalidNumber = apperror.Validation("page number must be greater than zero", nil)
	// ErrInvalidSize is returned for a page size below one.
	ErrInvalidSize = apperror.Validation("page size must be greater than zero", nil)
)

// Page selects a 1-based window of rows. The zero value selects all rows.
type Page struct {
	Number int
	Size   int
}

// All reports whether the page selects every row.
func (p Page) All() bool {
	return p.Number == 0
}

// Limit returns the maximum row count for the page.
func (p Page) Limit() int {
	return p.Size
}

// Offset returns how many rows precede the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Parse validates an optional page number and size. A size without a page
// number is ignored.
func Parse(number, size *int) (Page, error) {
	if number == nil {
		return Page{}, nil
	}
	if size == nil {
		return Page{}, ErrSizeRequired
	}
	if *number <= 0 {
		return Page{}, ErrInvalidNumber
	}
	if *size <= 0 {
		return Page{}, ErrInvalidSize
	}
	return Page{Number: *number, Size: *size}, nil
}
