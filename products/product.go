package products

import (
	"strings"

	"github.com/go-faster/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks JSON numbers for prices.
	decimal.MarshalJSONWithoutQuotes = true
}

// Rating is the aggregate customer rating of a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog entry. Identity is ID.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

// matches reports whether every term occurs in the product's searchable text.
// Terms must already be lower-cased.
func (p Product) matches(terms []string) bool {
	haystack := strings.ToLower(p.Title + " " + p.Description + " " + p.Category)
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// Draft is the payload for creating or replacing a product.
type Draft struct {
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image,omitempty"`
}

// Validate checks the draft before it is sent.
func (d Draft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&d.Price, validation.By(nonNegative)),
		validation.Field(&d.Category, validation.Required),
		validation.Field(&d.Image, is.URL),
	)
}

func nonNegative(value any) error {
	price, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if price.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}
