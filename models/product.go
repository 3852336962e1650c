package models

import (
	"regexp"
	"strconv"
	"strings"
)

type Label string

const (
	LabelNone       Label = ""
	LabelBestChoice Label = "BestChoice"
	LabelSecondBest Label = "SecondBest"
)

// Product is a provider listing normalized into the common schema.
type Product struct {
	ItemID             string  `json:"itemId"`
	Title              string  `json:"title"`
	Price              string  `json:"price"`
	OriginalPrice      string  `json:"originalPrice,omitempty"`
	PriceNumeric       float64 `json:"priceNumeric"`
	Source             string  `json:"source"`
	GalleryURL         string  `json:"galleryURL"`
	ViewItemURL        string  `json:"viewItemURL"`
	OriginalSearchTerm string  `json:"originalSearchTerm,omitempty"`
	RefinedSearchTerm  string  `json:"refinedSearchTerm,omitempty"`
	Label              Label   `json:"label,omitempty"`

	// Rank is the merge position, used to restore relevance order after a price sort.
	Rank int `json:"-"`
	// Currency is the currency detected on the provider's original price.
	Currency string `json:"-"`
}

var numericToken = regexp.MustCompile(`[\d,]+\.?\d*`)

// NumericToken returns the leading numeric token of a price string with
// thousands separators removed.
func NumericToken(price string) (string, bool) {
	match := numericToken.FindString(price)
	if match == "" {
		return "", false
	}
	match = strings.ReplaceAll(match, ",", "")
	if match == "" || match == "." {
		return "", false
	}
	return match, true
}

// ParsePriceNumeric extracts a sortable amount from a display price. Unparseable
// prices yield 0.
func ParsePriceNumeric(price string) float64 {
	token, ok := NumericToken(price)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(token, "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// CloneProducts copies a product slice so callers can annotate it freely.
func CloneProducts(products []Product) []Product {
	if products == nil {
		return nil
	}
	out := make([]Product, len(products))
	copy(out, products)
	return out
}
