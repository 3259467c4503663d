// Package extract turns raw page text into typed product records by way
// of an external reasoning service, and recovers from the malformed
// output such services routinely produce.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record is one structured product extracted from a page. ImageURL and
// SourceURL are nil when the model omitted the field or when validation
// nulled a hallucinated value.
type Record struct {
	Name        string  `json:"name"`
	Price       Price   `json:"price"`
	Currency    string  `json:"currency"`
	Brand       string  `json:"brand"`
	AgeGroup    string  `json:"age_group"`
	ImageURL    *string `json:"image_url"`
	SourceURL   *string `json:"url"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`

	// StoredURL is attached by the asset pipeline once the referenced
	// image has been durably mirrored. Never produced by the model.
	StoredURL string `json:"-"`
}

// Price tolerates the model returning either a JSON number or a string
// such as "₹1,299".
type Price float64

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Price(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("price is neither number nor string: %s", data)
	}
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", s, err)
	}
	*p = Price(n)
	return nil
}

// Description renders the record as the text block that gets chunked
// and embedded, so every field is visible to downstream retrieval.
func (r Record) Description() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", r.Name)
	fmt.Fprintf(&b, "Brand: %s\n", r.Brand)
	fmt.Fprintf(&b, "Price: %g %s\n", float64(r.Price), r.Currency)
	if r.AgeGroup != "" {
		fmt.Fprintf(&b, "Age: %s\n", r.AgeGroup)
	}
	if r.StoredURL != "" {
		fmt.Fprintf(&b, "Image URL: %s\n", r.StoredURL)
	}
	if r.SourceURL != nil {
		fmt.Fprintf(&b, "Source URL: %s\n", *r.SourceURL)
	}
	return b.String()
}
