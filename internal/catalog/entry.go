package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"storelink/internal/db"
)

var ErrMissingItemID = errors.New("item_id missing")

var (
	// maxPrice is the largest value NUMERIC(15,2) can hold.
	maxPrice = decimal.RequireFromString("9999999999999.99")
	maxStock = decimal.NewFromInt(math.MaxInt32)
)

// ToProduct maps one catalog entry to a product row. Missing numbers become
// zero and missing strings become empty; a present but malformed value is an
// error for this entry only.
func ToProduct(e map[string]any) (db.Product, error) {
	var p db.Product

	id, err := str(e["item_id"])
	if err != nil {
		return p, fmt.Errorf("item_id: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return p, ErrMissingItemID
	}
	p.ItemID = strings.TrimSpace(id)

	if p.ItemName, err = str(e["item_name"]); err != nil {
		return p, fmt.Errorf("item %s: item_name: %w", p.ItemID, err)
	}
	if p.ItemSKU, err = str(e["item_sku"]); err != nil {
		return p, fmt.Errorf("item %s: item_sku: %w", p.ItemID, err)
	}
	if p.Price, err = price(e["price"]); err != nil {
		return p, fmt.Errorf("item %s: price: %w", p.ItemID, err)
	}
	if p.Stock, err = stock(e["stock"]); err != nil {
		return p, fmt.Errorf("item %s: stock: %w", p.ItemID, err)
	}
	return p, nil
}

func str(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	}
	return "", fmt.Errorf("unexpected %s", jsonKind(v))
}

// number parses a json.Number or numeric string. ok is false when the value
// is absent or blank.
func number(v any) (d decimal.Decimal, ok bool, err error) {
	var s string
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false, nil
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, false, nil
		}
	default:
		return decimal.Zero, false, fmt.Errorf("unexpected %s", jsonKind(v))
	}
	d, err = decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("not a number: %q", s)
	}
	return d, true, nil
}

func price(v any) (decimal.Decimal, error) {
	d, ok, err := number(v)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return d, fmt.Errorf("negative value %s", d)
	}
	d = d.Round(2)
	if d.GreaterThan(maxPrice) {
		return d, fmt.Errorf("value %s out of range", d)
	}
	return d, nil
}

func stock(v any) (int64, error) {
	d, ok, err := number(v)
	if err != nil || !ok {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("fractional value %s", d)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative value %s", d)
	}
	if d.GreaterThan(maxStock) {
		return 0, fmt.Errorf("value %s out of range", d)
	}
	return d.IntPart(), nil
}
