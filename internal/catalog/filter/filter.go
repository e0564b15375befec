// Package filter selects and orders normalized records without mutating
// the input slice.
package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"labelforge/internal/catalog/models"
	"labelforge/internal/catalog/normalize"
)

// Apply returns the records cfg selects, in input order.
func Apply(records []models.NormalizedRecord, cfg models.FilterConfig) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if cfg.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Order names a sort key.
type Order string

const (
	OrderNone    Order = "none"
	OrderType    Order = "type"
	OrderLineage Order = "lineage"
	OrderBrand   Order = "brand"
	OrderPrice   Order = "price"
)

// ParseOrder validates an order name; blank means OrderNone.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return OrderNone, nil
	case OrderNone, OrderType, OrderLineage, OrderBrand, OrderPrice:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Key is the explicit sort tuple of a record.
type Key struct {
	Primary     int
	Price       float64
	Brand       string
	Description string
}

// SortKey is a pure function of the record and the order.
func SortKey(r models.NormalizedRecord, by Order) Key {
	k := Key{
		Brand:       strings.ToLower(r.Brand),
		Description: strings.ToLower(r.Description),
	}
	switch by {
	case OrderType:
		k.Primary = r.ProductType.Rank()
	case OrderLineage:
		k.Primary = r.Lineage.Rank()
	case OrderPrice:
		if v, ok := normalize.ParsePrice(r.PriceDisplay); ok {
			k.Price = v
		} else {
			k.Primary = 1
		}
	case OrderBrand, OrderNone:
	}
	return k
}

func compareKeys(a, b Key, by Order) int {
	if by == OrderPrice {
		// unparsable prices last
		if c := cmp.Compare(a.Primary, b.Primary); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Price, b.Price); c != 0 {
			return c
		}
	} else if c := cmp.Compare(a.Primary, b.Primary); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Brand, b.Brand); c != 0 {
		return c
	}
	return cmp.Compare(a.Description, b.Description)
}

// Sort returns a stably sorted copy. OrderNone returns the input order.
func Sort(records []models.NormalizedRecord, by Order) []models.NormalizedRecord {
	out := slices.Clone(records)
	if by == OrderNone || by == "" {
		return out
	}
	slices.SortStableFunc(out, func(a, b models.NormalizedRecord) int {
		return compareKeys(SortKey(a, by), SortKey(b, by), by)
	})
	return out
}
