package catalog

import (
	"context"
	"sort"
	"strings"

	contractx "github.com/autoosone/auto-state/agent/contract"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/shopspring/decimal"
)

// Static serves a fixed inventory.
type Static struct {
	products []statex.Product
}

func NewStatic(vehicles []Vehicle) *Static {
	s := &Static{}
	for _, v := range vehicles {
		if p, ok := ToProduct(v); ok {
			s.products = append(s.products, p)
		}
	}
	sort.SliceStable(s.products, func(i, j int) bool { return s.products[i].Make < s.products[j].Make })
	return s
}

func (s *Static) ListAvailable(_ context.Context, f contractx.Filter) ([]statex.Product, error) {
	out := make([]statex.Product, 0, len(s.products))
	for _, p := range s.products {
		if f.Make != "" && !strings.EqualFold(p.Make, f.Make) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// DemoInventory is the showroom used when no database is configured.
func DemoInventory() []Vehicle {
	row := func(id, brand, model string, year int, color string, price int64) Vehicle {
		return Vehicle{ID: id, Make: brand, Model: model, Year: year, ExteriorColor: color, Price: decimal.NewFromInt(price)}
	}
	return []Vehicle{
		row("1", "Hyundai", "Kona", 2025, "Green", 25000),
		row("2", "Kia", "Tasman", 2025, "Green", 20000),
		row("3", "Kia", "EV6", 2025, "Gray", 22000),
		row("4", "Kia", "EV9", 2025, "Blue", 18000),
		row("5", "Hyundai", "Santa Fe", 2025, "Green", 15000),
		row("6", "Hyundai", "Santa Fe", 2025, "Brown", 27000),
		row("7", "BMW", "330i", 2025, "Alpine White", 62000),
		row("8", "BMW", "X3", 2025, "Black Sapphire", 68000),
		row("9", "BMW", "M4", 2025, "Isle of Man Green", 95600),
		row("10", "Mercedes-Benz", "C300", 2025, "", 65000),
	}
}
