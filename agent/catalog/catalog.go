// Package catalog supplies the products offered during the Selection stage.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/shopspring/decimal"
)

const defaultColor = "Not specified"

var luxuryMakes = map[string]struct{}{
	"BMW":           {},
	"Mercedes-Benz": {},
	"Audi":          {},
	"Porsche":       {},
	"Land Rover":    {},
}

var spaces = regexp.MustCompile(`\s+`)

// Vehicle is a raw inventory row before it becomes a Product.
type Vehicle struct {
	ID            string
	DealerID      string
	Make          string
	Model         string
	Year          int
	ExteriorColor string
	Price         decimal.Decimal
}

// ToProduct normalises an inventory row. Rows missing make, model, year or
// a positive price are rejected.
func ToProduct(v Vehicle) (statex.Product, bool) {
	brand := strings.TrimSpace(v.Make)
	model := strings.TrimSpace(v.Model)
	if brand == "" || model == "" || v.Year <= 0 || !v.Price.IsPositive() {
		return statex.Product{}, false
	}

	color := strings.TrimSpace(v.ExteriorColor)
	if color == "" {
		color = defaultColor
	}
	author := strings.TrimSpace(v.DealerID)
	if author == "" {
		author = brand
	}

	return statex.Product{
		ID:    statex.ProductID(v.ID),
		Make:  brand,
		Model: model,
		Year:  v.Year,
		Color: color,
		Price: v.Price,
		Image: &statex.Image{
			Src:    imageSrc(brand, model),
			Alt:    fmt.Sprintf("%d %s %s", v.Year, brand, model),
			Author: author,
		},
	}, true
}

func imageSrc(brand, model string) string {
	slug := strings.ToLower(brand) + "-" + spaces.ReplaceAllString(strings.ToLower(model), "-")
	return "/images/" + slug + ".jpg"
}

// Summary is the inventory view offered to the agent.
type Summary struct {
	TotalVehicles  int              `json:"totalVehicles"`
	AvailableMakes []string         `json:"availableMakes"`
	Vehicles       []statex.Product `json:"vehicles"`
	Luxury         []statex.Product `json:"luxuryVehicles"`
	Loading        bool             `json:"loading"`
	Unavailable    bool             `json:"unavailable,omitempty"`
}

func Summarize(products []statex.Product) Summary {
	s := Summary{
		TotalVehicles:  len(products),
		AvailableMakes: []string{},
		Vehicles:       products,
		Luxury:         []statex.Product{},
	}
	if s.Vehicles == nil {
		s.Vehicles = []statex.Product{}
	}
	seen := make(map[string]struct{})
	for _, p := range products {
		if _, ok := seen[p.Make]; !ok && p.Make != "" {
			seen[p.Make] = struct{}{}
			s.AvailableMakes = append(s.AvailableMakes, p.Make)
		}
		if _, ok := luxuryMakes[p.Make]; ok {
			s.Luxury = append(s.Luxury, p)
		}
	}
	sort.Strings(s.AvailableMakes)
	return s
}

// Find returns the product with id.
func Find(products []statex.Product, id statex.ProductID) (statex.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return statex.Product{}, false
}
