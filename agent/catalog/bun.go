package catalog

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const statusAvailable = "available"

type vehicleRow struct {
	bun.BaseModel `bun:"table:vehicles,alias:v"`

	ID            string          `bun:"id,pk"`
	DealerID      string          `bun:"dealer_id"`
	VIN           string          `bun:"vin"`
	Year          int             `bun:"year"`
	Make          string          `bun:"make"`
	Model         string          `bun:"model"`
	Price         decimal.Decimal `bun:"price,type:numeric(12,2)"`
	ExteriorColor string          `bun:"exterior_color"`
	Status        string          `bun:"status"`
}

// BunCatalog reads available vehicles from the vehicles table.
type BunCatalog struct {
	db *bun.DB
}

func NewBunCatalog(db *bun.DB) (*BunCatalog, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &BunCatalog{db: db}, nil
}

func (c *BunCatalog) ListAvailable(ctx context.Context, f contractx.Filter) ([]statex.Product, error) {
	var rows []vehicleRow
	q := c.db.NewSelect().
		Model(&rows).
		Where("status = ?", statusAvailable).
		Order("make ASC")
	if f.Make != "" {
		q = q.Where("LOWER(make) = LOWER(?)", f.Make)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	out := make([]statex.Product, 0, len(rows))
	for _, r := range rows {
		p, ok := ToProduct(Vehicle{
			ID:            r.ID,
			DealerID:      r.DealerID,
			Make:          r.Make,
			Model:         r.Model,
			Year:          r.Year,
			ExteriorColor: r.ExteriorColor,
			Price:         r.Price,
		})
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Migrate creates the vehicles table when missing.
func (c *BunCatalog) Migrate(ctx context.Context) error {
	if _, err := c.db.NewCreateTable().Model((*vehicleRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create vehicles table: %w", err)
	}
	return nil
}

// Seed inserts vehicles as available stock.
func (c *BunCatalog) Seed(ctx context.Context, vehicles []Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}
	rows := make([]vehicleRow, 0, len(vehicles))
	for _, v := range vehicles {
		rows = append(rows, vehicleRow{
			ID:            v.ID,
			DealerID:      v.DealerID,
			Year:          v.Year,
			Make:          v.Make,
			Model:         v.Model,
			Price:         v.Price,
			ExteriorColor: v.ExteriorColor,
			Status:        statusAvailable,
		})
	}
	if _, err := c.db.NewInsert().Model(&rows).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed vehicles: %w", err)
	}
	return nil
}
