package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/autoosone/auto-state/agent/catalog"
	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/rs/zerolog/log"
)

const (
	ActionShowCar          = "showCar"
	ActionShowMultipleCars = "showMultipleCars"

	ReadableInventory = "inventory"

	catalogLoadTimeout = 10 * time.Second
)

var carParam = &contractx.Param{
	Type: contractx.ParamObject,
	Desc: "A car from the inventory",
	Fields: contractx.Params{
		"id":    {Type: contractx.ParamID, Desc: "The car id", Required: true},
		"make":  {Type: contractx.ParamString, Desc: "The car make"},
		"model": {Type: contractx.ParamString, Desc: "The car model"},
		"year":  {Type: contractx.ParamInteger, Desc: "The car year"},
		"color": {Type: contractx.ParamString, Desc: "The car color"},
		"price": {Type: contractx.ParamNumber, Desc: "The car price", Required: true},
		"image": {Type: contractx.ParamObject, Desc: "The car image", Fields: contractx.Params{
			"src":    {Type: contractx.ParamString},
			"alt":    {Type: contractx.ParamString},
			"author": {Type: contractx.ParamString},
		}},
	},
}

type showCarInput struct {
	Car statex.Product `json:"car"`
}

type showCarsInput struct {
	Cars []statex.Product `json:"cars" validate:"required,min=1,dive"`
}

type selection struct {
	base
	catalog contractx.Catalog

	mu          sync.Mutex
	products    []statex.Product
	loading     bool
	unavailable bool
	generation  int
	cancel      context.CancelFunc
	// browsed holds the cars already recorded as browsing history during
	// the current activation.
	browsed map[statex.ProductID]bool
}

func newSelection(d Deps) *selection {
	return &selection{
		base:    base{stage: statex.StageSelection, shared: d.Shared, now: d.Now},
		catalog: d.Catalog,
	}
}

func (m *selection) Instructions() string {
	if m.Loading() {
		return fmt.Sprintf("CURRENT STATE: the inventory is still loading. Ask the customer what they are looking for. "+
			"%s already works when you know the car id and price.", ActionShowCar)
	}
	m.mu.Lock()
	n := len(m.products)
	m.mu.Unlock()
	return fmt.Sprintf("CURRENT STATE: help the customer pick a car from the inventory (%d vehicles available). "+
		"Use %s for one car or %s to compare several. Only cars from the inventory readable may be shown.",
		n, ActionShowCar, ActionShowMultipleCars)
}

// Activate starts the catalog load in the background. The catalog is only
// read while this stage is active.
func (m *selection) Activate(ctx context.Context, changed func()) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.generation++
	gen := m.generation
	m.loading = true
	m.unavailable = false
	m.browsed = make(map[statex.ProductID]bool)
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLoadTimeout)
	m.cancel = cancel
	m.mu.Unlock()

	if m.catalog == nil {
		cancel()
		m.finishLoad(gen, nil, errors.New("no catalog configured"), changed)
		return
	}

	go func() {
		defer cancel()
		products, err := m.catalog.ListAvailable(loadCtx, contractx.Filter{})
		m.finishLoad(gen, products, err, changed)
	}()
}

func (m *selection) finishLoad(gen int, products []statex.Product, err error, changed func()) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.loading = false
	if err != nil {
		m.products = nil
		m.unavailable = true
	} else {
		m.products = products
	}
	m.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("stage", string(m.stage)).Msg("catalog load failed")
	} else {
		log.Debug().Int("vehicles", len(products)).Msg("catalog loaded")
	}
	if changed != nil {
		changed()
	}
}

func (m *selection) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.generation++
	m.loading = false
}

// Loading reports whether the catalog load is still running.
func (m *selection) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *selection) Readables() []contractx.Readable {
	m.mu.Lock()
	summary := catalog.Summarize(m.products)
	summary.Loading = m.loading
	summary.Unavailable = m.unavailable
	m.mu.Unlock()

	return []contractx.Readable{{
		Name:        ReadableInventory,
		Description: fmt.Sprintf("Vehicle inventory (%d vehicles)", summary.TotalVehicles),
		Value:       summary,
	}}
}

func (m *selection) Actions() []*ActionSpec {
	showCar := newAction(ActionShowCar,
		"Show a single car to the customer. Selecting it moves on to financing.",
		contractx.Params{"car": withRequired(carParam)},
		m.selectOne,
	)
	showCar = withPresent(showCar, contractx.RenderConfirm, m.presentOne)

	showCars := newAction(ActionShowMultipleCars,
		"Show several cars side by side. The customer's pick is selected.",
		contractx.Params{"cars": {Type: contractx.ParamArray, Desc: "Cars to compare", Required: true, Elem: carParam}},
		m.selectFromMany,
	)
	showCars = withPresent(showCars, contractx.RenderChoose, m.presentMany)

	return []*ActionSpec{showCar, showCars}
}

func (m *selection) presentOne(_ context.Context, in showCarInput) (contractx.Presentation, []persist.Record, error) {
	p, err := m.resolve(in.Car)
	if err != nil {
		return contractx.Presentation{}, nil, err
	}
	return contractx.Presentation{
		Stage:    m.stage,
		Action:   ActionShowCar,
		Kind:     contractx.RenderConfirm,
		Prompt:   "Would you like this " + p.Title() + "?",
		Products: []statex.Product{p},
	}, nil, nil
}

func (m *selection) presentMany(_ context.Context, in showCarsInput) (contractx.Presentation, []persist.Record, error) {
	now := m.now()
	products := make([]statex.Product, 0, len(in.Cars))
	browsing := make([]persist.Record, 0, len(in.Cars))
	for _, car := range in.Cars {
		p, err := m.resolve(car)
		if err != nil {
			return contractx.Presentation{}, nil, err
		}
		products = append(products, p)
	}

	m.mu.Lock()
	if m.browsed == nil {
		m.browsed = make(map[statex.ProductID]bool)
	}
	for _, p := range products {
		if m.browsed[p.ID] {
			continue
		}
		m.browsed[p.ID] = true
		browsing = append(browsing, persist.NewSelectionRecord(p, now, false))
	}
	m.mu.Unlock()

	return contractx.Presentation{
		Stage:    m.stage,
		Action:   ActionShowMultipleCars,
		Kind:     contractx.RenderChoose,
		Prompt:   "Which of these cars would you like?",
		Products: products,
	}, browsing, nil
}

func (m *selection) selectOne(_ context.Context, in showCarInput, _ contractx.Response) (Effects, error) {
	p, err := m.resolve(in.Car)
	if err != nil {
		return Effects{}, err
	}
	return m.choose(p), nil
}

func (m *selection) selectFromMany(_ context.Context, in showCarsInput, resp contractx.Response) (Effects, error) {
	choice := statex.ProductID(strings.TrimSpace(resp.Choice))
	for _, car := range in.Cars {
		if car.ID != choice {
			continue
		}
		p, err := m.resolve(car)
		if err != nil {
			return Effects{}, err
		}
		return m.choose(p), nil
	}
	return Effects{}, invalid("choice %q is not one of the shown cars", resp.Choice)
}

func (m *selection) choose(p statex.Product) Effects {
	m.shared.SetSelectedProduct(&p)
	return Effects{
		Records: []persist.Record{persist.NewSelectionRecord(p, m.now(), true)},
		Flags:   []FlagMark{flag(statex.FlagProductSelected)},
		Next:    m.next(),
		Message: fmt.Sprintf("Great choice! The %s is selected. Would you like to hear about financing?", p.Title()),
		Data:    p,
	}
}

// resolve fills attributes the agent left out from the loaded catalog. A
// car the catalog knows always carries the catalog price.
func (m *selection) resolve(p statex.Product) (statex.Product, error) {
	if p.ID == "" {
		return statex.Product{}, invalid("car id is required")
	}
	if !p.Price.IsPositive() {
		return statex.Product{}, invalid("car %s must have a positive price", p.ID)
	}

	m.mu.Lock()
	known, ok := catalog.Find(m.products, p.ID)
	m.mu.Unlock()
	if !ok {
		return p, nil
	}
	if !known.Price.Equal(p.Price) {
		log.Debug().Str("product_id", p.ID.String()).Str("offered", p.Price.String()).
			Str("catalog", known.Price.String()).Msg("using catalog price")
		p.Price = known.Price
	}
	if p.Make == "" {
		p.Make = known.Make
	}
	if p.Model == "" {
		p.Model = known.Model
	}
	if p.Year == 0 {
		p.Year = known.Year
	}
	if p.Color == "" {
		p.Color = known.Color
	}
	if p.Image == nil {
		p.Image = known.Image
	}
	return p, nil
}

func withRequired(p *contractx.Param) *contractx.Param {
	cp := *p
	cp.Required = true
	return &cp
}
