package modules

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/google/uuid"
)

const (
	ActionConfirmOrder = "confirmOrder"

	ReadableOrderSummary = "orderSummary"
)

type confirmation struct {
	base
}

func newConfirmation(d Deps) *confirmation {
	return &confirmation{base: base{stage: statex.StageConfirmation, shared: d.Shared, now: d.Now}}
}

func (m *confirmation) Instructions() string {
	return "CURRENT STATE: summarise the order from the order summary readable and ask the customer to confirm. " +
		"Call " + ActionConfirmOrder + " once they agree. An order can only be confirmed once."
}

func (m *confirmation) Readables() []contractx.Readable {
	summary := map[string]any{
		"confirmed": m.shared.Session().Flags.OrderConfirmed,
	}
	if p, ok := m.shared.SelectedProduct(); ok {
		summary["product"] = p
		summary["total"] = p.Price
	}
	if f, ok := m.shared.Financing(); ok {
		summary["financing"] = f
	}
	if pay, ok := m.shared.Payment(); ok {
		summary["payment"] = pay
	}
	if orders := m.shared.Orders(); len(orders) > 0 {
		summary["order"] = orders[len(orders)-1]
	}
	return []contractx.Readable{{
		Name:        ReadableOrderSummary,
		Description: "Everything the customer is about to confirm",
		Value:       summary,
	}}
}

func (m *confirmation) Actions() []*ActionSpec {
	confirm := newAction(ActionConfirmOrder,
		"Place the order after the customer confirms.",
		contractx.Params{},
		m.confirm,
	)
	return []*ActionSpec{withPresent(confirm, contractx.RenderConfirm, m.present)}
}

func (m *confirmation) present(_ context.Context, _ noInput) (contractx.Presentation, []persist.Record, error) {
	if m.shared.Session().Flags.OrderConfirmed {
		return contractx.Presentation{}, nil, contractx.ErrAlreadyConfirmed
	}
	p, err := m.selected(ActionConfirmOrder)
	if err != nil {
		return contractx.Presentation{}, nil, err
	}
	return contractx.Presentation{
		Stage:    m.stage,
		Action:   ActionConfirmOrder,
		Kind:     contractx.RenderConfirm,
		Prompt:   fmt.Sprintf("Confirm your order for the %s at $%s?", p.Title(), p.Price.StringFixed(2)),
		Products: []statex.Product{p},
	}, nil, nil
}

func (m *confirmation) confirm(_ context.Context, _ noInput, _ contractx.Response) (Effects, error) {
	if m.shared.Session().Flags.OrderConfirmed {
		return Effects{}, contractx.ErrAlreadyConfirmed
	}
	p, err := m.selected(ActionConfirmOrder)
	if err != nil {
		return Effects{}, err
	}
	pay, ok := m.shared.Payment()
	if !ok {
		return Effects{}, fmt.Errorf("%w: %s requires payment details", contractx.ErrInvariant, ActionConfirmOrder)
	}

	order := statex.Order{
		OrderNumber:   "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		Product:       p,
		Total:         p.Price,
		PaymentMethod: pay.Method,
		CreatedAt:     m.now().UTC(),
	}
	if f, ok := m.shared.Financing(); ok && f.Accepted {
		order.Financed = true
		order.TermMonths = f.TermMonths
		order.MonthlyPayment = f.MonthlyPayment
	}
	m.shared.AppendOrder(order)

	return Effects{
		Records: []persist.Record{persist.NewOrderRecord(order)},
		Flags:   []FlagMark{flag(statex.FlagOrderConfirmed)},
		Message: fmt.Sprintf("Your order %s is confirmed. Thank you!", order.OrderNumber),
		Data:    order,
		Order:   &order,
	}, nil
}
