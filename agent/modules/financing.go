package modules

import (
	"context"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	"github.com/shopspring/decimal"
)

const (
	ActionAcceptFinancing        = "acceptFinancing"
	ActionDeclineFinancing       = "declineFinancing"
	ActionChangeVehicle          = "changeVehicle"
	ActionSubmitFinancingDetails = "submitFinancingDetails"

	ReadableFinancingQuotes = "financingQuotes"
)

// FinancingTerms are the loan lengths on offer, in months.
var FinancingTerms = []int{36, 48, 60, 72}

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyPayment is the fixed instalment repaying principal over months at
// annualRate percent, rounded to cents.
func MonthlyPayment(principal, annualRate decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(months))
	r := annualRate.Div(hundred).Div(twelve)
	if !r.IsPositive() {
		return principal.Div(n).Round(2)
	}
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	return principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))).Round(2)
}

type Quote struct {
	TermMonths     int             `json:"termMonths"`
	AnnualRate     decimal.Decimal `json:"annualRate"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
}

func quotes(price, rate decimal.Decimal) []Quote {
	out := make([]Quote, 0, len(FinancingTerms))
	for _, term := range FinancingTerms {
		out = append(out, Quote{TermMonths: term, AnnualRate: rate, MonthlyPayment: MonthlyPayment(price, rate, term)})
	}
	return out
}

func termParam(required bool) *contractx.Param {
	return &contractx.Param{
		Type:     contractx.ParamInteger,
		Desc:     "Loan length in months: 36, 48, 60 or 72",
		Required: required,
	}
}

/* --------------------------- FinancingOffer --------------------------- */

type acceptFinancingInput struct {
	TermMonths int `json:"termMonths" validate:"required,oneof=36 48 60 72"`
}

type noInput struct{}

type financingOffer struct {
	base
	rate decimal.Decimal
}

func newFinancingOffer(d Deps) *financingOffer {
	return &financingOffer{
		base: base{stage: statex.StageFinancingOffer, shared: d.Shared, now: d.Now},
		rate: d.AnnualRate,
	}
}

func (m *financingOffer) Instructions() string {
	return fmt.Sprintf("CURRENT STATE: offer financing for the selected car at %s%% APR using the quotes readable. "+
		"Call %s with the chosen term, %s if the customer prefers to pay in full, or %s if they want another car.",
		m.rate.StringFixed(2), ActionAcceptFinancing, ActionDeclineFinancing, ActionChangeVehicle)
}

func (m *financingOffer) Readables() []contractx.Readable {
	p, ok := m.shared.SelectedProduct()
	if !ok {
		return nil
	}
	return []contractx.Readable{{
		Name:        ReadableFinancingQuotes,
		Description: "Monthly payment quotes for the " + p.Title(),
		Value: map[string]any{
			"price":  p.Price,
			"quotes": quotes(p.Price, m.rate),
		},
	}}
}

func (m *financingOffer) Actions() []*ActionSpec {
	return []*ActionSpec{
		newAction(ActionAcceptFinancing,
			"The customer wants financing for the selected car.",
			contractx.Params{"termMonths": termParam(true)},
			m.accept,
		),
		newAction(ActionDeclineFinancing,
			"The customer will pay in full without financing.",
			contractx.Params{},
			m.decline,
		),
		newAction(ActionChangeVehicle,
			"The customer wants to pick a different car.",
			contractx.Params{},
			m.changeVehicle,
		),
	}
}

func (m *financingOffer) accept(_ context.Context, in acceptFinancingInput, _ contractx.Response) (Effects, error) {
	p, err := m.selected(ActionAcceptFinancing)
	if err != nil {
		return Effects{}, err
	}
	info := statex.FinancingInfo{
		Accepted:       true,
		TermMonths:     in.TermMonths,
		AnnualRate:     m.rate,
		MonthlyPayment: MonthlyPayment(p.Price, m.rate, in.TermMonths),
	}
	m.shared.SetFinancing(&info)
	return Effects{
		Flags:   []FlagMark{flag(statex.FlagFinancingDecided)},
		Next:    m.next(),
		Message: fmt.Sprintf("Financing over %d months comes to about $%s per month. Let's gather a few details.", in.TermMonths, info.MonthlyPayment.StringFixed(2)),
		Data:    info,
	}, nil
}

func (m *financingOffer) decline(_ context.Context, _ noInput, _ contractx.Response) (Effects, error) {
	if _, err := m.selected(ActionDeclineFinancing); err != nil {
		return Effects{}, err
	}
	info := statex.FinancingInfo{Accepted: false}
	m.shared.SetFinancing(&info)
	return Effects{
		Records: []persist.Record{persist.NewFinancingRecord(info)},
		Flags:   []FlagMark{flag(statex.FlagFinancingDecided)},
		Next:    statex.StagePaymentDetails,
		Message: "No problem, let's set up payment in full.",
	}, nil
}

func (m *financingOffer) changeVehicle(_ context.Context, _ noInput, _ contractx.Response) (Effects, error) {
	m.shared.SetSelectedProduct(nil)
	m.shared.SetFinancing(nil)
	return Effects{
		DemoteSelections: true,
		Flags:            []FlagMark{{Flag: statex.FlagProductSelected, Value: false}},
		Next:             statex.StageSelection,
		Message:          "Sure, let's find you another car.",
	}, nil
}

/* -------------------------- FinancingDetails -------------------------- */

type financingDetailsInput struct {
	TermMonths       int             `json:"termMonths" validate:"required,oneof=36 48 60 72"`
	DownPayment      decimal.Decimal `json:"downPayment"`
	AnnualIncome     decimal.Decimal `json:"annualIncome"`
	EmploymentStatus string          `json:"employmentStatus" validate:"omitempty,oneof=employed self-employed unemployed retired student"`
}

type financingDetails struct {
	base
	rate decimal.Decimal
}

func newFinancingDetails(d Deps) *financingDetails {
	return &financingDetails{
		base: base{stage: statex.StageFinancingDetails, shared: d.Shared, now: d.Now},
		rate: d.AnnualRate,
	}
}

func (m *financingDetails) Instructions() string {
	return "CURRENT STATE: collect the financing application details: term, optional down payment, " +
		"annual income and employment status. Then call " + ActionSubmitFinancingDetails + "."
}

func (m *financingDetails) Readables() []contractx.Readable {
	info, ok := m.shared.Financing()
	if !ok {
		return nil
	}
	return []contractx.Readable{{
		Name:        "financingSelection",
		Description: "Financing terms chosen so far",
		Value:       info,
	}}
}

func (m *financingDetails) Actions() []*ActionSpec {
	return []*ActionSpec{
		newAction(ActionSubmitFinancingDetails,
			"Submit the customer's financing application.",
			contractx.Params{
				"termMonths":   termParam(true),
				"downPayment":  {Type: contractx.ParamNumber, Desc: "Down payment in dollars"},
				"annualIncome": {Type: contractx.ParamNumber, Desc: "Annual income in dollars"},
				"employmentStatus": {
					Type: contractx.ParamString,
					Desc: "Employment status",
					Enum: []string{"employed", "self-employed", "unemployed", "retired", "student"},
				},
			},
			m.submit,
		),
	}
}

func (m *financingDetails) submit(_ context.Context, in financingDetailsInput, _ contractx.Response) (Effects, error) {
	p, err := m.selected(ActionSubmitFinancingDetails)
	if err != nil {
		return Effects{}, err
	}
	if in.DownPayment.IsNegative() {
		return Effects{}, invalid("downPayment must not be negative")
	}
	if in.DownPayment.GreaterThanOrEqual(p.Price) {
		return Effects{}, invalid("downPayment must be less than the price %s", p.Price.StringFixed(2))
	}
	if in.AnnualIncome.IsNegative() {
		return Effects{}, invalid("annualIncome must not be negative")
	}

	info := statex.FinancingInfo{
		Accepted:         true,
		TermMonths:       in.TermMonths,
		DownPayment:      in.DownPayment,
		AnnualIncome:     in.AnnualIncome,
		EmploymentStatus: in.EmploymentStatus,
		AnnualRate:       m.rate,
		MonthlyPayment:   MonthlyPayment(p.Price.Sub(in.DownPayment), m.rate, in.TermMonths),
	}
	m.shared.SetFinancing(&info)
	return Effects{
		Records: []persist.Record{persist.NewFinancingRecord(info)},
		Flags:   []FlagMark{flag(statex.FlagFinancingDone)},
		Next:    m.next(),
		Message: fmt.Sprintf("Your financing application is in: $%s per month for %d months.", info.MonthlyPayment.StringFixed(2), info.TermMonths),
		Data:    info,
	}, nil
}
