package modules

import (
	"context"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
	toolx "github.com/autoosone/auto-state/agent/tool"
)

const ActionSubmitPaymentDetails = "submitPaymentDetails"

var paymentMethods = []string{"card", "bank_transfer", "cash"}

type paymentInput struct {
	Method         string `json:"method" validate:"required,oneof=card bank_transfer cash"`
	CardholderName string `json:"cardholderName"`
	CardLast4      string `json:"cardLast4"`
}

type paymentDetails struct {
	base
}

func newPaymentDetails(d Deps) *paymentDetails {
	return &paymentDetails{base: base{stage: statex.StagePaymentDetails, shared: d.Shared, now: d.Now}}
}

func (m *paymentDetails) Instructions() string {
	return "CURRENT STATE: ask how the customer will pay (card, bank transfer or cash). " +
		"For cards, collect the cardholder name and the last four digits only. Then call " + ActionSubmitPaymentDetails + "."
}

func (m *paymentDetails) Actions() []*ActionSpec {
	return []*ActionSpec{
		newAction(ActionSubmitPaymentDetails,
			"Record how the customer will pay.",
			contractx.Params{
				"method":         {Type: contractx.ParamString, Desc: "Payment method", Required: true, Enum: paymentMethods},
				"cardholderName": {Type: contractx.ParamString, Desc: "Name on the card"},
				"cardLast4":      {Type: contractx.ParamString, Desc: "Last four digits of the card"},
			},
			m.submit,
		),
	}
}

func (m *paymentDetails) submit(_ context.Context, in paymentInput, _ contractx.Response) (Effects, error) {
	info := statex.PaymentInfo{
		Method:         in.Method,
		CardholderName: in.CardholderName,
		CardLast4:      in.CardLast4,
	}
	if err := toolx.ValidateStruct(info); err != nil {
		return Effects{}, err
	}
	m.shared.SetPayment(info)
	return Effects{
		Records: []persist.Record{persist.NewPaymentRecord(info)},
		Flags:   []FlagMark{flag(statex.FlagPaymentDone)},
		Next:    m.next(),
		Message: "Payment details saved. Please review and confirm your order.",
	}, nil
}
