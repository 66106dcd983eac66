package modules

import (
	"context"
	"fmt"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
)

const ActionGetContactInformation = "getContactInformation"

type contactInfo struct {
	base
}

func newContactInfo(d Deps) *contactInfo {
	return &contactInfo{base: base{stage: statex.StageContactInfo, shared: d.Shared, now: d.Now}}
}

func (m *contactInfo) Instructions() string {
	return "CURRENT STATE: collect the customer's name, email address and phone number. " +
		"Once you have all three, call " + ActionGetContactInformation + ". Do not move on without them."
}

func (m *contactInfo) Actions() []*ActionSpec {
	return []*ActionSpec{
		newAction(ActionGetContactInformation,
			"Record the customer's contact information.",
			contractx.Params{
				"name":  {Type: contractx.ParamString, Desc: "Full name", Required: true},
				"email": {Type: contractx.ParamString, Desc: "Email address", Required: true},
				"phone": {Type: contractx.ParamString, Desc: "Phone number", Required: true},
			},
			m.submit,
		),
	}
}

func (m *contactInfo) submit(_ context.Context, in statex.ContactInfo, _ contractx.Response) (Effects, error) {
	m.shared.SetContact(in)
	return Effects{
		Records: []persist.Record{persist.NewContactRecord(in)},
		Flags:   []FlagMark{flag(statex.FlagContactDone)},
		Next:    m.next(),
		Message: fmt.Sprintf("Thank you for that information, %s! What sort of car would you like to see?", in.Name),
	}, nil
}
