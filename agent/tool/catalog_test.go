package tool

import (
	"testing"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/cloudwego/eino/schema"
)

var contactParams = contractx.Params{
	"name":  {Type: contractx.ParamString, Required: true},
	"email": {Type: contractx.ParamString, Required: true},
	"phone": {Type: contractx.ParamString, Required: true},
}

func TestInfosSortedByName(t *testing.T) {
	t.Parallel()

	actions := []contractx.Action{
		{Name: "showCar", Description: "Show one car", Params: contractx.Params{
			"car": {Type: contractx.ParamObject, Required: true, Fields: contractx.Params{
				"id":    {Type: contractx.ParamID, Required: true},
				"price": {Type: contractx.ParamNumber, Required: true},
			}},
		}},
		{Name: "getContactInformation", Description: "Collect contact", Params: contactParams},
	}

	infos := Infos(actions)
	if len(infos) != 2 {
		t.Fatalf("expected 2 tool infos, got %d", len(infos))
	}
	if infos[0].Name != "getContactInformation" || infos[1].Name != "showCar" {
		t.Fatalf("unexpected order: %s, %s", infos[0].Name, infos[1].Name)
	}
	if infos[0].Desc != "Collect contact" || infos[0].ParamsOneOf == nil {
		t.Fatalf("unexpected info: %#v", infos[0])
	}
}

func TestParameterInfoNesting(t *testing.T) {
	t.Parallel()

	info := parameterInfo(&contractx.Param{
		Type: contractx.ParamArray,
		Elem: &contractx.Param{Type: contractx.ParamObject, Fields: contractx.Params{
			"id": {Type: contractx.ParamID, Required: true},
		}},
	})
	if info.Type != schema.Array || info.ElemInfo == nil {
		t.Fatalf("unexpected array info: %#v", info)
	}
	if info.ElemInfo.Type != schema.Object {
		t.Fatalf("elem type = %s, want object", info.ElemInfo.Type)
	}
	id := info.ElemInfo.SubParams["id"]
	if id == nil || id.Type != schema.String || !id.Required {
		t.Fatalf("unexpected id info: %#v", id)
	}
}
