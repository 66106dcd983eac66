package tool

import (
	"sort"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/cloudwego/eino/schema"
)

// Infos converts actions into model tool descriptions, sorted by name.
func Infos(actions []contractx.Action) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(actions))
	for _, a := range actions {
		out = append(out, Info(a.Name, a.Description, a.Params))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Info(name, desc string, params contractx.Params) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        name,
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(parameterInfos(params)),
	}
}

func parameterInfos(params contractx.Params) map[string]*schema.ParameterInfo {
	out := make(map[string]*schema.ParameterInfo, len(params))
	for name, p := range params {
		if p != nil {
			out[name] = parameterInfo(p)
		}
	}
	return out
}

func parameterInfo(p *contractx.Param) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Desc:     p.Desc,
		Required: p.Required,
		Enum:     p.Enum,
	}
	switch p.Type {
	case contractx.ParamNumber:
		info.Type = schema.Number
	case contractx.ParamInteger:
		info.Type = schema.Integer
	case contractx.ParamBoolean:
		info.Type = schema.Boolean
	case contractx.ParamObject:
		info.Type = schema.Object
		info.SubParams = parameterInfos(p.Fields)
	case contractx.ParamArray:
		info.Type = schema.Array
		if p.Elem != nil {
			info.ElemInfo = parameterInfo(p.Elem)
		}
	case contractx.ParamID:
		info.Type = schema.String
		if info.Desc == "" {
			info.Desc = "identifier (string or integer)"
		}
	default:
		info.Type = schema.String
	}
	return info
}
