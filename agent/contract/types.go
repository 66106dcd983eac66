package contract

import (
	"context"

	statex "github.com/autoosone/auto-state/agent/state"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
	// ParamID accepts a string or an integer.
	ParamID ParamType = "id"
)

// Param describes one argument of an action.
type Param struct {
	Type     ParamType `json:"type"`
	Desc     string    `json:"description,omitempty"`
	Required bool      `json:"required,omitempty"`
	Enum     []string  `json:"enum,omitempty"`
	Fields   Params    `json:"fields,omitempty"`
	Elem     *Param    `json:"items,omitempty"`
}

type Params map[string]*Param

// Readable is a fact the agent may read while it is enabled.
type Readable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       any    `json:"value"`
}

type RenderKind string

const (
	RenderNone    RenderKind = ""
	RenderConfirm RenderKind = "confirm"
	RenderChoose  RenderKind = "choose"
)

// Result is what an action invocation reports back to the agent.
type Result struct {
	Accepted bool         `json:"accepted"`
	Message  string       `json:"message"`
	Stage    statex.Stage `json:"stage"`
	Data     any          `json:"data,omitempty"`
}

type Handler func(ctx context.Context, args map[string]any) (Result, error)

// Action is an invocable capability as registered with the agent bridge.
type Action struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Stage       statex.Stage `json:"stage"`
	Params      Params       `json:"params"`
	Render      RenderKind   `json:"render,omitempty"`
	Handler     Handler      `json:"-"`
}

// Presentation is shown to the user before a render action may mutate state.
type Presentation struct {
	Stage    statex.Stage     `json:"stage"`
	Action   string           `json:"action"`
	Kind     RenderKind       `json:"kind"`
	Prompt   string           `json:"prompt"`
	Products []statex.Product `json:"products,omitempty"`
}

// Response is the user's answer to a Presentation.
type Response struct {
	Accepted bool   `json:"accepted"`
	Choice   string `json:"choice,omitempty"`
}

// Filter narrows catalog listings. Zero values match everything.
type Filter struct {
	Make  string
	Limit int
}

// OrderEvent is published once an order is confirmed.
type OrderEvent struct {
	LocalID   string              `json:"session_id"`
	DurableID *int64              `json:"durable_session_id,omitempty"`
	Contact   *statex.ContactInfo `json:"contact,omitempty"`
	Order     statex.Order        `json:"order"`
}
