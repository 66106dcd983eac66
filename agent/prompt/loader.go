package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/sales_flow.txt
var salesFlowRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	SalesFlow string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		SalesFlow: strings.TrimSpace(salesFlowRaw),
	}
}
