package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if set.SalesFlow == "" {
		t.Fatalf("SalesFlow prompt is empty")
	}
	for _, placeholder := range []string{"{instructions}", "{context}"} {
		if !strings.Contains(set.SalesFlow, placeholder) {
			t.Fatalf("SalesFlow prompt missing %s", placeholder)
		}
	}
	if set.SalesFlow != strings.TrimSpace(set.SalesFlow) {
		t.Fatalf("SalesFlow prompt is not trimmed")
	}
}
