package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// StatusRule maps a lower-case substring of the free-text status to a Status.
type StatusRule struct {
	Pattern string
	Status  Status
}

// StatusRules are evaluated top to bottom; the first matching pattern wins.
// Text matching none of them is Pending.
var StatusRules = []StatusRule{
	{Pattern: "andamento", Status: StatusInProgress},
	{Pattern: "atrasad", Status: StatusDelayed},
	{Pattern: "concluído", Status: StatusCompleted},
	{Pattern: "cancelado", Status: StatusCancelled},
}

// ClassifyStatus maps spreadsheet status text onto the status enum.
// It never fails: unknown text falls back to StatusPending.
func ClassifyStatus(text string) Status {
	return classify(StatusRules, text)
}

func classify(rules []StatusRule, text string) Status {
	folded := FoldText(text)
	for _, r := range rules {
		if strings.Contains(folded, r.Pattern) {
			return r.Status
		}
	}
	return StatusPending
}

// FoldText lower-cases text with Portuguese casing rules after NFC
// normalization, so "CONCLUÍDO" typed with a combining accent still matches.
func FoldText(text string) string {
	// Casers keep state between calls and must not be shared.
	return cases.Lower(language.BrazilianPortuguese).String(norm.NFC.String(text))
}
