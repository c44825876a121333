package agent

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/avbelov/webpilot/pkg/browser"
)

// destructiveKeywords marks click labels whose effect is not trivially
// reversible. Multilingual: the agent mostly works Russian-language sites but
// payment flows are frequently English.
var destructiveKeywords = []string{
	// Payment and purchase.
	"оплатить", "оплата", "заплатить",
	"pay", "payment", "checkout", "purchase",
	"buy now", "buy", "order", "place order",
	// Deletion and clearing.
	"удалить", "удаление", "delete", "remove",
	"trash", "очистить", "clear all", "очистка",
	// Submission and publishing.
	"отправить", "submit", "send",
	"публиковать", "publish", "post",
	// Subscription and archival.
	"unsubscribe", "отписаться",
	"архивировать", "archive",
}

// ElementLookup resolves a distilled element ID to its captured signals.
type ElementLookup func(id int) (browser.DistilledElement, bool)

// Gate decides whether a proposed action needs operator confirmation before
// it runs. Only clicks are ever gated; navigation, typing, and reads cannot
// trigger an irreversible submission on their own.
type Gate struct {
	enabled  bool
	patterns []glob.Glob
}

// NewGate compiles the keyword set. A disabled gate passes everything.
func NewGate(enabled bool) *Gate {
	g := &Gate{enabled: enabled}
	if !enabled {
		return g
	}
	g.patterns = make([]glob.Glob, 0, len(destructiveKeywords))
	for _, kw := range destructiveKeywords {
		g.patterns = append(g.patterns, glob.MustCompile("*"+kw+"*"))
	}
	return g
}

// RequiresConfirmation classifies one invocation. It returns the derived
// label and whether a confirmation prompt is required. The classification is
// computed fresh per call and never stored.
func (g *Gate) RequiresConfirmation(inv Invocation, lookup ElementLookup) (string, bool) {
	if !g.enabled {
		return "", false
	}

	var label string
	switch p := inv.Params.(type) {
	case ClickTextParams:
		label = strings.ToLower(p.Text)
	case ClickElementParams:
		el, ok := lookup(p.ElementID)
		if !ok {
			return "", false
		}
		label = strings.ToLower(strings.Join([]string{el.Text, el.AriaLabel, el.Placeholder, el.Href}, " "))
	default:
		return "", false
	}

	if strings.TrimSpace(label) == "" {
		return "", false
	}
	for _, p := range g.patterns {
		if p.Match(label) {
			return label, true
		}
	}
	return label, false
}
