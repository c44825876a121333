package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avbelov/webpilot/pkg/browser"
)

func lookupOf(elements map[int]browser.DistilledElement) ElementLookup {
	return func(id int) (browser.DistilledElement, bool) {
		el, ok := elements[id]
		return el, ok
	}
}

func clickElementInv(id int) Invocation {
	return Invocation{Action: ActionClickElement, Params: ClickElementParams{ElementID: id}}
}

func clickTextInv(text string) Invocation {
	return Invocation{Action: ActionClickText, Params: ClickTextParams{Text: text}}
}

func TestGate_DestructiveClickText(t *testing.T) {
	gate := NewGate(true)
	noElements := lookupOf(nil)

	for _, text := range []string{"Checkout", "Оплатить заказ", "Удалить всё", "Submit form", "Unsubscribe"} {
		_, required := gate.RequiresConfirmation(clickTextInv(text), noElements)
		assert.True(t, required, "expected %q to require confirmation", text)
	}

	for _, text := range []string{"next page", "Следующая", "Открыть каталог", "Подробнее"} {
		_, required := gate.RequiresConfirmation(clickTextInv(text), noElements)
		assert.False(t, required, "expected %q to pass without confirmation", text)
	}
}

func TestGate_ClickElementUsesElementSignals(t *testing.T) {
	gate := NewGate(true)
	elements := map[int]browser.DistilledElement{
		0: {ID: 0, Text: "Оплатить", Href: "/pay"},
		1: {ID: 1, Text: "Следующая страница"},
		2: {ID: 2, AriaLabel: "Delete item"},
	}
	lookup := lookupOf(elements)

	label, required := gate.RequiresConfirmation(clickElementInv(0), lookup)
	assert.True(t, required)
	assert.Contains(t, label, "оплатить")

	_, required = gate.RequiresConfirmation(clickElementInv(1), lookup)
	assert.False(t, required)

	_, required = gate.RequiresConfirmation(clickElementInv(2), lookup)
	assert.True(t, required, "aria-label counts as an element signal")
}

func TestGate_UnknownElementPasses(t *testing.T) {
	gate := NewGate(true)
	_, required := gate.RequiresConfirmation(clickElementInv(42), lookupOf(nil))
	assert.False(t, required)
}

func TestGate_OnlyClicksAreGated(t *testing.T) {
	gate := NewGate(true)
	noElements := lookupOf(nil)

	invocations := []Invocation{
		{Action: ActionNavigateURL, Params: NavigateURLParams{URL: "https://pay.example/checkout"}},
		{Action: ActionTypeText, Params: TypeTextParams{ElementID: 0, Text: "delete everything"}},
		{Action: ActionExtractText, Params: ExtractTextParams{Selector: ".checkout"}},
	}
	for _, inv := range invocations {
		_, required := gate.RequiresConfirmation(inv, noElements)
		assert.False(t, required, "%s must never be gated", inv.Action)
	}
}

func TestGate_DisabledPassesEverything(t *testing.T) {
	gate := NewGate(false)
	_, required := gate.RequiresConfirmation(clickTextInv("Оплатить"), lookupOf(nil))
	assert.False(t, required)
}
