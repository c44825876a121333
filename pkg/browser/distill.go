package browser

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxDistilledElements caps one distillation pass.
const MaxDistilledElements = 200

// interactiveSelector is the candidate set for distillation: native controls,
// links, ARIA button/link roles, and explicit click handlers.
const interactiveSelector = "button, input, textarea, select, option, a, [role=button], [role=link], [onclick]"

// DistilledElement is one interactive candidate from a page snapshot. ID is
// 0-based and only valid until the next distillation; Marker is the stable
// attribute stamped onto the live node so it can be re-located within the
// same snapshot generation.
type DistilledElement struct {
	ID          int    `json:"id"`
	Marker      string `json:"-"`
	Tag         string `json:"tag"`
	Role        string `json:"role,omitempty"`
	InputType   string `json:"input_type,omitempty"`
	Text        string `json:"text"`
	Placeholder string `json:"placeholder,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	Href        string `json:"href,omitempty"`
	Location    string `json:"location"`
}

// DisplayText returns the best human-readable caption for the element.
func (e DistilledElement) DisplayText() string {
	if e.Text != "" {
		return e.Text
	}
	if e.AriaLabel != "" {
		return e.AriaLabel
	}
	return e.Placeholder
}

// Kind returns the most specific type label (input type over tag name).
func (e DistilledElement) Kind() string {
	if e.InputType != "" {
		return e.InputType
	}
	return e.Tag
}

// distillScript runs in the page. It walks modal-dialog descendants first so
// agent-visible IDs match what a human would interact with first, filters to
// visibly rendered nodes, stamps each with a generation-scoped marker, and
// caps the result.
const distillScript = `
(nodes, stamp) => {
  const isVisible = (el) => {
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (!rect || rect.width === 0 || rect.height === 0) return false;
    if (style.visibility === 'hidden' || style.display === 'none' || Number(style.opacity) === 0) return false;
    return true;
  };

  const interactive = 'button, input, textarea, select, option, a, [role=button], [role=link], [onclick]';
  const dialogNodes = [];
  const dialogs = Array.from(document.querySelectorAll('[role=dialog], [aria-modal="true"]'));
  for (const dlg of dialogs) {
    dialogNodes.push(...Array.from(dlg.querySelectorAll(interactive)));
  }

  const pageNodes = Array.from(nodes);
  const allNodes = dialogs.length ? [...dialogNodes, ...pageNodes] : pageNodes;

  let id = 0;
  const distilled = [];
  const seen = new Set();
  for (const el of allNodes) {
    if (seen.has(el)) continue;
    seen.add(el);
    if (!isVisible(el)) continue;
    const marker = stamp + '-' + id++;
    el.setAttribute('data-agent-id', marker);
    const rect = el.getBoundingClientRect();
    distilled.push({
      marker: marker,
      tag: (el.tagName || '').toLowerCase(),
      role: el.getAttribute('role') || '',
      inputType: el.type || '',
      text: (el.innerText || el.value || '').trim().slice(0, 120),
      placeholder: el.placeholder || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      href: el.href || '',
      location: Math.round(rect.top) + 'x' + Math.round(rect.left),
    });
    if (distilled.length >= 200) break;
  }
  return distilled;
}
`

// distill snapshots the live page into a fresh element generation. The
// returned set wholesale-replaces any previous one.
func distill(d Driver) ([]DistilledElement, error) {
	stamp := uuid.NewString()[:8]
	raw, err := d.EvalOnSelectorAll(interactiveSelector, distillScript, stamp)
	if err != nil {
		return nil, fmt.Errorf("distill page: %w", err)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("distill page: unexpected result shape %T", raw)
	}

	elements := make([]DistilledElement, 0, len(items))
	for idx, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		elements = append(elements, DistilledElement{
			ID:          idx,
			Marker:      str(fields, "marker"),
			Tag:         str(fields, "tag"),
			Role:        str(fields, "role"),
			InputType:   str(fields, "inputType"),
			Text:        str(fields, "text"),
			Placeholder: str(fields, "placeholder"),
			AriaLabel:   str(fields, "ariaLabel"),
			Href:        str(fields, "href"),
			Location:    str(fields, "location"),
		})
	}
	return elements, nil
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
