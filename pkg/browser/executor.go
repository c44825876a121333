package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avbelov/webpilot/pkg/logging"
)

// Limits on what an action result may feed back into the conversation.
const (
	// HistoryJSONLimit bounds the serialized envelope stored as a tool result.
	HistoryJSONLimit = 4000

	// ScreenshotB64Limit bounds the inline base64 payload of a screenshot.
	ScreenshotB64Limit = 20000

	// conciseElementLimit is how many elements a concise analysis reports.
	conciseElementLimit = 20

	// pageTextSampleLimit bounds the cleaned page-text excerpt.
	pageTextSampleLimit = 2000
)

// Settle delays after interactions, giving the page time to react before the
// next observation.
const (
	settleAfterClick  = 800 * time.Millisecond
	settleAfterType   = 500 * time.Millisecond
	settleAfterScroll = 300 * time.Millisecond
)

// Timeouts are per-operation driver timeouts in milliseconds.
type Timeouts struct {
	Click    float64
	Fill     float64
	Navigate float64
	Wait     float64
	Extract  float64
}

// DefaultTimeouts returns the production timeout set.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Click:    5000,
		Fill:     5000,
		Navigate: 15000,
		Wait:     5000,
		Extract:  5000,
	}
}

// DOMAnswerer answers free-form questions about a page snapshot. The agent
// package provides the LLM-backed implementation.
type DOMAnswerer interface {
	Answer(ctx context.Context, question, snapshot string) (string, error)
}

// Executor turns agent actions into driver operations and uniform envelopes.
// It owns the last distilled element set; element IDs in incoming actions
// refer to that set and go stale whenever the page is re-analyzed.
type Executor struct {
	driver        Driver
	log           *logging.Logger
	dom           DOMAnswerer
	screenshotDir string
	timeouts      Timeouts
	elements      []DistilledElement
	sleep         func(time.Duration)
	now           func() time.Time
	writeFile     func(path string, data []byte) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDOMAnswerer wires the sub-agent used by query_dom.
func WithDOMAnswerer(dom DOMAnswerer) ExecutorOption {
	return func(x *Executor) { x.dom = dom }
}

// WithScreenshotDir sets where screenshot files are written.
func WithScreenshotDir(dir string) ExecutorOption {
	return func(x *Executor) { x.screenshotDir = dir }
}

// WithTimeouts overrides the default driver timeouts.
func WithTimeouts(t Timeouts) ExecutorOption {
	return func(x *Executor) { x.timeouts = t }
}

// WithSleep replaces the settle-delay clock, letting tests run instantly.
func WithSleep(fn func(time.Duration)) ExecutorOption {
	return func(x *Executor) { x.sleep = fn }
}

// NewExecutor builds an executor over the given driver.
func NewExecutor(driver Driver, log *logging.Logger, opts ...ExecutorOption) *Executor {
	x := &Executor{
		driver:    driver,
		log:       log,
		timeouts:  DefaultTimeouts(),
		sleep:     time.Sleep,
		now:       time.Now,
		writeFile: writeFile0600,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// LastElements returns the element set from the most recent distillation.
func (x *Executor) LastElements() []DistilledElement {
	out := make([]DistilledElement, len(x.elements))
	copy(out, x.elements)
	return out
}

// ElementByID looks up an element from the last distillation.
func (x *Executor) ElementByID(id int) (DistilledElement, bool) {
	if id < 0 || id >= len(x.elements) {
		return DistilledElement{}, false
	}
	return x.elements[id], true
}

func (x *Executor) refreshElements() ([]DistilledElement, error) {
	els, err := distill(x.driver)
	if err != nil {
		return nil, err
	}
	x.elements = els
	return els, nil
}

// AnalyzePage distills the current page into numbered interactive elements.
// Concise mode reports the first elements with condensed fields; detailed
// mode reports the full set with every captured attribute.
func (x *Executor) AnalyzePage(detailed bool) Envelope {
	const action = "analyze_page"

	els, err := x.refreshElements()
	if err != nil {
		return Fail(action, "Failed to analyze page", ErrAnalysis, err,
			"Wait for the page to finish loading and try again.")
	}

	title, terr := x.driver.Title()
	if terr != nil {
		x.log.Warnf("page title unavailable: %v", terr)
	}

	data := map[string]any{
		"url":           x.driver.URL(),
		"title":         title,
		"element_count": len(els),
	}
	if detailed {
		data["elements"] = els
	} else {
		limit := len(els)
		if limit > conciseElementLimit {
			limit = conciseElementLimit
			data["note"] = fmt.Sprintf("showing first %d of %d elements; use detailed=true or search_elements for more", conciseElementLimit, len(els))
		}
		concise := make([]map[string]any, 0, limit)
		for _, el := range els[:limit] {
			concise = append(concise, map[string]any{
				"id":       el.ID,
				"type":     el.Kind(),
				"text":     el.DisplayText(),
				"location": el.Location,
			})
		}
		data["elements"] = concise
	}

	x.log.Infof("analyzed page %s: %d elements (detailed=%v)", x.driver.URL(), len(els), detailed)
	return OK(action, fmt.Sprintf("Found %d interactive elements on %q", len(els), title), data)
}

// SearchElements filters the last distilled set by a case-insensitive
// substring over text, aria-label, placeholder and href.
func (x *Executor) SearchElements(query string) Envelope {
	const action = "search_elements"

	if strings.TrimSpace(query) == "" {
		return Fail(action, "Empty search query", ErrAnalysis, nil,
			"Pass a word or phrase from the element you are looking for.")
	}
	if len(x.elements) == 0 {
		if _, err := x.refreshElements(); err != nil {
			return Fail(action, "Failed to analyze page before search", ErrAnalysis, err,
				"Run analyze_page() first.")
		}
	}

	needle := strings.ToLower(query)
	matches := make([]map[string]any, 0, 8)
	for _, el := range x.elements {
		haystack := strings.ToLower(strings.Join([]string{el.Text, el.AriaLabel, el.Placeholder, el.Href}, " "))
		if !strings.Contains(haystack, needle) {
			continue
		}
		matches = append(matches, map[string]any{
			"id":       el.ID,
			"type":     el.Kind(),
			"text":     el.DisplayText(),
			"location": el.Location,
		})
	}

	return OK(action,
		fmt.Sprintf("Found %d elements matching %q", len(matches), query),
		map[string]any{"query": query, "match_count": len(matches), "matches": matches})
}

// ValidateTaskComplete gathers the evidence the model needs to judge whether
// the task goal is reflected in the current page state. It never judges
// completion itself.
func (x *Executor) ValidateTaskComplete(expectation string) Envelope {
	const action = "validate_task_complete"

	title, err := x.driver.Title()
	if err != nil {
		return Fail(action, "Failed to read page state", ErrAnalysis, err, "")
	}
	html, err := x.driver.PageHTML()
	if err != nil {
		return Fail(action, "Failed to read page content", ErrAnalysis, err, "")
	}

	sample := VisibleText(html, pageTextSampleLimit)
	data := map[string]any{
		"url":              x.driver.URL(),
		"title":            title,
		"page_text_sample": sample,
	}
	if expectation != "" {
		data["expectation"] = expectation
	}
	return OK(action, "Captured current page state for completion check", data)
}

// QueryDOM forwards a free-form question about the page to the DOM sub-agent
// together with a detailed snapshot.
func (x *Executor) QueryDOM(ctx context.Context, question string) Envelope {
	const action = "query_dom"

	if x.dom == nil {
		return Fail(action, "DOM sub-agent is not configured", ErrDomAgent, nil, "")
	}
	if strings.TrimSpace(question) == "" {
		return Fail(action, "Empty question", ErrDomAgent, nil,
			"Ask a concrete question about the page, e.g. which button submits the form.")
	}

	if _, err := x.refreshElements(); err != nil {
		return Fail(action, "Failed to snapshot page for DOM query", ErrDomAgent, err, "")
	}
	title, _ := x.driver.Title()
	html, herr := x.driver.PageHTML()
	var sample string
	if herr == nil {
		sample = VisibleText(html, pageTextSampleLimit)
	}

	snapshot, err := json.Marshal(map[string]any{
		"url":              x.driver.URL(),
		"title":            title,
		"elements":         x.elements,
		"page_text_sample": sample,
	})
	if err != nil {
		return Fail(action, "Failed to serialize page snapshot", ErrDomAgent, err, "")
	}

	answer, err := x.dom.Answer(ctx, question, string(snapshot))
	if err != nil {
		return Fail(action, "DOM sub-agent query failed", ErrDomAgent, err,
			"Fall back to analyze_page() and inspect the elements directly.")
	}

	return OK(action, "DOM sub-agent answered",
		map[string]any{"question": question, "answer": answer})
}
