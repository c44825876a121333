package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ActionName is the closed set of actions the model may invoke.
type ActionName string

const (
	ActionAnalyzePage          ActionName = "analyze_page"
	ActionClickElement         ActionName = "click_element"
	ActionTypeText             ActionName = "type_text"
	ActionClickAndType         ActionName = "click_and_type"
	ActionClickText            ActionName = "click_text"
	ActionNavigateURL          ActionName = "navigate_url"
	ActionTakeScreenshot       ActionName = "take_screenshot"
	ActionWaitForElement       ActionName = "wait_for_element"
	ActionSearchElements       ActionName = "search_elements"
	ActionValidateTaskComplete ActionName = "validate_task_complete"
	ActionQueryDOM             ActionName = "query_dom"
	ActionFinishTask           ActionName = "finish_task"
	ActionScrollPage           ActionName = "scroll_page"
	ActionSwitchToPage         ActionName = "switch_to_page"
	ActionGoBack               ActionName = "go_back"
	ActionExtractText          ActionName = "extract_text"
	ActionCollectElements      ActionName = "collect_elements"
	ActionSwitchFrame          ActionName = "switch_frame"
	ActionCloseModal           ActionName = "close_modal"
)

// ActionParams is the tagged-variant parameter record of an invocation. Each
// action carries its own type; dispatch switches over them exhaustively, so
// adding an action without handling it fails at review, not at runtime.
type ActionParams interface{ isActionParams() }

type AnalyzePageParams struct{ Detailed bool }
type ClickElementParams struct{ ElementID int }
type TypeTextParams struct {
	ElementID  int
	Text       string
	PressEnter bool
}
type ClickAndTypeParams struct {
	ElementID int
	Text      string
}
type ClickTextParams struct {
	Text  string
	Exact bool
}
type NavigateURLParams struct{ URL string }
type TakeScreenshotParams struct{ FullPage bool }
type WaitForElementParams struct {
	Query      string
	TimeoutSec float64
}
type SearchElementsParams struct{ Query string }
type ValidateTaskCompleteParams struct{ Hint string }
type QueryDOMParams struct{ Query string }
type FinishTaskParams struct{ Summary string }
type ScrollPageParams struct {
	Direction string
	Amount    float64
}
type SwitchToPageParams struct{ Index int }
type GoBackParams struct{}
type ExtractTextParams struct{ Selector string }
type CollectElementsParams struct {
	Selector string
	Limit    int
}
type SwitchFrameParams struct {
	Selector string
	Index    int
	Reset    bool
}
type CloseModalParams struct{}

func (AnalyzePageParams) isActionParams()          {}
func (ClickElementParams) isActionParams()         {}
func (TypeTextParams) isActionParams()             {}
func (ClickAndTypeParams) isActionParams()         {}
func (ClickTextParams) isActionParams()            {}
func (NavigateURLParams) isActionParams()          {}
func (TakeScreenshotParams) isActionParams()       {}
func (WaitForElementParams) isActionParams()       {}
func (SearchElementsParams) isActionParams()       {}
func (ValidateTaskCompleteParams) isActionParams() {}
func (QueryDOMParams) isActionParams()             {}
func (FinishTaskParams) isActionParams()           {}
func (ScrollPageParams) isActionParams()           {}
func (SwitchToPageParams) isActionParams()         {}
func (GoBackParams) isActionParams()               {}
func (ExtractTextParams) isActionParams()          {}
func (CollectElementsParams) isActionParams()      {}
func (SwitchFrameParams) isActionParams()          {}
func (CloseModalParams) isActionParams()           {}

// Invocation is one validated tool call. Raw keeps the original input for
// operator display and logging.
type Invocation struct {
	ID     string
	Action ActionName
	Params ActionParams
	Raw    map[string]any
}

// ParseInvocation validates and coerces a raw tool call from the completion
// service into a typed invocation. Unknown names and missing required fields
// are errors; the caller turns them into failed envelopes, never a crash.
func ParseInvocation(id, name string, input map[string]any) (Invocation, error) {
	inv := Invocation{ID: id, Action: ActionName(name), Raw: input}
	args := arguments(input)

	var err error
	switch inv.Action {
	case ActionAnalyzePage:
		inv.Params = AnalyzePageParams{Detailed: args.optBool("detailed", args.str("response_format") == "detailed")}
	case ActionClickElement:
		p := ClickElementParams{}
		p.ElementID, err = args.intField("element_id")
		inv.Params = p
	case ActionTypeText:
		p := TypeTextParams{PressEnter: args.optBool("press_enter", false)}
		if p.ElementID, err = args.intField("element_id"); err == nil {
			p.Text, err = args.strField("text")
		}
		inv.Params = p
	case ActionClickAndType:
		p := ClickAndTypeParams{}
		if p.ElementID, err = args.intField("element_id"); err == nil {
			p.Text, err = args.strField("text")
		}
		inv.Params = p
	case ActionClickText:
		p := ClickTextParams{Exact: args.optBool("exact", false)}
		p.Text, err = args.strField("text")
		inv.Params = p
	case ActionNavigateURL:
		p := NavigateURLParams{}
		p.URL, err = args.strField("url")
		inv.Params = p
	case ActionTakeScreenshot:
		inv.Params = TakeScreenshotParams{FullPage: args.optBool("full_page", false)}
	case ActionWaitForElement:
		p := WaitForElementParams{TimeoutSec: args.optFloat("timeout", 5)}
		p.Query, err = args.strField("query")
		inv.Params = p
	case ActionSearchElements:
		p := SearchElementsParams{}
		p.Query, err = args.strField("query")
		inv.Params = p
	case ActionValidateTaskComplete:
		inv.Params = ValidateTaskCompleteParams{Hint: args.str("hint")}
	case ActionQueryDOM:
		p := QueryDOMParams{}
		p.Query, err = args.strField("query")
		inv.Params = p
	case ActionFinishTask:
		inv.Params = FinishTaskParams{Summary: args.str("summary")}
	case ActionScrollPage:
		inv.Params = ScrollPageParams{
			Direction: args.optStr("direction", "down"),
			Amount:    args.optFloat("amount", 600),
		}
	case ActionSwitchToPage:
		inv.Params = SwitchToPageParams{Index: args.optInt("index", -1)}
	case ActionGoBack:
		inv.Params = GoBackParams{}
	case ActionExtractText:
		p := ExtractTextParams{}
		p.Selector, err = args.strField("selector")
		inv.Params = p
	case ActionCollectElements:
		p := CollectElementsParams{Limit: args.optInt("limit", 20)}
		p.Selector, err = args.strField("selector")
		inv.Params = p
	case ActionSwitchFrame:
		inv.Params = SwitchFrameParams{
			Selector: args.str("selector"),
			Index:    args.optInt("index", -1),
			Reset:    args.optBool("reset", false),
		}
	case ActionCloseModal:
		inv.Params = CloseModalParams{}
	default:
		return inv, fmt.Errorf("unknown tool %q", name)
	}

	if err != nil {
		return inv, fmt.Errorf("%s: %w", name, err)
	}
	return inv, nil
}

// arguments wraps the loosely-typed input map with coercing accessors. The
// completion service sends JSON, so numbers arrive as float64 and sometimes
// as quoted strings.
type arguments map[string]any

func (a arguments) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a arguments) optStr(key, def string) string {
	if v := a.str(key); v != "" {
		return v
	}
	return def
}

func (a arguments) strField(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}

func (a arguments) optBool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (a arguments) intField(key string) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	n, ok := coerceInt(v)
	if !ok {
		return 0, fmt.Errorf("field %q must be an integer, got %v", key, v)
	}
	return n, nil
}

func (a arguments) optInt(key string, def int) int {
	if v, ok := a[key]; ok {
		if n, ok := coerceInt(v); ok {
			return n
		}
	}
	return def
}

func (a arguments) optFloat(key string, def float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
