package browser

import "encoding/json"

// ErrorKind classifies an action-level failure. Every failed envelope carries
// exactly one kind; none of them abort the agent loop.
type ErrorKind string

const (
	ErrElementNotFound ErrorKind = "ElementNotFound"
	ErrTimeout         ErrorKind = "Timeout"
	ErrClick           ErrorKind = "ClickError"
	ErrType            ErrorKind = "TypeError"
	ErrNavigation      ErrorKind = "NavigationError"
	ErrScreenshot      ErrorKind = "ScreenshotError"
	ErrScroll          ErrorKind = "ScrollError"
	ErrPageSwitch      ErrorKind = "PageSwitchError"
	ErrFrame           ErrorKind = "FrameError"
	ErrModal           ErrorKind = "ModalError"
	ErrAnalysis        ErrorKind = "AnalysisError"
	ErrExtract         ErrorKind = "ExtractError"
	ErrCollect         ErrorKind = "CollectError"
	ErrDomAgent        ErrorKind = "DomAgentError"
	ErrContext         ErrorKind = "ContextError"
	ErrUserCancelled   ErrorKind = "UserCancelled"
)

// Envelope is the uniform result record returned by every action. Envelopes
// are immutable once produced; Suggestion is a human-readable recovery hint
// for the model and operator, never parsed programmatically.
type Envelope struct {
	Success    bool           `json:"success"`
	Action     string         `json:"action"`
	Message    string         `json:"message"`
	ErrorType  ErrorKind      `json:"error_type,omitempty"`
	Error      string         `json:"error,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// OK builds a success envelope.
func OK(action, message string, data map[string]any) Envelope {
	return Envelope{Success: true, Action: action, Message: message, Data: data}
}

// Fail builds a failure envelope. err may be nil when the failure is purely
// semantic (e.g. unknown element ID).
func Fail(action, message string, kind ErrorKind, err error, suggestion string) Envelope {
	env := Envelope{
		Success:    false,
		Action:     action,
		Message:    message,
		ErrorType:  kind,
		Suggestion: suggestion,
	}
	if err != nil {
		env.Error = err.Error()
	}
	return env
}

// WithData returns a copy of the envelope with data attached.
func (e Envelope) WithData(data map[string]any) Envelope {
	e.Data = data
	return e
}

// StripBinary returns a copy with bulk binary payloads removed from Data, so
// the envelope can be fed back into conversation history at bounded cost. The
// full envelope is still written to the operator log.
func (e Envelope) StripBinary() Envelope {
	raw, ok := e.Data["base64_png"]
	if !ok || raw == nil {
		return e
	}
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		if k == "base64_png" {
			continue
		}
		data[k] = v
	}
	data["note"] = "base64 image omitted from history; see screenshot file"
	e.Data = data
	return e
}

// JSON serializes the envelope, truncating to maxChars to bound the token
// cost of tool results. maxChars <= 0 disables truncation.
func (e Envelope) JSON(maxChars int) string {
	raw, err := json.Marshal(e)
	if err != nil {
		return `{"success":false,"message":"envelope serialization failed"}`
	}
	s := string(raw)
	if maxChars > 0 && len(s) > maxChars {
		s = s[:maxChars] + "...<truncated>"
	}
	return s
}
