package browser

import "strings"

// Driver is the narrow browser-automation boundary the executor consumes.
// Every operation is fallible and timeout-bounded; a timeout is a normal
// failure outcome, not a crash. The playwright adapter is the production
// implementation; tests substitute fakes.
type Driver interface {
	// Navigation and page identity.
	Navigate(url string, timeoutMs float64) error
	GoBack(timeoutMs float64) (navigated bool, err error)
	URL() string
	Title() (string, error)

	// Script evaluation over a selector set; returns decoded JSON data.
	EvalOnSelectorAll(selector, script string, arg any) (any, error)

	// Stable-marker operations against nodes stamped by the distiller.
	MarkerCount(marker string) (int, error)
	ClickMarker(marker string, timeoutMs float64) error
	FillMarker(marker, text string, timeoutMs float64) error
	PressMarker(marker, key string) error

	// Visible-text operations across the whole page.
	ClickText(text string, exact bool, timeoutMs float64) error
	WaitForText(text string, timeoutMs float64) error

	// Selector operations. ClickSelector reports found=false when no node
	// matches, leaving err for actual click failures.
	ClickSelector(selector string, timeoutMs float64) (found bool, err error)
	InnerText(selector string, timeoutMs float64) (string, error)
	InnerTexts(selector string) ([]string, error)
	PageHTML() (string, error)

	// Input and capture.
	Screenshot(fullPage bool) ([]byte, error)
	Scroll(dy float64) error
	PressKey(key string) error

	// Tab and frame focus. SyncActivePage moves focus to the newest page,
	// covering clicks that opened a new tab.
	SyncActivePage() error
	PageCount() int
	SwitchToPage(index int) error
	SwitchFrame(selector string, index int) error
	ResetFrame() error
}

// IsTimeoutErr reports whether a driver error is a timeout. The playwright
// client does not export a sentinel for this, so the check is textual.
func IsTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
