package browser

import (
	"fmt"
	"strings"
)

// resolutionPath names the strategy that located an element. Click messages
// mention non-default paths so the model learns its IDs went stale.
type resolutionPath string

const (
	pathMarker      resolutionPath = "stable-marker"
	pathRefreshedID resolutionPath = "refreshed-agent-id"
	pathText        resolutionPath = "text-fallback"
)

// resolution is the outcome of a marker-resolution attempt.
type resolution struct {
	Path       resolutionPath
	Marker     string
	Err        error
	Kind       ErrorKind
	Suggestion string
}

const staleIDSuggestion = "Run analyze_page() again and use the new element IDs."

// resolveAndClick clicks the element behind a previously distilled ID. The
// strategies are ordered and each applies only when the previous one cannot:
//
//  1. stable marker: the node still carries its data-agent-id stamp.
//  2. refreshed agent-id: the stamp is gone (DOM was re-rendered); re-distill
//     and match a fresh element with identical captured text.
//  3. text fallback: page-wide visible-text click on the captured text. Also
//     used when the stable marker exists but the click itself times out.
//
// An element with no captured text whose marker vanished is unrecoverable and
// fails as ElementNotFound without trying any fallback.
func (x *Executor) resolveAndClick(el DistilledElement) resolution {
	text := strings.TrimSpace(el.Text)

	count, err := x.driver.MarkerCount(el.Marker)
	if err != nil {
		return resolution{Err: err, Kind: ErrClick, Suggestion: staleIDSuggestion}
	}

	if count > 0 {
		err = x.driver.ClickMarker(el.Marker, x.timeouts.Click)
		if err == nil {
			return resolution{Path: pathMarker, Marker: el.Marker}
		}
		if IsTimeoutErr(err) && text != "" {
			return x.clickByCapturedText(text, err)
		}
		kind := ErrClick
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return resolution{Err: err, Kind: kind, Suggestion: "The element may be covered by another node; try close_modal() or scroll_page()."}
	}

	if text == "" {
		return resolution{
			Err:        fmt.Errorf("element %d is no longer on the page and captured no text to match", el.ID),
			Kind:       ErrElementNotFound,
			Suggestion: staleIDSuggestion,
		}
	}

	if fresh, derr := x.refreshElements(); derr == nil {
		for _, cand := range fresh {
			if strings.TrimSpace(cand.Text) == text {
				if cerr := x.driver.ClickMarker(cand.Marker, x.timeouts.Click); cerr == nil {
					return resolution{Path: pathRefreshedID, Marker: cand.Marker}
				}
				break
			}
		}
	}

	return x.clickByCapturedText(text, nil)
}

// clickByCapturedText is the last strategy: click whatever visible node bears
// the element's captured text.
func (x *Executor) clickByCapturedText(text string, prior error) resolution {
	err := x.driver.ClickText(text, false, x.timeouts.Click)
	if err == nil {
		return resolution{Path: pathText}
	}
	if prior != nil {
		err = fmt.Errorf("%v; text fallback also failed: %w", prior, err)
	}
	kind := ErrClick
	if IsTimeoutErr(err) {
		kind = ErrTimeout
	}
	return resolution{
		Err:        err,
		Kind:       kind,
		Suggestion: staleIDSuggestion,
	}
}

// resolveMarker re-locates an element's marker for fill operations. Fills
// have no text fallback; typing into a text-matched node is too risky.
func (x *Executor) resolveMarker(el DistilledElement) (string, resolution) {
	count, err := x.driver.MarkerCount(el.Marker)
	if err == nil && count > 0 {
		return el.Marker, resolution{Path: pathMarker}
	}

	text := strings.TrimSpace(el.Text)
	if text == "" && el.Placeholder == "" {
		return "", resolution{
			Err:        fmt.Errorf("element %d is no longer on the page", el.ID),
			Kind:       ErrElementNotFound,
			Suggestion: staleIDSuggestion,
		}
	}

	if fresh, derr := x.refreshElements(); derr == nil {
		for _, cand := range fresh {
			if cand.Tag != el.Tag {
				continue
			}
			if (text != "" && strings.TrimSpace(cand.Text) == text) ||
				(el.Placeholder != "" && cand.Placeholder == el.Placeholder) {
				return cand.Marker, resolution{Path: pathRefreshedID}
			}
		}
	}

	return "", resolution{
		Err:        fmt.Errorf("element %d disappeared and no matching input was found", el.ID),
		Kind:       ErrElementNotFound,
		Suggestion: staleIDSuggestion,
	}
}

// pathNote annotates a success message with the non-default resolution path.
func pathNote(p resolutionPath) string {
	switch p {
	case pathRefreshedID:
		return " (via refreshed agent-id)"
	case pathText:
		return " (via text fallback)"
	default:
		return ""
	}
}
