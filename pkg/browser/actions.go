package browser

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ClickElement clicks a previously distilled element by its numeric ID.
func (x *Executor) ClickElement(id int) Envelope {
	const action = "click_element"

	el, ok := x.ElementByID(id)
	if !ok {
		return Fail(action, fmt.Sprintf("Unknown element ID %d", id), ErrElementNotFound, nil,
			"Run analyze_page() to get current element IDs.")
	}

	res := x.resolveAndClick(el)
	if res.Err != nil {
		return Fail(action, fmt.Sprintf("Failed to click element %d (%s)", id, el.DisplayText()),
			res.Kind, res.Err, res.Suggestion)
	}

	x.sleep(settleAfterClick)
	if err := x.driver.SyncActivePage(); err != nil {
		x.log.Warnf("active page sync after click: %v", err)
	}

	msg := fmt.Sprintf("Clicked element %d (%s)%s", id, el.DisplayText(), pathNote(res.Path))
	x.log.Infof("%s", msg)
	return OK(action, msg, map[string]any{"url": x.driver.URL()})
}

// TypeText fills a previously distilled input element. pressEnter submits the
// field after filling.
func (x *Executor) TypeText(id int, text string, pressEnter bool) Envelope {
	const action = "type_text"

	el, ok := x.ElementByID(id)
	if !ok {
		return Fail(action, fmt.Sprintf("Unknown element ID %d", id), ErrElementNotFound, nil,
			"Run analyze_page() to get current element IDs.")
	}

	marker, res := x.resolveMarker(el)
	if res.Err != nil {
		return Fail(action, fmt.Sprintf("Failed to locate input %d (%s)", id, el.DisplayText()),
			res.Kind, res.Err, res.Suggestion)
	}

	if err := x.driver.FillMarker(marker, text, x.timeouts.Fill); err != nil {
		kind := ErrType
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return Fail(action, fmt.Sprintf("Failed to type into element %d", id), kind, err,
			"The node may not accept text input; check its type with analyze_page(detailed=true).")
	}
	if pressEnter {
		if err := x.driver.PressMarker(marker, "Enter"); err != nil {
			return Fail(action, fmt.Sprintf("Typed into element %d but Enter failed", id), ErrType, err, "")
		}
	}

	x.sleep(settleAfterType)
	msg := fmt.Sprintf("Typed %q into element %d%s", text, id, pathNote(res.Path))
	if pressEnter {
		msg += " and pressed Enter"
	}
	return OK(action, msg, map[string]any{"url": x.driver.URL()})
}

// ClickAndType clicks an element to focus it, then fills it. Useful for
// inputs that only become editable after a click.
func (x *Executor) ClickAndType(id int, text string) Envelope {
	const action = "click_and_type"

	el, ok := x.ElementByID(id)
	if !ok {
		return Fail(action, fmt.Sprintf("Unknown element ID %d", id), ErrElementNotFound, nil,
			"Run analyze_page() to get current element IDs.")
	}

	res := x.resolveAndClick(el)
	if res.Err != nil {
		return Fail(action, fmt.Sprintf("Failed to click element %d before typing", id),
			res.Kind, res.Err, res.Suggestion)
	}
	marker := res.Marker
	if marker == "" {
		// Text-fallback click: the stamp is gone, re-locate the input.
		var mres resolution
		marker, mres = x.resolveMarker(el)
		if mres.Err != nil {
			return Fail(action, fmt.Sprintf("Clicked element %d but could not re-locate it for typing", id),
				mres.Kind, mres.Err, mres.Suggestion)
		}
	}

	if err := x.driver.FillMarker(marker, text, x.timeouts.Fill); err != nil {
		kind := ErrType
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return Fail(action, fmt.Sprintf("Clicked element %d but typing failed", id), kind, err, "")
	}

	x.sleep(settleAfterType)
	return OK(action,
		fmt.Sprintf("Clicked element %d and typed %q%s", id, text, pathNote(res.Path)),
		map[string]any{"url": x.driver.URL()})
}

// ClickByText clicks the first visible node bearing the given text, without
// going through element IDs.
func (x *Executor) ClickByText(text string, exact bool) Envelope {
	const action = "click_text"

	if strings.TrimSpace(text) == "" {
		return Fail(action, "Empty click text", ErrClick, nil, "Pass the visible text of the element.")
	}

	if err := x.driver.ClickText(text, exact, x.timeouts.Click); err != nil {
		kind := ErrClick
		suggestion := "Check the exact spelling with analyze_page() or try exact=false."
		if IsTimeoutErr(err) {
			kind = ErrTimeout
			suggestion = "The text may not be visible; try scroll_page() or close_modal() first."
		}
		return Fail(action, fmt.Sprintf("Failed to click text %q", text), kind, err, suggestion)
	}

	x.sleep(settleAfterClick)
	if err := x.driver.SyncActivePage(); err != nil {
		x.log.Warnf("active page sync after click: %v", err)
	}
	return OK(action, fmt.Sprintf("Clicked text %q", text), map[string]any{"url": x.driver.URL()})
}

// NavigateURL opens the given URL in the active page. A bare host gets an
// https scheme.
func (x *Executor) NavigateURL(rawURL string) Envelope {
	const action = "navigate_url"

	url := strings.TrimSpace(rawURL)
	if url == "" {
		return Fail(action, "Empty URL", ErrNavigation, nil, "Pass a full URL, e.g. https://example.com.")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	if err := x.driver.Navigate(url, x.timeouts.Navigate); err != nil {
		kind := ErrNavigation
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return Fail(action, fmt.Sprintf("Failed to open %s", url), kind, err,
			"Check the URL; slow pages may need a retry.")
	}

	title, _ := x.driver.Title()
	x.log.Infof("navigated to %s (%q)", x.driver.URL(), title)
	return OK(action, fmt.Sprintf("Opened %s", url),
		map[string]any{"url": x.driver.URL(), "title": title})
}

// GoBack navigates one step back in the page history. Having nothing to go
// back to is a normal outcome, not an error.
func (x *Executor) GoBack() Envelope {
	const action = "go_back"

	navigated, err := x.driver.GoBack(x.timeouts.Navigate)
	if err != nil {
		kind := ErrNavigation
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return Fail(action, "Failed to go back", kind, err, "")
	}
	if !navigated {
		return OK(action, "No previous page in history", map[string]any{"url": x.driver.URL()})
	}
	title, _ := x.driver.Title()
	return OK(action, "Went back one page", map[string]any{"url": x.driver.URL(), "title": title})
}

// TakeScreenshot captures the page to a PNG file and returns a bounded
// base64 copy inline.
func (x *Executor) TakeScreenshot(fullPage bool) Envelope {
	const action = "take_screenshot"

	png, err := x.driver.Screenshot(fullPage)
	if err != nil {
		return Fail(action, "Failed to take screenshot", ErrScreenshot, err, "")
	}

	data := map[string]any{"full_page": fullPage, "bytes": len(png)}

	if x.screenshotDir != "" {
		if err := os.MkdirAll(x.screenshotDir, 0750); err == nil {
			name := fmt.Sprintf("screenshot-%s.png", x.now().Format("20060102-150405"))
			path := filepath.Join(x.screenshotDir, name)
			if werr := x.writeFile(path, png); werr != nil {
				x.log.Warnf("write screenshot %s: %v", path, werr)
			} else {
				data["path"] = path
			}
		}
	}

	b64 := base64.StdEncoding.EncodeToString(png)
	if len(b64) > ScreenshotB64Limit {
		b64 = b64[:ScreenshotB64Limit]
		data["note"] = "base64 truncated; full image is in the screenshot file"
	}
	data["base64_png"] = b64

	return OK(action, "Screenshot captured", data)
}

// WaitForElement waits until a node with the given visible text appears.
func (x *Executor) WaitForElement(text string, timeoutSec float64) Envelope {
	const action = "wait_for_element"

	if strings.TrimSpace(text) == "" {
		return Fail(action, "Empty wait text", ErrTimeout, nil, "Pass the visible text to wait for.")
	}
	timeout := x.timeouts.Wait
	if timeoutSec > 0 {
		timeout = timeoutSec * 1000
	}

	if err := x.driver.WaitForText(text, timeout); err != nil {
		return Fail(action, fmt.Sprintf("Element with text %q did not appear", text), ErrTimeout, err,
			"The page may still be loading, or the text differs; try analyze_page().")
	}
	return OK(action, fmt.Sprintf("Element with text %q appeared", text), nil)
}

// ScrollPage scrolls the page viewport. direction is "up" or "down"; amount
// is in pixels and defaults to 600.
func (x *Executor) ScrollPage(direction string, amount float64) Envelope {
	const action = "scroll_page"

	if amount <= 0 {
		amount = 600
	}
	dy := amount
	switch direction {
	case "down", "":
		direction = "down"
	case "up":
		dy = -amount
	default:
		return Fail(action, fmt.Sprintf("Unknown scroll direction %q", direction), ErrScroll, nil,
			`Use "up" or "down".`)
	}

	if err := x.driver.Scroll(dy); err != nil {
		return Fail(action, "Failed to scroll page", ErrScroll, err, "")
	}
	x.sleep(settleAfterScroll)
	return OK(action, fmt.Sprintf("Scrolled %s by %.0fpx", direction, amount), nil)
}

// SwitchToPage moves focus to an open tab by index. Negative indexes count
// from the end, -1 being the newest tab.
func (x *Executor) SwitchToPage(index int) Envelope {
	const action = "switch_to_page"

	if err := x.driver.SwitchToPage(index); err != nil {
		return Fail(action, fmt.Sprintf("Failed to switch to page %d", index), ErrPageSwitch, err,
			fmt.Sprintf("There are %d open pages; indexes are 0-based.", x.driver.PageCount()))
	}
	title, _ := x.driver.Title()
	return OK(action, fmt.Sprintf("Switched to page %d (%q)", index, title),
		map[string]any{"url": x.driver.URL(), "title": title, "page_count": x.driver.PageCount()})
}

// ExtractText returns the inner text of the first node matching a CSS
// selector.
func (x *Executor) ExtractText(selector string) Envelope {
	const action = "extract_text"

	if strings.TrimSpace(selector) == "" {
		return Fail(action, "Empty selector", ErrExtract, nil, "Pass a CSS selector, e.g. h1 or .price.")
	}

	text, err := x.driver.InnerText(selector, x.timeouts.Extract)
	if err != nil {
		kind := ErrExtract
		if IsTimeoutErr(err) {
			kind = ErrTimeout
		}
		return Fail(action, fmt.Sprintf("Failed to extract text from %q", selector), kind, err,
			"Check the selector with query_dom() or analyze_page().")
	}

	if len(text) > pageTextSampleLimit {
		text = text[:pageTextSampleLimit] + "...<truncated>"
	}
	return OK(action, fmt.Sprintf("Extracted text from %q", selector),
		map[string]any{"selector": selector, "text": text})
}

// CollectElements returns the inner texts of all nodes matching a CSS
// selector, capped at limit (default 50).
func (x *Executor) CollectElements(selector string, limit int) Envelope {
	const action = "collect_elements"

	if strings.TrimSpace(selector) == "" {
		return Fail(action, "Empty selector", ErrCollect, nil, "Pass a CSS selector, e.g. .result-title.")
	}
	if limit <= 0 {
		limit = 50
	}

	texts, err := x.driver.InnerTexts(selector)
	if err != nil {
		return Fail(action, fmt.Sprintf("Failed to collect elements for %q", selector), ErrCollect, err, "")
	}

	total := len(texts)
	if len(texts) > limit {
		texts = texts[:limit]
	}
	items := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if len(t) > 200 {
			t = t[:200]
		}
		items = append(items, t)
	}

	data := map[string]any{"selector": selector, "count": total, "items": items}
	if total > limit {
		data["note"] = fmt.Sprintf("showing first %d of %d", limit, total)
	}
	return OK(action, fmt.Sprintf("Collected %d elements for %q", total, selector), data)
}

// SwitchFrame focuses an iframe for subsequent selector operations, or
// returns focus to the main page when reset is true. Selector takes priority
// over index.
func (x *Executor) SwitchFrame(selector string, index int, reset bool) Envelope {
	const action = "switch_frame"

	if reset {
		if err := x.driver.ResetFrame(); err != nil {
			return Fail(action, "Failed to reset frame focus", ErrFrame, err, "")
		}
		return OK(action, "Returned focus to the main page", nil)
	}
	if selector == "" && index < 0 {
		return Fail(action, "No frame selector or index given", ErrFrame, nil,
			"Pass a CSS selector for the iframe, its index, or reset=true.")
	}

	if err := x.driver.SwitchFrame(selector, index); err != nil {
		return Fail(action, "Failed to switch frame", ErrFrame, err,
			"List candidate iframes with query_dom() or use reset=true to recover.")
	}

	// IDs from the previous frame are meaningless now.
	x.elements = nil
	return OK(action, "Switched frame focus; run analyze_page() to see its elements", nil)
}

// closeSelectors is the escalation ladder of common modal close controls.
var closeSelectors = []string{
	`[role=dialog] [aria-label*="close" i]`,
	`[aria-modal="true"] [aria-label*="close" i]`,
	`[role=dialog] button:has-text("×")`,
	`[role=dialog] button:has-text("✕")`,
	`[class*="modal" i] [class*="close" i]`,
	`[class*="popup" i] [class*="close" i]`,
	`[id*="cookie" i] button`,
}

// CloseModal tries the known close-control selectors in order, then falls
// back to sending Escape.
func (x *Executor) CloseModal() Envelope {
	const action = "close_modal"

	var tried []string
	for _, sel := range closeSelectors {
		tried = append(tried, sel)
		found, err := x.driver.ClickSelector(sel, x.timeouts.Click)
		if !found {
			continue
		}
		if err != nil {
			x.log.Debugf("close control %q found but click failed: %v", sel, err)
			continue
		}
		x.sleep(settleAfterClick)
		return OK(action, fmt.Sprintf("Closed overlay via %q", sel), nil)
	}

	if err := x.driver.PressKey("Escape"); err != nil {
		return Fail(action, "No close control found and Escape failed", ErrModal, err, "")
	}
	x.sleep(settleAfterScroll)
	return OK(action, "No close control found; sent Escape", map[string]any{"tried": tried})
}

func writeFile0600(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}
