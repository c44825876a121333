package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// playwrightDriver implements Driver over a live Playwright page. It tracks
// the active page (clicks can open new tabs) and an optional active frame
// that scopes selector queries until ResetFrame.
type playwrightDriver struct {
	context playwright.BrowserContext
	page    playwright.Page
	frame   playwright.Frame
}

// locator resolves a selector in the active frame when one is focused,
// otherwise on the page.
func (d *playwrightDriver) locator(selector string) playwright.Locator {
	if d.frame != nil {
		return d.frame.Locator(selector)
	}
	return d.page.Locator(selector)
}

func (d *playwrightDriver) getByText(text string, exact bool) playwright.Locator {
	if d.frame != nil {
		return d.frame.GetByText(text, playwright.FrameGetByTextOptions{Exact: playwright.Bool(exact)})
	}
	return d.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(exact)})
}

func (d *playwrightDriver) Navigate(url string, timeoutMs float64) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(timeoutMs),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (d *playwrightDriver) GoBack(timeoutMs float64) (bool, error) {
	resp, err := d.page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(timeoutMs),
	})
	if err != nil {
		return false, fmt.Errorf("go back: %w", err)
	}
	return resp != nil, nil
}

func (d *playwrightDriver) URL() string { return d.page.URL() }

func (d *playwrightDriver) Title() (string, error) { return d.page.Title() }

func (d *playwrightDriver) EvalOnSelectorAll(selector, script string, arg any) (any, error) {
	if d.frame != nil {
		return d.frame.EvalOnSelectorAll(selector, script, arg)
	}
	return d.page.EvalOnSelectorAll(selector, script, arg)
}

func (d *playwrightDriver) MarkerCount(marker string) (int, error) {
	return d.locator(markerSelector(marker)).Count()
}

func (d *playwrightDriver) ClickMarker(marker string, timeoutMs float64) error {
	return d.locator(markerSelector(marker)).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeoutMs),
	})
}

func (d *playwrightDriver) FillMarker(marker, text string, timeoutMs float64) error {
	return d.locator(markerSelector(marker)).First().Fill(text, playwright.LocatorFillOptions{
		Timeout: playwright.Float(timeoutMs),
	})
}

func (d *playwrightDriver) PressMarker(marker, key string) error {
	return d.locator(markerSelector(marker)).First().Press(key)
}

func (d *playwrightDriver) ClickText(text string, exact bool, timeoutMs float64) error {
	return d.getByText(text, exact).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeoutMs),
	})
}

func (d *playwrightDriver) WaitForText(text string, timeoutMs float64) error {
	return d.getByText(text, false).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(timeoutMs),
	})
}

func (d *playwrightDriver) ClickSelector(selector string, timeoutMs float64) (bool, error) {
	loc := d.locator(selector)
	count, err := loc.Count()
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	err = loc.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(timeoutMs)})
	return true, err
}

func (d *playwrightDriver) InnerText(selector string, timeoutMs float64) (string, error) {
	return d.locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(timeoutMs),
	})
}

func (d *playwrightDriver) InnerTexts(selector string) ([]string, error) {
	return d.locator(selector).AllInnerTexts()
}

func (d *playwrightDriver) PageHTML() (string, error) {
	return d.page.Content()
}

func (d *playwrightDriver) Screenshot(fullPage bool) ([]byte, error) {
	return d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
	})
}

func (d *playwrightDriver) Scroll(dy float64) error {
	return d.page.Mouse().Wheel(0, dy)
}

func (d *playwrightDriver) PressKey(key string) error {
	return d.page.Keyboard().Press(key)
}

// SyncActivePage follows focus to the newest open page. Clicks that open a
// new tab leave the old page focused; the newest page is what the human sees.
func (d *playwrightDriver) SyncActivePage() error {
	pages := d.context.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("no open pages")
	}
	newest := pages[len(pages)-1]
	if newest != d.page {
		d.page = newest
		d.frame = nil
	}
	return nil
}

func (d *playwrightDriver) PageCount() int {
	return len(d.context.Pages())
}

func (d *playwrightDriver) SwitchToPage(index int) error {
	pages := d.context.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("no open pages")
	}
	if index < 0 {
		index = len(pages) + index
	}
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("page index %d out of range (have %d)", index, len(pages))
	}
	d.page = pages[index]
	d.frame = nil
	return nil
}

// SwitchFrame focuses an iframe by CSS selector (priority) or index.
func (d *playwrightDriver) SwitchFrame(selector string, index int) error {
	if selector != "" {
		handle, err := d.page.QuerySelector(selector)
		if err != nil {
			return fmt.Errorf("query frame selector: %w", err)
		}
		if handle == nil {
			return fmt.Errorf("frame not found by selector %q", selector)
		}
		frame, err := handle.ContentFrame()
		if err != nil {
			return fmt.Errorf("content frame: %w", err)
		}
		if frame == nil {
			return fmt.Errorf("element %q has no content frame", selector)
		}
		d.frame = frame
		return nil
	}

	frames := d.page.Frames()
	if index < 0 || index >= len(frames) {
		return fmt.Errorf("frame index %d out of range (have %d)", index, len(frames))
	}
	d.frame = frames[index]
	return nil
}

func (d *playwrightDriver) ResetFrame() error {
	d.frame = nil
	return nil
}

func markerSelector(marker string) string {
	return fmt.Sprintf(`[data-agent-id="%s"]`, marker)
}
