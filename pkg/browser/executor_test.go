package browser

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avbelov/webpilot/pkg/logging"
)

// fakeDriver implements Driver in memory, recording calls and serving
// scripted distillation results.
type fakeDriver struct {
	url   string
	title string
	html  string

	markers        map[string]int
	markerCountErr error
	clickMarkerErr map[string]error
	clickTextErr   error

	evalResults [][]any
	evalErr     error
	evalCalls   int

	clickedMarkers []string
	clickedTexts   []string
	filled         map[string]string
	pressedMarkers []string
	pressedKeys    []string
	wheeled        []float64
	syncCalls      int

	navigated       []string
	navErr          error
	goBackNavigated bool
	goBackErr       error

	waitErr      error
	screenshot   []byte
	screenshotErr error

	innerText     string
	innerTextErr  error
	innerTexts    []string
	innerTextsErr error

	pages          int
	switchPageErr  error
	switchedPages  []int
	frameSelectors []string
	frameErr       error
	resetCalls     int

	selectorClicks map[string]bool
	clickSelectorErr error
	clickedSelectors []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		url:            "https://shop.example/catalog",
		title:          "Каталог",
		markers:        map[string]int{},
		clickMarkerErr: map[string]error{},
		filled:         map[string]string{},
		pages:          1,
		selectorClicks: map[string]bool{},
	}
}

func (d *fakeDriver) Navigate(url string, _ float64) error {
	if d.navErr != nil {
		return d.navErr
	}
	d.navigated = append(d.navigated, url)
	d.url = url
	return nil
}

func (d *fakeDriver) GoBack(_ float64) (bool, error) {
	return d.goBackNavigated, d.goBackErr
}

func (d *fakeDriver) URL() string            { return d.url }
func (d *fakeDriver) Title() (string, error) { return d.title, nil }

func (d *fakeDriver) EvalOnSelectorAll(_, _ string, _ any) (any, error) {
	if d.evalErr != nil {
		return nil, d.evalErr
	}
	idx := d.evalCalls
	d.evalCalls++
	if len(d.evalResults) == 0 {
		return []any{}, nil
	}
	if idx >= len(d.evalResults) {
		idx = len(d.evalResults) - 1
	}
	return d.evalResults[idx], nil
}

func (d *fakeDriver) MarkerCount(marker string) (int, error) {
	if d.markerCountErr != nil {
		return 0, d.markerCountErr
	}
	return d.markers[marker], nil
}

func (d *fakeDriver) ClickMarker(marker string, _ float64) error {
	if err := d.clickMarkerErr[marker]; err != nil {
		return err
	}
	d.clickedMarkers = append(d.clickedMarkers, marker)
	return nil
}

func (d *fakeDriver) FillMarker(marker, text string, _ float64) error {
	d.filled[marker] = text
	return nil
}

func (d *fakeDriver) PressMarker(marker, key string) error {
	d.pressedMarkers = append(d.pressedMarkers, marker+":"+key)
	return nil
}

func (d *fakeDriver) ClickText(text string, _ bool, _ float64) error {
	if d.clickTextErr != nil {
		return d.clickTextErr
	}
	d.clickedTexts = append(d.clickedTexts, text)
	return nil
}

func (d *fakeDriver) WaitForText(_ string, _ float64) error { return d.waitErr }

func (d *fakeDriver) ClickSelector(selector string, _ float64) (bool, error) {
	if !d.selectorClicks[selector] {
		return false, nil
	}
	if d.clickSelectorErr != nil {
		return true, d.clickSelectorErr
	}
	d.clickedSelectors = append(d.clickedSelectors, selector)
	return true, nil
}

func (d *fakeDriver) InnerText(_ string, _ float64) (string, error) {
	return d.innerText, d.innerTextErr
}

func (d *fakeDriver) InnerTexts(_ string) ([]string, error) {
	return d.innerTexts, d.innerTextsErr
}

func (d *fakeDriver) PageHTML() (string, error) { return d.html, nil }

func (d *fakeDriver) Screenshot(_ bool) ([]byte, error) {
	return d.screenshot, d.screenshotErr
}

func (d *fakeDriver) Scroll(dy float64) error {
	d.wheeled = append(d.wheeled, dy)
	return nil
}

func (d *fakeDriver) PressKey(key string) error {
	d.pressedKeys = append(d.pressedKeys, key)
	return nil
}

func (d *fakeDriver) SyncActivePage() error {
	d.syncCalls++
	return nil
}

func (d *fakeDriver) PageCount() int { return d.pages }

func (d *fakeDriver) SwitchToPage(index int) error {
	if d.switchPageErr != nil {
		return d.switchPageErr
	}
	d.switchedPages = append(d.switchedPages, index)
	return nil
}

func (d *fakeDriver) SwitchFrame(selector string, index int) error {
	if d.frameErr != nil {
		return d.frameErr
	}
	d.frameSelectors = append(d.frameSelectors, fmt.Sprintf("%s/%d", selector, index))
	return nil
}

func (d *fakeDriver) ResetFrame() error {
	d.resetCalls++
	return nil
}

// rawEl builds one distillation result item the way the page script returns
// them.
func rawEl(marker, tag, text string) map[string]any {
	return map[string]any{
		"marker":   marker,
		"tag":      tag,
		"text":     text,
		"location": "100x20",
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log.Component("test")
}

func newTestExecutor(t *testing.T, d Driver, opts ...ExecutorOption) *Executor {
	t.Helper()
	opts = append([]ExecutorOption{WithSleep(func(time.Duration) {})}, opts...)
	return NewExecutor(d, testLogger(t), opts...)
}

func TestAnalyzePage_Concise(t *testing.T) {
	d := newFakeDriver()
	var items []any
	for i := 0; i < 25; i++ {
		items = append(items, rawEl(fmt.Sprintf("ab12cd34-%d", i), "button", fmt.Sprintf("Кнопка %d", i)))
	}
	d.evalResults = [][]any{items}

	x := newTestExecutor(t, d)
	env := x.AnalyzePage(false)

	require.True(t, env.Success)
	assert.Equal(t, "analyze_page", env.Action)
	assert.Equal(t, 25, env.Data["element_count"])
	assert.Len(t, env.Data["elements"], 20)
	assert.Contains(t, env.Data["note"], "first 20")
	assert.Len(t, x.LastElements(), 25)
}

func TestAnalyzePage_Detailed(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{rawEl("ab12cd34-0", "a", "Корзина")}}

	x := newTestExecutor(t, d)
	env := x.AnalyzePage(true)

	require.True(t, env.Success)
	elements, ok := env.Data["elements"].([]DistilledElement)
	require.True(t, ok)
	require.Len(t, elements, 1)
	assert.Equal(t, 0, elements[0].ID)
	assert.Equal(t, "Корзина", elements[0].Text)
	assert.Equal(t, "a", elements[0].Tag)
}

func TestAnalyzePage_DistillFailure(t *testing.T) {
	d := newFakeDriver()
	d.evalErr = fmt.Errorf("execution context destroyed")

	x := newTestExecutor(t, d)
	env := x.AnalyzePage(false)

	require.False(t, env.Success)
	assert.Equal(t, ErrAnalysis, env.ErrorType)
	assert.NotEmpty(t, env.Suggestion)
}

func TestSearchElements(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{
		rawEl("s-0", "button", "Добавить в корзину"),
		rawEl("s-1", "a", "Следующая страница"),
		rawEl("s-2", "button", "Оформить заказ"),
	}}

	x := newTestExecutor(t, d)
	require.True(t, x.AnalyzePage(false).Success)

	env := x.SearchElements("корзин")
	require.True(t, env.Success)
	assert.Equal(t, 1, env.Data["match_count"])

	env = x.SearchElements("")
	assert.False(t, env.Success)
}

func TestNavigateURL_DefaultsScheme(t *testing.T) {
	d := newFakeDriver()
	x := newTestExecutor(t, d)

	env := x.NavigateURL("example.com")
	require.True(t, env.Success)
	require.Len(t, d.navigated, 1)
	assert.Equal(t, "https://example.com", d.navigated[0])
}

func TestNavigateURL_Failure(t *testing.T) {
	d := newFakeDriver()
	d.navErr = fmt.Errorf("net::ERR_NAME_NOT_RESOLVED")

	x := newTestExecutor(t, d)
	env := x.NavigateURL("https://nosuchhost.invalid")

	require.False(t, env.Success)
	assert.Equal(t, ErrNavigation, env.ErrorType)
}

func TestGoBack_NothingInHistory(t *testing.T) {
	d := newFakeDriver()
	x := newTestExecutor(t, d)

	env := x.GoBack()
	require.True(t, env.Success)
	assert.Contains(t, env.Message, "No previous page")
}

func TestScrollPage(t *testing.T) {
	d := newFakeDriver()
	x := newTestExecutor(t, d)

	t.Run("down is positive", func(t *testing.T) {
		env := x.ScrollPage("down", 500)
		require.True(t, env.Success)
		assert.Equal(t, 500.0, d.wheeled[len(d.wheeled)-1])
	})

	t.Run("up is negative", func(t *testing.T) {
		env := x.ScrollPage("up", 300)
		require.True(t, env.Success)
		assert.Equal(t, -300.0, d.wheeled[len(d.wheeled)-1])
	})

	t.Run("unknown direction fails", func(t *testing.T) {
		env := x.ScrollPage("sideways", 100)
		require.False(t, env.Success)
		assert.Equal(t, ErrScroll, env.ErrorType)
	})
}

func TestTypeText(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{rawEl("t-0", "input", "")}}
	d.markers["t-0"] = 1

	x := newTestExecutor(t, d)
	require.True(t, x.AnalyzePage(false).Success)

	env := x.TypeText(0, "футболка", true)
	require.True(t, env.Success)
	assert.Equal(t, "футболка", d.filled["t-0"])
	assert.Contains(t, d.pressedMarkers, "t-0:Enter")
}

func TestCollectElements_Limit(t *testing.T) {
	d := newFakeDriver()
	d.innerTexts = []string{"один", "два", "три", "четыре"}

	x := newTestExecutor(t, d)
	env := x.CollectElements(".item", 2)

	require.True(t, env.Success)
	assert.Equal(t, 4, env.Data["count"])
	assert.Len(t, env.Data["items"], 2)
	assert.Contains(t, env.Data["note"], "first 2 of 4")
}

func TestSwitchFrame_InvalidatesElements(t *testing.T) {
	d := newFakeDriver()
	d.evalResults = [][]any{{rawEl("f-0", "button", "OK")}}

	x := newTestExecutor(t, d)
	require.True(t, x.AnalyzePage(false).Success)
	_, ok := x.ElementByID(0)
	require.True(t, ok)

	env := x.SwitchFrame("iframe#payment", -1, false)
	require.True(t, env.Success)
	_, ok = x.ElementByID(0)
	assert.False(t, ok)
}

func TestSwitchFrame_NoTarget(t *testing.T) {
	d := newFakeDriver()
	x := newTestExecutor(t, d)

	env := x.SwitchFrame("", -1, false)
	require.False(t, env.Success)
	assert.Equal(t, ErrFrame, env.ErrorType)
}

func TestCloseModal(t *testing.T) {
	t.Run("clicks a known close control", func(t *testing.T) {
		d := newFakeDriver()
		d.selectorClicks[`[role=dialog] [aria-label*="close" i]`] = true

		x := newTestExecutor(t, d)
		env := x.CloseModal()

		require.True(t, env.Success)
		assert.Len(t, d.clickedSelectors, 1)
		assert.Empty(t, d.pressedKeys)
	})

	t.Run("falls back to Escape", func(t *testing.T) {
		d := newFakeDriver()
		x := newTestExecutor(t, d)
		env := x.CloseModal()

		require.True(t, env.Success)
		assert.Contains(t, env.Message, "Escape")
		assert.Equal(t, []string{"Escape"}, d.pressedKeys)
	})
}

func TestTakeScreenshot(t *testing.T) {
	d := newFakeDriver()
	d.screenshot = []byte{0x89, 0x50, 0x4e, 0x47}

	x := newTestExecutor(t, d, WithScreenshotDir(t.TempDir()))
	env := x.TakeScreenshot(false)

	require.True(t, env.Success)
	assert.NotEmpty(t, env.Data["base64_png"])
	assert.NotEmpty(t, env.Data["path"])
}

func TestWaitForElement_Timeout(t *testing.T) {
	d := newFakeDriver()
	d.waitErr = fmt.Errorf("timeout 5000ms exceeded")

	x := newTestExecutor(t, d)
	env := x.WaitForElement("Готово", 5)

	require.False(t, env.Success)
	assert.Equal(t, ErrTimeout, env.ErrorType)
}
