package browser

import (
	"fmt"
	"io"
	"os"

	"github.com/playwright-community/playwright-go"
)

// Default viewport matches a comfortable desktop layout; sites collapse to
// mobile layouts below ~1000px and that changes which elements are visible.
const (
	DefaultViewportWidth  = 1300
	DefaultViewportHeight = 900
)

// SessionOptions configures the browser session.
type SessionOptions struct {
	// UserDataDir is the persistent Chromium profile directory. Cookies and
	// logins survive across runs; this is the only state that outlives the
	// process.
	UserDataDir string

	// Headless controls whether the browser runs without a visible window.
	Headless bool
}

// Session owns the Playwright runtime and one persistent browser context.
// A failure to start the session is fatal to the process; everything after
// startup is recovered into envelopes.
type Session struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	driver  *playwrightDriver
}

// StartSession installs (if needed) and starts Playwright, then launches a
// persistent Chromium context rooted at opts.UserDataDir.
func StartSession(opts SessionOptions) (*Session, error) {
	if opts.UserDataDir == "" {
		return nil, fmt.Errorf("user data dir is required")
	}
	if err := os.MkdirAll(opts.UserDataDir, 0750); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	context, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: &playwright.Size{
				Width:  DefaultViewportWidth,
				Height: DefaultViewportHeight,
			},
		})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch persistent context: %w", err)
	}

	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = context.NewPage()
		if err != nil {
			context.Close()
			pw.Stop()
			return nil, fmt.Errorf("open initial page: %w", err)
		}
	}

	return &Session{
		pw:      pw,
		context: context,
		driver:  &playwrightDriver{context: context, page: page},
	}, nil
}

// Driver returns the driver bound to this session's active page.
func (s *Session) Driver() Driver { return s.driver }

// Close shuts down the browser context and the Playwright runtime.
func (s *Session) Close() error {
	var errs []error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close session: %v", errs)
	}
	return nil
}
