// Package main provides the webpilot CLI: an LLM-driven browser automation
// agent that executes a natural-language task against a live Chromium page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avbelov/webpilot/pkg/agent"
	"github.com/avbelov/webpilot/pkg/browser"
	appconfig "github.com/avbelov/webpilot/pkg/config"
	"github.com/avbelov/webpilot/pkg/console"
	"github.com/avbelov/webpilot/pkg/llm"
	"github.com/avbelov/webpilot/pkg/llm/anthropic"
	"github.com/avbelov/webpilot/pkg/llm/openai"
	"github.com/avbelov/webpilot/pkg/logging"
)

func parseFlags() (appconfig.Config, error) {
	configFile := flag.String("config", "", "Path to a YAML config file")
	task := flag.String("task", "", "Natural-language task to execute (required)")
	provider := flag.String("provider", "", "Completion provider: anthropic or openai")
	model := flag.String("model", "", "Model identifier")
	baseURL := flag.String("base-url", "", "Override the provider API base URL (openai only)")
	maxIterations := flag.Int("max-iterations", 0, "Maximum agent iterations")
	historyWindow := flag.Int("history-window", 0, "Recent turns kept verbatim before summarizing")
	temperature := flag.Float64("temperature", -1, "Sampling temperature")
	headless := flag.Bool("headless", false, "Run the browser without a visible window")
	manualLogin := flag.Bool("manual-login", false, "Open the browser for manual login first; press Enter to start the agent")
	confirmActions := flag.Bool("confirm-actions", false, "Ask for confirmation before potentially destructive clicks")
	sessionPath := flag.String("session-path", "", "Persistent browser profile directory")
	screenshotDir := flag.String("screenshot-dir", "", "Directory for screenshot files")
	flag.Parse()

	cfg, err := appconfig.Load(*configFile)
	if err != nil {
		return cfg, err
	}

	cfg.Task = *task
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *maxIterations > 0 {
		cfg.MaxIterations = *maxIterations
	}
	if *historyWindow > 0 {
		cfg.HistoryWindow = *historyWindow
	}
	if *temperature >= 0 {
		cfg.Temperature = *temperature
	}
	if *headless {
		cfg.Headless = true
	}
	if *manualLogin {
		cfg.ManualLogin = true
	}
	if *confirmActions {
		cfg.ConfirmActions = true
	}
	if *sessionPath != "" {
		cfg.SessionPath = *sessionPath
	}
	if *screenshotDir != "" {
		cfg.ScreenshotDir = *screenshotDir
	}

	return cfg, cfg.Validate()
}

func newProvider(cfg appconfig.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case appconfig.ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewProvider("", opts...)
	default:
		return anthropic.NewProvider("", anthropic.WithModel(cfg.Model))
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	log, err := logging.Open(cfg.LogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable, using stderr: %v\n", err)
	}
	defer log.Close()
	mainLog := log.Component("main")

	// Missing credentials are fatal here, before the browser starts.
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ui := console.New(os.Stdout, os.Stdin)

	session, err := browser.StartSession(browser.SessionOptions{
		UserDataDir: cfg.SessionPath,
		Headless:    cfg.Headless,
	})
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer session.Close()
	mainLog.Infof("browser session started (profile: %s, headless: %v)", cfg.SessionPath, cfg.Headless)

	if cfg.ManualLogin {
		ui.WaitForEnter("Браузер открыт. Выполните вход вручную и нажмите Enter, чтобы запустить агента... ")
	}

	executor := browser.NewExecutor(session.Driver(), log.Component("executor"),
		browser.WithScreenshotDir(cfg.ScreenshotDir),
		browser.WithDOMAnswerer(agent.NewDOMSubAgent(provider)),
	)

	pilot := agent.New(agent.Options{
		Task:          cfg.Task,
		MaxIterations: cfg.MaxIterations,
		HistoryWindow: cfg.HistoryWindow,
		Temperature:   cfg.Temperature,
		Confirm:       cfg.ConfirmActions,
	}, provider, executor, ui, log.Component("agent"))

	outcome, err := pilot.Run(ctx)
	if err != nil {
		return err
	}
	mainLog.Infof("run ended: completed=%v reason=%q iterations=%d (session %s)",
		outcome.Completed, outcome.Reason, outcome.Iterations, log.SessionID())
	ui.Notice(fmt.Sprintf("Лог сессии: %s", log.Path()))
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webpilot: %v\n", err)
		os.Exit(1)
	}
}
