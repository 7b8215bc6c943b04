package services

import (
	"context"
	"fmt"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"

	"github.com/playwright-community/playwright-go"
)

type playwrightFactory struct {
	config *common.BrowserConfig
}

// NewPlaywrightFactory starts a Playwright driver and Chromium per session
func NewPlaywrightFactory(config *common.BrowserConfig) interfaces.SessionFactory {
	return &playwrightFactory{config: config}
}

func (f *playwrightFactory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(f.config.Headless),
		Timeout:  playwright.Float(float64(f.config.Timeout.Milliseconds())),
	}
	if f.config.ExecPath != "" {
		launch.ExecutablePath = playwright.String(f.config.ExecPath)
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(f.config.Timeout.Milliseconds()))

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		active:  page,
		timeout: float64(f.config.Timeout.Milliseconds()),
	}, nil
}

// playwrightSession has no context support in the driver, so ctx is only
// checked between actions.
type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	active  playwright.Page
	timeout float64
}

func (s *playwrightSession) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.active.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(s.timeout),
	}); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

func (s *playwrightSession) SelectOption(ctx context.Context, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	values := []string{value}
	_, err := s.active.Locator(fmt.Sprintf(`select[name="%s"]`, field)).SelectOption(
		playwright.SelectOptionValues{Values: &values},
		playwright.LocatorSelectOptionOptions{Timeout: playwright.Float(s.timeout)},
	)
	if err != nil {
		return fmt.Errorf("failed to select %s=%s: %w", field, value, err)
	}
	return nil
}

func (s *playwrightSession) ClickForPopup(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	popup, err := s.active.ExpectPopup(func() error {
		return s.active.Locator(selector).Click()
	})
	if err != nil {
		return fmt.Errorf("no window opened after clicking %s: %w", selector, err)
	}
	if err := popup.WaitForLoadState(); err != nil {
		return fmt.Errorf("popup window did not load: %w", err)
	}
	s.active = popup
	return nil
}

func (s *playwrightSession) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := s.active.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return content, nil
}

func (s *playwrightSession) Close() error {
	var firstErr error
	if err := s.browser.Close(); err != nil {
		firstErr = err
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
