package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// selectOptionJS sets a select's value once the option exists and fires change,
// so onchange handlers that repopulate dependent selects run as for a user.
const selectOptionJS = `(function(name, value) {
	const el = document.querySelector('select[name="' + name + '"]');
	if (!el) { return false; }
	if (!Array.from(el.options).some(o => o.value === value)) { return false; }
	if (el.value !== value) {
		el.value = value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}
	return true;
})(%s, %s)`

type chromedpFactory struct {
	config *common.BrowserConfig
}

// NewChromedpFactory launches a local Chrome per session
func NewChromedpFactory(config *common.BrowserConfig) interfaces.SessionFactory {
	return &chromedpFactory{config: config}
}

func (f *chromedpFactory) NewSession(ctx context.Context) (interfaces.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-popup-blocking", true),
	)
	if f.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		browser: browserCtx,
		active:  browserCtx,
		timeout: f.config.Timeout.Duration,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}

	// Start the browser on the unbounded context; running the first action
	// under a timeout context would tie the browser's lifetime to it.
	if err := chromedp.Run(browserCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return s, nil
}

type chromedpSession struct {
	browser     context.Context
	active      context.Context
	popupCancel context.CancelFunc
	cancel      context.CancelFunc
	timeout     time.Duration
}

// run executes actions on the active window, bounded by the session timeout and ctx
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.active, s.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

func (s *chromedpSession) Open(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (s *chromedpSession) SelectOption(ctx context.Context, field, value string) error {
	name, err := json.Marshal(field)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var selected bool
	err = s.run(ctx,
		chromedp.WaitReady(fmt.Sprintf(`select[name="%s"]`, field), chromedp.ByQuery),
		chromedp.Poll(fmt.Sprintf(selectOptionJS, name, val), &selected, chromedp.WithPollingInterval(250*time.Millisecond)),
	)
	if err != nil {
		return fmt.Errorf("failed to select %s=%s: %w", field, value, err)
	}
	return nil
}

func (s *chromedpSession) ClickForPopup(ctx context.Context, selector string) error {
	created := chromedp.WaitNewTarget(s.active, func(info *target.Info) bool {
		return info.Type == "page"
	})

	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case id := <-created:
		popupCtx, popupCancel := chromedp.NewContext(s.browser, chromedp.WithTargetID(id))
		s.popupCancel = popupCancel
		// Attach before any bounded action runs against the popup
		if err := chromedp.Run(popupCtx); err != nil {
			return fmt.Errorf("failed to attach to popup window: %w", err)
		}
		s.active = popupCtx
		return nil
	case <-timer.C:
		return fmt.Errorf("no window opened after clicking %s", selector)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chromedpSession) PageSource(ctx context.Context) (string, error) {
	var page string
	err := s.run(ctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return page, nil
}

func (s *chromedpSession) Close() error {
	if s.popupCancel != nil {
		s.popupCancel()
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
