package fetcher

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// renderPage loads a URL in headless Chrome and returns the rendered HTML.
// Sources that assemble their tables with JavaScript only yield rows this
// way; everything else is cheaper over a plain request.
func renderPage(rawURL string, timeout time.Duration) (string, error) {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if timeout > 0 {
		page = page.Timeout(timeout)
	}
	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("load %s: %w", rawURL, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read rendered page %s: %w", rawURL, err)
	}
	return html, nil
}
