package universe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SustainabilityURL is the page an ESG refresh renders per ticker.
const SustainabilityURL = "https://finance.yahoo.com/quote/%s/sustainability"

// DefaultRenderWait gives client scripts time to fill in the numbers.
const DefaultRenderWait = 1200 * time.Millisecond

// BrowserFetcher renders sustainability pages in a headless Chromium.
// One browser is shared across tickers; each fetch gets a fresh context.
type BrowserFetcher struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	renderWait time.Duration
	urlFormat  string
}

// NewBrowserFetcher starts Playwright and launches Chromium. Close must be called.
func NewBrowserFetcher(renderWait time.Duration) (*BrowserFetcher, error) {
	if renderWait <= 0 {
		renderWait = DefaultRenderWait
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("error starting playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("error launching browser: %w", err)
	}
	return &BrowserFetcher{
		pw:         pw,
		browser:    browser,
		renderWait: renderWait,
		urlFormat:  SustainabilityURL,
	}, nil
}

// PageText opens the ticker's sustainability page and returns the body text.
func (f *BrowserFetcher) PageText(ctx context.Context, ticker string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bctx, err := f.browser.NewContext(playwright.BrowserNewContextOptions{
		Locale: playwright.String("en-US"),
	})
	if err != nil {
		return "", fmt.Errorf("error creating browser context: %w", err)
	}
	defer func() {
		if e := bctx.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing browser context: %w", e))
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("error creating page: %w", err)
	}
	url := fmt.Sprintf(f.urlFormat, strings.ToUpper(ticker))
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("error navigating to %s: %w", url, err)
	}
	page.WaitForTimeout(float64(f.renderWait.Milliseconds()))

	text, err = page.Locator("body").InnerText()
	if err != nil {
		return "", fmt.Errorf("error reading page text: %w", err)
	}
	return text, nil
}

// Close shuts down the browser and the Playwright driver.
func (f *BrowserFetcher) Close() error {
	var err error
	if e := f.browser.Close(); e != nil {
		err = errors.Join(err, fmt.Errorf("error closing browser: %w", e))
	}
	if e := f.pw.Stop(); e != nil {
		err = errors.Join(err, fmt.Errorf("error stopping playwright: %w", e))
	}
	return err
}
