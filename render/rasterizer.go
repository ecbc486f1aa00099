package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"report-tables/utils"
)

// chartSettle lets the chart entry animation finish before the screenshot.
const chartSettle = 1500 * time.Millisecond

// Rasterizer turns a chart page into a PNG with headless Chrome.
type Rasterizer struct {
	chromeBin string
	timeout   time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewRasterizer creates a Rasterizer. An empty chromeBin is resolved from
// CHROME_BIN, PATH and the usual install locations.
func NewRasterizer(chromeBin string, maxRetries int, logger *utils.Logger) *Rasterizer {
	return &Rasterizer{
		chromeBin: findChromeBinary(chromeBin),
		timeout:   60 * time.Second,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// PNG screenshots the full page of html.
func (r *Rasterizer) PNG(ctx context.Context, html string) ([]byte, error) {
	r.logger.Debug("[render] using browser binary: %q", r.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1024, 800),
	)
	if r.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(r.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var buf []byte
	err := r.retry.Do(browserCtx, "render-png", func(ctx context.Context) error {
		tabCtx, cancel := chromedp.NewContext(ctx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.Navigate(dataURL),
			chromedp.WaitVisible("#"+LineChartID+" canvas", chromedp.ByQuery),
			chromedp.WaitVisible("#"+BarChartID+" canvas", chromedp.ByQuery),
			chromedp.Sleep(chartSettle),
			chromedp.FullScreenshot(&buf, 100),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("render: screenshot: %w", err)
	}
	return buf, nil
}

// WritePNG renders html and writes the image to path.
func (r *Rasterizer) WritePNG(ctx context.Context, html, path string) error {
	img, err := r.PNG(ctx, html)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, img, 0644); err != nil {
		return fmt.Errorf("render: write %q: %w", path, err)
	}
	r.logger.Info("[render] chart saved to %s", path)
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
