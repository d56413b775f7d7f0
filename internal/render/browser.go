package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/rshade/ysyunhei/internal/onebot"
)

// DefaultRenderTimeout bounds one launch-and-screenshot cycle.
const DefaultRenderTimeout = 30 * time.Second

const cardSelector = "#card"

//nolint:gochecknoglobals // Parsed once.
var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body{margin:0;background:transparent}
#card{width:900px;padding:32px;box-sizing:border-box;background:{{.Background}};color:{{.Foreground}};
font-size:28px;font-family:"Microsoft YaHei","Noto Sans CJK SC","Segoe UI",Arial,sans-serif;line-height:1.6}
.title{font-size:34px;font-weight:700;margin-bottom:16px}
.divider{height:2px;background:#2a3340;margin-bottom:16px}
.line{white-space:pre-wrap;word-break:break-word}
.footer{margin-top:16px;color:#7b8794;font-size:22px}
</style></head><body><div id="card">
<div class="title">{{.Title}}</div>
<div class="divider"></div>
{{range .Lines}}<div class="line">{{if .}}{{.}}{{else}}&nbsp;{{end}}</div>
{{end}}<div class="footer">{{.Footer}}</div>
</div></body></html>`))

type cardView struct {
	Card
	Background template.CSS
	Foreground template.CSS
	Footer     string
}

// BrowserOptions configures a Browser.
type BrowserOptions struct {
	ExecPath string
	Timeout  time.Duration
	Theme    Theme
	Logger   zerolog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// Browser screenshots an HTML card with a headless Chromium.
type Browser struct {
	opts BrowserOptions
}

// NewBrowser fills defaults.
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRenderTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Theme == (Theme{}) {
		opts.Theme = DefaultTheme()
	}
	return &Browser{opts: opts}
}

// Name implements Renderer.
func (b *Browser) Name() string { return "browser" }

// Render implements Renderer. Any failure falls back to the plain text.
func (b *Browser) Render(ctx context.Context, title, text string) string {
	card := ParseCard(title, text)

	png, err := b.Screenshot(ctx, card)
	if err != nil {
		b.opts.Logger.Warn().Err(err).Msg("image render failed, sending text")
		return PlainText{}.Render(ctx, title, text)
	}

	msg := onebot.ImageSegment(png)
	if card.Link != "" {
		msg += "\n" + onebot.EscapeText(card.Link)
	}
	return msg
}

// HTML renders the card document.
func (b *Browser) HTML(card Card) (string, error) {
	bg, fg := b.opts.Theme.Colors(b.opts.Now())
	var buf bytes.Buffer
	err := cardTemplate.Execute(&buf, cardView{
		Card:       card,
		Background: template.CSS(bg), //nolint:gosec // Operator-supplied colour.
		Foreground: template.CSS(fg), //nolint:gosec // Operator-supplied colour.
		Footer:     Footer,
	})
	if err != nil {
		return "", fmt.Errorf("executing card template: %w", err)
	}
	return buf.String(), nil
}

// Screenshot returns a PNG of the card.
func (b *Browser) Screenshot(ctx context.Context, card Card) ([]byte, error) {
	doc, err := b.HTML(card)
	if err != nil {
		return nil, err
	}

	var png []byte
	err = b.run(ctx,
		chromedp.EmulateViewport(900, 600),
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(doc)),
		chromedp.Screenshot(cardSelector, &png, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing card: %w", err)
	}
	return png, nil
}

// Probe launches the browser once and loads a blank page.
func (b *Browser) Probe(ctx context.Context) error {
	return b.run(ctx, chromedp.Navigate("about:blank"))
}

func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(b.opts.ExecPath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-color-profile", "srgb"),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer taskCancel()

	return chromedp.Run(taskCtx, actions...)
}
