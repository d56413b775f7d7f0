// Package render turns command results into chat messages, either as plain
// text or as an image card screenshotted by a headless browser.
package render

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rshade/ysyunhei/internal/onebot"
)

// Footer is printed under every card.
const Footer = "由 ysyunhei 生成"

// DefaultTitle is used when a caller passes an empty title.
const DefaultTitle = "云黑结果"

// Renderer formats a titled multi-line result as a CQ-coded message.
type Renderer interface {
	Render(ctx context.Context, title, text string) string
	Name() string
}

// PlainText sends the text unchanged.
type PlainText struct{}

// Render implements Renderer.
func (PlainText) Render(_ context.Context, _ string, text string) string {
	return onebot.EscapeText(text)
}

// Name implements Renderer.
func (PlainText) Name() string { return "text" }

// Card is the parsed layout of a result.
type Card struct {
	Title string
	Lines []string
	// Link is a trailing line ending in a URL, kept as text under the image.
	Link string
}

//nolint:gochecknoglobals // Compiled once.
var trailingURL = regexp.MustCompile(`https?://\S+$`)

// ParseCard splits text into card lines. Lines ending in a URL are pulled out;
// the last one becomes Link.
func ParseCard(title, text string) Card {
	if title == "" {
		title = DefaultTitle
	}
	card := Card{Title: title}
	for _, line := range strings.Split(text, "\n") {
		if trailingURL.MatchString(line) {
			card.Link = line
			continue
		}
		card.Lines = append(card.Lines, line)
	}
	return card
}

// Options selects a renderer at startup.
type Options struct {
	AsImage     bool
	BrowserPath string
	ThemeDate   string
	ThemeColor  string
}

// Select returns the renderer to use for the life of the process. Image
// rendering is probed once; if the browser cannot start, PlainText is used.
func Select(ctx context.Context, opts Options, logger zerolog.Logger) Renderer {
	log := logger.With().Str("component", "render").Logger()

	if !opts.AsImage {
		return PlainText{}
	}
	if opts.BrowserPath == "" {
		log.Warn().Msg("render_as_image is set but browser_path is empty, using text")
		return PlainText{}
	}

	theme, err := ParseTheme(opts.ThemeDate, opts.ThemeColor)
	if err != nil {
		log.Warn().Err(err).Msg("invalid theme, using defaults")
		theme = DefaultTheme()
	}

	b := NewBrowser(BrowserOptions{ExecPath: opts.BrowserPath, Theme: theme, Logger: log})
	if err := b.Probe(ctx); err != nil {
		log.Warn().Err(err).Str("browser_path", opts.BrowserPath).Msg("browser probe failed, using text")
		return PlainText{}
	}

	log.Info().Str("browser_path", opts.BrowserPath).Msg("image rendering enabled")
	return b
}
