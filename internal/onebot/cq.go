package onebot

import (
	"encoding/base64"
	"strings"
)

//nolint:gochecknoglobals // Read-only replacers.
var (
	textEscaper   = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;")
	textUnescaper = strings.NewReplacer("&#91;", "[", "&#93;", "]", "&#44;", ",", "&amp;", "&")
)

// EscapeText makes plain text safe to embed in a CQ-coded message.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// UnescapeText reverses EscapeText for inbound raw messages.
func UnescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// ImageSegment wraps PNG bytes in a base64 CQ image code.
func ImageSegment(png []byte) string {
	return "[CQ:image,file=base64://" + base64.StdEncoding.EncodeToString(png) + "]"
}
