package normalize

import (
	"html"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the timestamp format used throughout archives
const DateLayout = "02.01.2006 15:04:05"

// linkMarkupRe matches the [#alias|DISPLAY|URL] micro-format some exports
// embed in message text. Malformed variants are left untouched.
var linkMarkupRe = regexp.MustCompile(`\[#alias\|([^|\]]+)\|([^|\]]+)\]`)

// FormatDate renders a Unix timestamp in the archive date format.
// A zero timestamp renders as the epoch instant rather than an empty string.
func FormatDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// ParseLinkMarkup replaces [#alias|DISPLAY|URL] occurrences in already
// escaped text with anchor tags. The display text and URL are inserted
// as they appear, so callers must escape the input first.
func ParseLinkMarkup(escaped string) string {
	return linkMarkupRe.ReplaceAllString(escaped, `<a href="$2" target="_blank">$1</a>`)
}

// FormatText prepares raw message text for HTML output: escape first so
// user content cannot inject markup, then expand link markup, then
// convert newlines to line breaks.
func FormatText(raw string) string {
	escaped := html.EscapeString(raw)
	linked := ParseLinkMarkup(escaped)
	return strings.ReplaceAll(linked, "\n", "<br>")
}
