package review

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips any markup left inside an extracted review and unescapes
// entities. Surrounding whitespace is left untouched.
func PlainText(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
