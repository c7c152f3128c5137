package fetch

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxTextLength caps the text handed to the model, in characters
	MaxTextLength = 8000
	// MinTextLength is the shortest text worth extracting from
	MinTextLength = 50
)

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// ExtractText reduces an HTML document to whitespace-normalised visible text.
// Script and style contents are dropped.
func ExtractText(document string) (string, error) {
	stripped := stripPolicy.Sanitize(document)
	text := strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")

	if utf8.RuneCountInString(text) > MaxTextLength {
		text = strings.TrimSpace(string([]rune(text)[:MaxTextLength]))
	}

	if utf8.RuneCountInString(text) < MinTextLength {
		return "", errors.ExtractionError("Insufficient content extracted from webpage", nil).
			WithContext("length", utf8.RuneCountInString(text))
	}
	return text, nil
}
