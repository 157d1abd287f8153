package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// NormalizeBody cleans an upstream markdown description: LF line endings,
// no surrounding blank space, runs of blank lines collapsed to one, and a
// single trailing newline. An empty description stays empty.
func NormalizeBody(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return blankRuns.ReplaceAllString(s, "\n\n") + "\n"
}

// MakeSlug builds a directory name from an upstream id and a display name.
// Only the Latin-script part of the name is kept: "Go 東京 #3" becomes
// "go-3", never a transliteration of the kanji.
func MakeSlug(id, name string) string {
	return slug.Make(fmt.Sprintf("%s-%s", id, latinOnly(name)))
}

// latinOnly replaces every rune outside ASCII, the Latin script and
// combining marks with a space. Digits of any width are kept.
func latinOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf || unicode.In(r, unicode.Latin, unicode.Inherited) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// optional returns nil for an empty string so the key is left out.
func optional(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
