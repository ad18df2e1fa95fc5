package intake

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// typographic replaces characters that have an obvious ASCII counterpart.
var typographic = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// asciiFold decomposes (NFKD turns no-break spaces into spaces and splits accents off
// their letters) and then drops everything outside ASCII.
var asciiFold = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

// SanitizeFilename makes name safe for a quoted Content-Disposition filename.
func SanitizeFilename(name string) string {
	name = typographic.Replace(name)
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = ""
	}
	folded = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, folded)

	folded = strings.TrimSpace(folded)
	if folded == "" {
		return "file"
	}
	return folded
}

// OutputFilename derives the download name of a translated image from the original
// upload name and the translated bytes.
func OutputFilename(original string, data []byte) string {
	ext := ExtensionFor(DetectMediaType(data))
	if original == "" {
		return "translated" + ext
	}
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeFilename(base) + "_translated" + ext
}
