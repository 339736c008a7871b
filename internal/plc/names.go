package plc

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a user-supplied signal name: NFC normalization,
// surrounding whitespace trimmed, upper-cased with language-neutral rules.
//
// Catalogue names are already canonical, so NormalizeName("start") and
// NormalizeName("START") both address the START input. Lookups inside the
// core are exact; only user-facing surfaces (CLI, config, scenarios)
// normalize.
func NormalizeName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	// A Caser is stateful; build one per call rather than share it.
	return cases.Upper(language.Und).String(name)
}
