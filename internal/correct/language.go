package correct

// SupportedLanguage reports whether a full rule set exists for the ISO 639-1
// code. Unsupported languages still receive the generic capitalisation and
// punctuation pass.
func SupportedLanguage(code string) bool {
	_, ok := languageRules[code]
	return ok
}

// languageRules holds token-level normalisation maps keyed by ISO 639-1
// language code. Keys are lower-cased token cores; a lookup hit replaces the
// core with the mapped value, re-applying a leading capital when the source
// token carried one.
var languageRules = map[string]map[string]string{
	// Spanish: restore accents that speech recognition tends to drop.
	"es": {
		"medico":  "médico",
		"rapido":  "rápido",
		"ultimo":  "último",
		"proximo": "próximo",
		"corazon": "corazón",
		"tambien": "también",
		"despues": "después",
		"numero":  "número",
	},
	// English: expand clipped and negated contractions.
	"en": {
		"can't":   "cannot",
		"won't":   "will not",
		"doesn't": "does not",
		"hasn't":  "has not",
		"haven't": "have not",
		"isn't":   "is not",
		"aren't":  "are not",
		"gonna":   "going to",
		"wanna":   "want to",
		"gotta":   "got to",
	},
}
