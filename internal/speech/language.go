package speech

import "strings"

const DefaultLanguageCode = "en"

var languageCodes = map[string]string{
	"english": "en",
	"spanish": "es",
	"french":  "fr",
	"german":  "de",
}

// LanguageCode maps a language name to its synthesis code. Unknown names get English.
func LanguageCode(name string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return DefaultLanguageCode
}
