// Package langdetect guesses the language of a piece of text.
package langdetect

import (
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	// Models register themselves with lingua on init. Keep this list in
	// sync with Languages.
	_ "github.com/pemistahl/lingua-go/language-models/ar"
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/hi"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/ru"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
)

// Auto is returned when the language cannot be determined.
const Auto = "auto"

// Languages is the set the detector chooses from.
var Languages = []lingua.Language{
	lingua.Arabic,
	lingua.Chinese,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Hindi,
	lingua.Italian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Spanish,
}

// Building the detector loads language models, so it is done once on first use.
var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		Build()
})

// Detect returns the ISO 639-1 code and English name of the language of text.
// It returns ("auto", "Auto") when text is blank or ambiguous.
func Detect(text string) (code, name string) {
	if strings.TrimSpace(text) == "" {
		return Auto, "Auto"
	}

	lang, ok := detector().DetectLanguageOf(text)
	if !ok || lang == lingua.Unknown {
		return Auto, "Auto"
	}
	name = cases.Title(language.English).String(strings.ToLower(lang.String()))
	return strings.ToLower(lang.IsoCode639_1().String()), name
}
